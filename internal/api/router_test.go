package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/sociallink/backend/internal/api/auth"
	"github.com/sociallink/backend/internal/api/comment"
	"github.com/sociallink/backend/internal/api/post"
	"github.com/sociallink/backend/internal/api/reaction"
	"github.com/sociallink/backend/internal/cache"
	"github.com/sociallink/backend/internal/cache/cachetest"
	"github.com/sociallink/backend/internal/queue"
	"github.com/sociallink/backend/internal/queue/queuetest"
	"github.com/sociallink/backend/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type checkFunc func(ctx context.Context) error

func (f checkFunc) Health(ctx context.Context) error { return f(ctx) }

type fakeStats struct {
	stats []queue.QueueStats
	err   error
}

func (f *fakeStats) Stats(context.Context) ([]queue.QueueStats, error) { return f.stats, f.err }

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{AuthRateLimit: 60, AuthRateBurst: 2},
		Auth:      config.AuthConfig{JWTSecret: "test-secret"},
		Telemetry: config.TelemetryConfig{ServiceName: "sociallink"},
	}
}

func newEngine(t *testing.T, checks map[string]HealthChecker, stats QueueStats) *gin.Engine {
	t.Helper()

	c, _ := cachetest.New(t)
	jobs := &queuetest.Recorder{}
	cfg := testConfig()
	handlers := Handlers{
		Auth:      auth.NewHandler(nil, nil, cache.NewUserCache(c), jobs, cfg),
		Posts:     post.NewHandler(cache.NewPostCache(c), nil, jobs),
		Comments:  comment.NewHandler(cache.NewCommentCache(c), nil, jobs),
		Reactions: reaction.NewHandler(cache.NewReactionCache(c), cache.NewPostCache(c), nil, nil, jobs),
	}

	engine := gin.New()
	NewRouter(handlers, cfg, checks, stats).SetupRoutes(engine)
	return engine
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	ok := checkFunc(func(context.Context) error { return nil })
	down := checkFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantCode   int
		wantStatus string
	}{
		{"all up", map[string]HealthChecker{"database": ok, "cache": ok}, http.StatusOK, "OK"},
		{"cache down", map[string]HealthChecker{"database": ok, "cache": down}, http.StatusServiceUnavailable, "DEGRADED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(newEngine(t, tt.checks, nil), "/health")
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			var body struct {
				Status   string            `json:"status"`
				Services map[string]string `json:"services"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Status != tt.wantStatus || len(body.Services) != 2 {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestQueues(t *testing.T) {
	stats := &fakeStats{stats: []queue.QueueStats{{Queue: queue.QueuePost, Pending: 3}}}
	w := get(newEngine(t, nil, stats), "/queues")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Queues []queue.QueueStats `json:"queues"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Queues) != 1 || body.Queues[0].Pending != 3 {
		t.Errorf("queues = %+v", body.Queues)
	}

	stats.err = errors.New("broker down")
	if w := get(newEngine(t, nil, stats), "/queues"); w.Code != http.StatusInternalServerError {
		t.Errorf("failing broker status = %d, want 500", w.Code)
	}
	if w := get(newEngine(t, nil, nil), "/queues"); w.Code != http.StatusNotFound {
		t.Errorf("disabled status = %d, want 404", w.Code)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	engine := newEngine(t, nil, nil)

	for _, path := range []string{
		"/api/v1/currentuser",
		"/api/v1/post/all",
		"/api/v1/post/comments/65f1c0a2b3d4e5f601234567",
		"/api/v1/post/reactions/username/Manny",
	} {
		if w := get(engine, path); w.Code != http.StatusUnauthorized {
			t.Errorf("%s status = %d, want 401", path, w.Code)
		}
	}
}

func TestResponsesCarryRequestID(t *testing.T) {
	w := get(newEngine(t, nil, nil), "/health")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}
