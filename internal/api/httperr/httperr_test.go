package httperr

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type signinRequest struct {
	Username string `json:"username" binding:"required,min=4,max=8"`
	Email    string `json:"email" binding:"omitempty,email"`
	Privacy  string `json:"privacy" binding:"omitempty,oneof=Public Private"`
}

func serve(t *testing.T, handler gin.HandlerFunc, body string) (int, Response) {
	t.Helper()

	engine := gin.New()
	engine.Use(ErrorHandler())
	engine.POST("/", handler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	var resp Response
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("response is not JSON: %q", w.Body.String())
		}
	}
	return w.Code, resp
}

func bindHandler(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		handler     gin.HandlerFunc
		body        string
		wantCode    int
		wantMessage string
	}{
		{
			name:        "api error",
			handler:     func(c *gin.Context) { Abort(c, BadRequest("Invalid credentials")) },
			wantCode:    http.StatusBadRequest,
			wantMessage: "Invalid credentials",
		},
		{
			name: "wrapped api error",
			handler: func(c *gin.Context) {
				Abort(c, errors.Join(errors.New("context"), NotFound("Post not found")))
			},
			wantCode:    http.StatusNotFound,
			wantMessage: "Post not found",
		},
		{
			name:        "unknown error",
			handler:     func(c *gin.Context) { Abort(c, errors.New("connection refused")) },
			wantCode:    http.StatusInternalServerError,
			wantMessage: ServerErrorMessage,
		},
		{
			name:        "missing field",
			handler:     bindHandler,
			body:        `{}`,
			wantCode:    http.StatusBadRequest,
			wantMessage: "Username is a required field",
		},
		{
			name:        "too short",
			handler:     bindHandler,
			body:        `{"username":"abc"}`,
			wantCode:    http.StatusBadRequest,
			wantMessage: "Invalid username",
		},
		{
			name:        "bad email",
			handler:     bindHandler,
			body:        `{"username":"manny","email":"nope"}`,
			wantCode:    http.StatusBadRequest,
			wantMessage: "Email must be valid",
		},
		{
			name:        "oneof",
			handler:     bindHandler,
			body:        `{"username":"manny","privacy":"Friends"}`,
			wantCode:    http.StatusBadRequest,
			wantMessage: "Privacy must be one of [Public, Private]",
		},
		{
			name:        "malformed json",
			handler:     bindHandler,
			body:        `{"username":`,
			wantCode:    http.StatusBadRequest,
			wantMessage: "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := serve(t, tt.handler, tt.body)
			if code != tt.wantCode {
				t.Errorf("status = %d, want %d", code, tt.wantCode)
			}
			if resp.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMessage)
			}
			if resp.StatusCode != tt.wantCode || resp.Status != "error" {
				t.Errorf("body = %+v", resp)
			}
		})
	}
}

func TestErrorHandlerLeavesWrittenResponses(t *testing.T) {
	code, resp := serve(t, func(c *gin.Context) {
		c.JSON(http.StatusAccepted, Response{Message: "done"})
		_ = c.Error(errors.New("late failure"))
	}, "")
	if code != http.StatusAccepted || resp.Message != "done" {
		t.Errorf("got %d %+v, want the handler's own response", code, resp)
	}
}
