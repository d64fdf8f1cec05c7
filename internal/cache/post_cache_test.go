package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/sociallink/backend/internal/models"
)

func testPost(id, userID string) *models.Post {
	return &models.Post{
		ID:             id,
		UserID:         userID,
		Username:       "Manny",
		Email:          "manny@example.com",
		AvatarColor:    "#9c27b0",
		ProfilePicture: "https://img.example.com/manny.png",
		Body:           "first post",
		BgColor:        "#ffffff",
		Feelings:       "happy",
		Privacy:        models.PrivacyPublic,
		CommentsCount:  0,
		Reactions:      models.Reactions{models.ReactionLike: 0, models.ReactionLove: 2},
		CreatedAt:      time.Date(2024, 5, 1, 10, 30, 0, 123, time.UTC),
	}
}

func savePost(t *testing.T, pc *PostCache, post *models.Post, uID string) {
	t.Helper()
	err := pc.Save(context.Background(), SavePostInput{
		Key:           post.ID,
		CurrentUserID: post.UserID,
		UID:           uID,
		Post:          post,
	})
	if err != nil {
		t.Fatalf("Save(%s) error = %v", post.ID, err)
	}
}

func TestPostCache_RoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	pc := NewPostCache(c)
	ctx := context.Background()

	want := testPost("p1", "u1")
	savePost(t, pc, want, "42")

	got, err := pc.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() = nil after Save")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get() = %+v\nwant %+v", got, want)
	}

	if v := mr.HGet(userKey("u1"), "postsCount"); v != "1" {
		t.Errorf("author postsCount = %q, want 1", v)
	}
}

func TestPostCache_GetRangeOrdering(t *testing.T) {
	c, _ := newTestCache(t)
	pc := NewPostCache(c)
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		savePost(t, pc, testPost(fmt.Sprintf("p%d", i), fmt.Sprintf("u%d", i)), strconv.Itoa(i*10))
	}

	first, err := pc.GetRange(ctx, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	second, err := pc.GetRange(ctx, 3, 5)
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	for _, p := range append(first, second...) {
		ids = append(ids, p.ID)
	}
	want := []string{"p6", "p5", "p4", "p3", "p2", "p1"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("pages = %v, want %v", ids, want)
	}
}

func TestPostCache_PagesDoNotOverlap(t *testing.T) {
	c, _ := newTestCache(t)
	pc := NewPostCache(c)
	ctx := context.Background()

	// one author, so every post has the same score
	for i := 0; i < 9; i++ {
		savePost(t, pc, testPost(fmt.Sprintf("p%d", i), "u1"), "7")
	}

	seen := make(map[string]bool)
	const size = 4
	for page := 0; page < 3; page++ {
		start := int64(page * size)
		posts, err := pc.GetRange(ctx, start, start+size-1)
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range posts {
			if seen[p.ID] {
				t.Errorf("post %s returned on two pages", p.ID)
			}
			seen[p.ID] = true
		}
	}
	if len(seen) != 9 {
		t.Errorf("saw %d posts, want 9", len(seen))
	}
}

func TestPostCache_SkipsGhostMembers(t *testing.T) {
	c, mr := newTestCache(t)
	pc := NewPostCache(c)

	savePost(t, pc, testPost("p1", "u1"), "1")
	if _, err := mr.ZAdd(postIndexKey, 2, "ghost"); err != nil {
		t.Fatal(err)
	}

	posts, err := pc.GetRange(context.Background(), 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 || posts[0].ID != "p1" {
		t.Errorf("GetRange() = %v, want only p1", posts)
	}
}

func TestPostCache_WithImages(t *testing.T) {
	c, _ := newTestCache(t)
	pc := NewPostCache(c)

	plain := testPost("p1", "u1")
	image := testPost("p2", "u1")
	image.ImgID, image.ImgVersion = "img-2", "1712"
	gif := testPost("p3", "u1")
	gif.GifURL = "https://media.example.com/cat.gif"
	half := testPost("p4", "u1")
	half.ImgID = "img-4"

	for _, p := range []*models.Post{plain, image, gif, half} {
		savePost(t, pc, p, "5")
	}

	posts, err := pc.GetRangeWithImages(context.Background(), 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]bool{}
	for _, p := range posts {
		got[p.ID] = true
	}
	if len(got) != 2 || !got["p2"] || !got["p3"] {
		t.Errorf("GetRangeWithImages() ids = %v, want p2 and p3", got)
	}

	n, err := pc.CountWithImages(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("CountWithImages() = %d, want 2", n)
	}
}

func TestPostCache_UserPosts(t *testing.T) {
	c, _ := newTestCache(t)
	pc := NewPostCache(c)
	ctx := context.Background()

	savePost(t, pc, testPost("a1", "ua"), "100")
	savePost(t, pc, testPost("a2", "ua"), "100")
	savePost(t, pc, testPost("b1", "ub"), "200")

	posts, err := pc.GetUserPosts(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 2 {
		t.Errorf("GetUserPosts(100) returned %d posts, want 2", len(posts))
	}
	for _, p := range posts {
		if p.UserID != "ua" {
			t.Errorf("GetUserPosts(100) returned post of %s", p.UserID)
		}
	}

	n, err := pc.CountUserPosts(ctx, 100)
	if err != nil || n != 2 {
		t.Errorf("CountUserPosts(100) = %d, %v; want 2", n, err)
	}
	total, err := pc.Count(ctx)
	if err != nil || total != 3 {
		t.Errorf("Count() = %d, %v; want 3", total, err)
	}
}

func TestPostCache_DeleteIdempotent(t *testing.T) {
	c, mr := newTestCache(t)
	pc := NewPostCache(c)
	ctx := context.Background()

	savePost(t, pc, testPost("p1", "u1"), "1")
	savePost(t, pc, testPost("p2", "u1"), "1")
	mr.Lpush(commentsKey("p1"), `{"_id":"c1"}`)
	mr.Lpush(reactionsKey("p1"), `{"_id":"r1"}`)

	for i := 0; i < 3; i++ {
		if err := pc.Delete(ctx, "p1", "u1"); err != nil {
			t.Fatalf("Delete() #%d error = %v", i+1, err)
		}
	}
	if err := pc.Delete(ctx, "never-existed", "u1"); err != nil {
		t.Fatalf("Delete(missing) error = %v", err)
	}

	if v := mr.HGet(userKey("u1"), "postsCount"); v != "1" {
		t.Errorf("postsCount = %q, want 1", v)
	}
	for _, key := range []string{postKey("p1"), commentsKey("p1"), reactionsKey("p1")} {
		if mr.Exists(key) {
			t.Errorf("%s still exists", key)
		}
	}
	if got, _ := pc.Get(ctx, "p2"); got == nil {
		t.Error("Delete(p1) removed p2")
	}
}

func TestPostCache_Update(t *testing.T) {
	c, mr := newTestCache(t)
	pc := NewPostCache(c)
	ctx := context.Background()

	original := testPost("p1", "u1")
	savePost(t, pc, original, "1")

	body, privacy := "edited", models.PrivacyPrivate
	got, err := pc.Update(ctx, "p1", models.PostUpdate{Body: &body, Privacy: &privacy})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	want := *original
	want.Body = body
	want.Privacy = privacy
	if !reflect.DeepEqual(got, &want) {
		t.Errorf("Update() = %+v\nwant %+v", got, &want)
	}

	if _, err := pc.Update(ctx, "missing", models.PostUpdate{Body: &body}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
	if mr.Exists(postKey("missing")) {
		t.Error("Update(missing) wrote a partial hash")
	}
}

type sourceStub struct {
	posts map[string]*models.Post
	uids  map[string]string
}

func (s *sourceStub) Get(_ context.Context, postID string) (*models.Post, error) {
	return s.posts[postID], nil
}

func (s *sourceStub) AuthorUID(_ context.Context, userID string) (string, error) {
	if uid, ok := s.uids[userID]; ok {
		return uid, nil
	}
	return "", fmt.Errorf("no user %s", userID)
}

func TestPostCache_Warm(t *testing.T) {
	stored := testPost("p1", "u1")
	src := &sourceStub{
		posts: map[string]*models.Post{"p1": stored},
		uids:  map[string]string{"u1": "77"},
	}
	reactions := []*models.Reaction{
		{ID: "r1", PostID: "p1", Username: "Danny", Type: models.ReactionLove},
		{ID: "r2", PostID: "p1", Username: "Fanny", Type: models.ReactionLove},
	}

	tests := []struct {
		name      string
		postID    string
		prepare   func(*testing.T, *PostCache)
		wantFound bool
		wantBody  string
		wantList  int
	}{
		{"store only", "p1", func(*testing.T, *PostCache) {}, true, "first post", 2},
		{"missing everywhere", "p9", func(*testing.T, *PostCache) {}, false, "", 0},
		{"already cached", "p1", func(t *testing.T, pc *PostCache) {
			cached := testPost("p1", "u1")
			cached.Body = "cached copy"
			savePost(t, pc, cached, "77")
		}, true, "cached copy", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mr := newTestCache(t)
			pc := NewPostCache(c)
			ctx := context.Background()
			tt.prepare(t, pc)
			before := mr.HGet(userKey("u1"), "postsCount")

			found, err := pc.Warm(ctx, src, tt.postID, reactions)
			if err != nil {
				t.Fatalf("Warm() error = %v", err)
			}
			if found != tt.wantFound {
				t.Fatalf("Warm() = %v, want %v", found, tt.wantFound)
			}
			if got := mr.HGet(userKey("u1"), "postsCount"); got != before {
				t.Errorf("postsCount = %q, want %q", got, before)
			}

			got, err := pc.Get(ctx, tt.postID)
			if err != nil {
				t.Fatal(err)
			}
			if !tt.wantFound {
				if got != nil || mr.Exists(postKey(tt.postID)) {
					t.Errorf("Warm() cached an unknown post: %+v", got)
				}
				return
			}
			if got == nil || got.Body != tt.wantBody {
				t.Fatalf("Get() = %+v, want body %q", got, tt.wantBody)
			}
			if score, _ := mr.ZScore(postIndexKey, tt.postID); score != 77 {
				t.Errorf("index score = %v, want 77", score)
			}
			if n, _ := mr.List(reactionsKey(tt.postID)); len(n) != tt.wantList {
				t.Errorf("reaction list has %d entries, want %d", len(n), tt.wantList)
			}
		})
	}
}

func TestPostCache_WarmKeepsNewerCounters(t *testing.T) {
	c, mr := newTestCache(t)
	pc := NewPostCache(c)
	ctx := context.Background()

	stored := testPost("p1", "u1")
	stored.CommentsCount = 3
	src := &sourceStub{
		posts: map[string]*models.Post{"p1": stored},
		uids:  map[string]string{"u1": "77"},
	}
	mr.HSet(postKey("p1"), "commentsCount", "4")

	if _, err := pc.Warm(ctx, src, "p1", nil); err != nil {
		t.Fatalf("Warm() error = %v", err)
	}
	got, err := pc.Get(ctx, "p1")
	if err != nil || got == nil {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
	if got.CommentsCount != 4 || got.Body != stored.Body {
		t.Errorf("warmed post = %+v", got)
	}

	body := "edited"
	if _, err := pc.Update(ctx, "p1", models.PostUpdate{Body: &body}); err != nil {
		t.Errorf("Update() after Warm error = %v", err)
	}
}
