package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/sociallink/backend/internal/models"
)

func testReaction(postID, username string, kind models.ReactionType) *models.Reaction {
	return &models.Reaction{
		ID:          "r-" + username + "-" + string(kind),
		PostID:      postID,
		Type:        kind,
		Username:    username,
		AvatarColor: "#2196f3",
		UserTo:      "u1",
		CreatedAt:   time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
	}
}

func postReactions(t *testing.T, pc *PostCache, postID string) models.Reactions {
	t.Helper()
	post, err := pc.Get(context.Background(), postID)
	if err != nil {
		t.Fatal(err)
	}
	if post == nil {
		t.Fatalf("post %s not cached", postID)
	}
	return post.Reactions
}

func TestReactionCache_LikeThenLove(t *testing.T) {
	c, _ := newTestCache(t)
	pc := NewPostCache(c)
	rc := NewReactionCache(c)
	ctx := context.Background()

	post := testPost("p1", "u1")
	post.Reactions = models.Reactions{models.ReactionLike: 0}
	savePost(t, pc, post, "1")

	prev, err := rc.Save(ctx, "p1", testReaction("p1", "Manny", models.ReactionLike))
	if err != nil {
		t.Fatalf("Save(like) error = %v", err)
	}
	if prev != nil {
		t.Errorf("Save(like) previous = %+v, want nil", prev)
	}
	counters := postReactions(t, pc, "p1")
	if counters[models.ReactionLike] != 1 {
		t.Errorf("like = %d, want 1", counters[models.ReactionLike])
	}
	if _, n, _ := rc.Get(ctx, "p1"); n != 1 {
		t.Errorf("reaction records = %d, want 1", n)
	}

	prev, err = rc.Save(ctx, "p1", testReaction("p1", "Manny", models.ReactionLove))
	if err != nil {
		t.Fatalf("Save(love) error = %v", err)
	}
	if prev == nil || prev.Type != models.ReactionLike {
		t.Errorf("Save(love) previous = %+v, want the like", prev)
	}
	counters = postReactions(t, pc, "p1")
	if counters[models.ReactionLike] != 0 || counters[models.ReactionLove] != 1 {
		t.Errorf("counters = %v, want like 0 love 1", counters)
	}
	reactions, n, err := rc.Get(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || reactions[0].Type != models.ReactionLove {
		t.Errorf("reactions = %+v, want one love", reactions)
	}
}

func TestReactionCache_OneReactionPerUser(t *testing.T) {
	c, _ := newTestCache(t)
	pc := NewPostCache(c)
	rc := NewReactionCache(c)
	ctx := context.Background()

	post := testPost("p1", "u1")
	post.Reactions = models.NewReactions()
	savePost(t, pc, post, "1")

	users := []string{"Ann", "Bob", "Cid"}
	sequence := []models.ReactionType{
		models.ReactionLike, models.ReactionSad, models.ReactionWow, models.ReactionLike, models.ReactionAngry,
	}
	for _, kind := range sequence {
		for _, u := range users {
			if _, err := rc.Save(ctx, "p1", testReaction("p1", u, kind)); err != nil {
				t.Fatal(err)
			}
		}
	}
	// same user with different case replaces too
	if _, err := rc.Save(ctx, "p1", testReaction("p1", "ann", models.ReactionHaha)); err != nil {
		t.Fatal(err)
	}

	_, n, err := rc.Get(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if n != len(users) {
		t.Errorf("reaction records = %d, want %d", n, len(users))
	}

	counters := postReactions(t, pc, "p1")
	if counters.Total() != len(users) {
		t.Errorf("counters total = %d (%v), want %d", counters.Total(), counters, len(users))
	}
	if counters[models.ReactionAngry] != 2 || counters[models.ReactionHaha] != 1 {
		t.Errorf("counters = %v, want angry 2 haha 1", counters)
	}
}

func TestReactionCache_ConcurrentSaves(t *testing.T) {
	c, _ := newTestCache(t)
	pc := NewPostCache(c)
	rc := NewReactionCache(c)
	ctx := context.Background()

	post := testPost("p1", "u1")
	post.Reactions = models.NewReactions()
	savePost(t, pc, post, "1")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kind := models.ReactionTypes[i%len(models.ReactionTypes)]
			if _, err := rc.Save(ctx, "p1", testReaction("p1", fmt.Sprintf("user%d", i%4), kind)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Save() error = %v", err)
	}

	_, n, _ := rc.Get(ctx, "p1")
	if n != 4 {
		t.Errorf("reaction records = %d, want 4", n)
	}
	if total := postReactions(t, pc, "p1").Total(); total != 4 {
		t.Errorf("counters total = %d, want 4", total)
	}
}

func TestReactionCache_Remove(t *testing.T) {
	c, _ := newTestCache(t)
	pc := NewPostCache(c)
	rc := NewReactionCache(c)
	ctx := context.Background()

	savePost(t, pc, testPost("p1", "u1"), "1")
	if _, err := rc.Save(ctx, "p1", testReaction("p1", "Manny", models.ReactionWow)); err != nil {
		t.Fatal(err)
	}

	removed, err := rc.Remove(ctx, "p1", "Manny")
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if removed == nil || removed.Type != models.ReactionWow {
		t.Errorf("Remove() = %+v, want the wow", removed)
	}
	if counters := postReactions(t, pc, "p1"); counters[models.ReactionWow] != 0 {
		t.Errorf("wow = %d, want 0", counters[models.ReactionWow])
	}

	again, err := rc.Remove(ctx, "p1", "Manny")
	if err != nil || again != nil {
		t.Errorf("second Remove() = %+v, %v; want nil, nil", again, err)
	}
	if counters := postReactions(t, pc, "p1"); counters[models.ReactionLove] != 2 {
		t.Errorf("love = %d, untouched counter changed", counters[models.ReactionLove])
	}
}

func TestReactionCache_GetByUsername(t *testing.T) {
	c, _ := newTestCache(t)
	rc := NewReactionCache(c)
	ctx := context.Background()

	savePost(t, NewPostCache(c), testPost("p1", "u1"), "1")
	want := testReaction("p1", "Manny", models.ReactionHaha)
	if _, err := rc.Save(ctx, "p1", want); err != nil {
		t.Fatal(err)
	}

	got, err := rc.GetByUsername(ctx, "p1", "MANNY")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetByUsername() = %+v, want %+v", got, want)
	}

	missing, err := rc.GetByUsername(ctx, "p1", "nobody")
	if err != nil || missing != nil {
		t.Errorf("GetByUsername(nobody) = %+v, %v; want nil", missing, err)
	}
}

func TestReactionCache_PostNotCached(t *testing.T) {
	c, mr := newTestCache(t)
	rc := NewReactionCache(c)

	_, err := rc.Save(context.Background(), "gone", testReaction("gone", "Manny", models.ReactionLike))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Save() error = %v, want ErrNotFound", err)
	}
	if mr.Exists(reactionsKey("gone")) {
		t.Error("Save() wrote a reaction for an uncached post")
	}
}
