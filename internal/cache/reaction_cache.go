package cache

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/sociallink/backend/internal/models"
)

// ReactionCache keeps the reactions of a post as JSON records in reactions:{postId}
// and the per-kind counters in the post hash. A user has at most one record per post.
type ReactionCache struct {
	*Cache
}

// NewReactionCache creates a reaction cache on c
func NewReactionCache(c *Cache) *ReactionCache {
	return &ReactionCache{Cache: c.named("reactionCache")}
}

// Save records reaction for its user, replacing the user's previous reaction on the
// post, and adjusts the post counters in the same transaction. It returns the
// replaced reaction, or nil. ErrNotFound is returned when the post is not cached.
func (rc *ReactionCache) Save(ctx context.Context, postID string, reaction *models.Reaction) (*models.Reaction, error) {
	ctx, end := rc.span(ctx, "reaction.save")
	defer end()

	raw, err := encodeRecord(reaction)
	if err != nil {
		return nil, err
	}

	var previous *models.Reaction
	err = rc.watch(ctx, func(tx *redis.Tx) error {
		previous = nil

		state, err := rc.readState(ctx, tx, postID)
		if err != nil {
			return err
		}
		if !state.postExists {
			return ErrNotFound
		}

		idx := state.find(reaction.Username)
		if idx >= 0 {
			previous = state.reactions[idx]
			state.counters.Decrement(previous.Type)
		}
		state.counters.Increment(reaction.Type)

		counters, err := encodeRecord(state.counters)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if idx >= 0 {
				pipe.LRem(ctx, reactionsKey(postID), 1, state.raws[idx])
			}
			pipe.LPush(ctx, reactionsKey(postID), raw)
			pipe.HSet(ctx, postKey(postID), "reactions", counters)
			return nil
		})
		return err
	}, reactionsKey(postID), postKey(postID))
	if err != nil {
		return nil, rc.fail("reaction.save", err)
	}
	return previous, nil
}

// Remove deletes the reaction of username on a post and decrements its counter. It
// returns the removed reaction, or nil when the user had not reacted.
func (rc *ReactionCache) Remove(ctx context.Context, postID, username string) (*models.Reaction, error) {
	ctx, end := rc.span(ctx, "reaction.remove")
	defer end()

	var removed *models.Reaction
	err := rc.watch(ctx, func(tx *redis.Tx) error {
		removed = nil

		state, err := rc.readState(ctx, tx, postID)
		if err != nil {
			return err
		}

		idx := state.find(username)
		if idx < 0 {
			return nil
		}
		state.counters.Decrement(state.reactions[idx].Type)

		counters, err := encodeRecord(state.counters)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LRem(ctx, reactionsKey(postID), 1, state.raws[idx])
			if state.postExists {
				pipe.HSet(ctx, postKey(postID), "reactions", counters)
			}
			return nil
		})
		if err != nil {
			return err
		}
		removed = state.reactions[idx]
		return nil
	}, reactionsKey(postID), postKey(postID))
	if err != nil {
		return nil, rc.fail("reaction.remove", err)
	}
	return removed, nil
}

// Get returns the reactions of a post, newest first, and their number
func (rc *ReactionCache) Get(ctx context.Context, postID string) ([]*models.Reaction, int, error) {
	ctx, end := rc.span(ctx, "reaction.get")
	defer end()

	items, err := rc.client.LRange(ctx, reactionsKey(postID), 0, -1).Result()
	if err != nil {
		return nil, 0, rc.fail("reaction.get", err)
	}

	reactions, err := decodeReactions(reactionsKey(postID), items)
	if err != nil {
		return nil, 0, rc.fail("reaction.get", err)
	}
	return reactions, len(reactions), nil
}

// GetByUsername returns the reaction of username on a post, or nil. Usernames
// compare case-insensitively.
func (rc *ReactionCache) GetByUsername(ctx context.Context, postID, username string) (*models.Reaction, error) {
	reactions, _, err := rc.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	for _, r := range reactions {
		if r.PostID == postID && strings.EqualFold(r.Username, username) {
			return r, nil
		}
	}
	return nil, nil
}

// reactionState is the watched view of one post's reactions
type reactionState struct {
	postExists bool
	reactions  []*models.Reaction
	raws       []string
	counters   models.Reactions
}

func (s *reactionState) find(username string) int {
	for i, r := range s.reactions {
		if strings.EqualFold(r.Username, username) {
			return i
		}
	}
	return -1
}

func (rc *ReactionCache) readState(ctx context.Context, tx *redis.Tx, postID string) (*reactionState, error) {
	items, err := tx.LRange(ctx, reactionsKey(postID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	reactions, err := decodeReactions(reactionsKey(postID), items)
	if err != nil {
		return nil, err
	}

	state := &reactionState{reactions: reactions, raws: items, counters: models.NewReactions()}

	values, err := tx.HMGet(ctx, postKey(postID), "_id", "reactions").Result()
	if err != nil {
		return nil, err
	}
	if id, ok := values[0].(string); ok && id != "" {
		state.postExists = true
	}
	if raw, ok := values[1].(string); ok && raw != "" {
		stored := models.Reactions{}
		if err := decodeRecord(raw, &stored); err != nil {
			return nil, &DecodeError{Key: postKey(postID), Field: "reactions", Err: err}
		}
		for kind, n := range stored {
			state.counters[kind] = n
		}
	}
	return state, nil
}

func decodeReactions(key string, items []string) ([]*models.Reaction, error) {
	reactions := make([]*models.Reaction, 0, len(items))
	for i, item := range items {
		var r models.Reaction
		if err := decodeRecord(item, &r); err != nil {
			return nil, &DecodeError{Key: key, Field: strconv.Itoa(i), Err: err}
		}
		reactions = append(reactions, &r)
	}
	return reactions, nil
}
