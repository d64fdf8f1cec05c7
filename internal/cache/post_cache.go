package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/sociallink/backend/internal/models"
)

// PostCache mirrors posts in posts:{id} hashes. The post sorted set ranks post ids by
// the author's uId, so a user's posts share one score.
type PostCache struct {
	*Cache
}

// NewPostCache creates a post cache on c
func NewPostCache(c *Cache) *PostCache {
	return &PostCache{Cache: c.named("postCache")}
}

// SavePostInput holds the arguments of PostCache.Save
type SavePostInput struct {
	Key           string
	CurrentUserID string
	UID           string
	Post          *models.Post
}

// Save stores a new post, indexes it and increments the author's postsCount in one
// MULTI block
func (pc *PostCache) Save(ctx context.Context, in SavePostInput) error {
	ctx, end := pc.span(ctx, "post.save")
	defer end()

	score, err := strconv.ParseInt(in.UID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid uId %q: %w", in.UID, err)
	}

	fields, err := encodePost(in.Post)
	if err != nil {
		return err
	}

	_, err = pc.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		indexPost(ctx, pipe, in.Key, score, fields)
		pipe.HIncrBy(ctx, userKey(in.CurrentUserID), "postsCount", 1)
		return nil
	})
	if err != nil {
		return pc.fail("post.save", err)
	}
	return nil
}

// PostSource loads posts that are missing from the cache
type PostSource interface {
	Get(ctx context.Context, postID string) (*models.Post, error)
	AuthorUID(ctx context.Context, userID string) (string, error)
}

// Warm copies a post that only src holds into the cache and indexes it under its
// author's uId. Fields already in the hash are kept, reactions seeds an empty
// reaction list and the author's postsCount is left alone. It reports false when src
// does not hold the post.
func (pc *PostCache) Warm(ctx context.Context, src PostSource, postID string, reactions []*models.Reaction) (bool, error) {
	ctx, end := pc.span(ctx, "post.warm")
	defer end()

	stored, err := src.Get(ctx, postID)
	if err != nil || stored == nil {
		return false, err
	}
	uid, err := src.AuthorUID(ctx, stored.UserID)
	if err != nil {
		return false, err
	}
	score, err := strconv.ParseInt(uid, 10, 64)
	if err != nil {
		return false, fmt.Errorf("invalid uId %q of user %s: %w", uid, stored.UserID, err)
	}

	post := *stored
	if post.Reactions == nil {
		post.Reactions = models.NewReactions()
	}
	fields, err := encodePost(&post)
	if err != nil {
		return false, err
	}
	raws := make([]interface{}, 0, len(reactions))
	for _, r := range reactions {
		raw, err := encodeRecord(r)
		if err != nil {
			return false, err
		}
		raws = append(raws, raw)
	}

	err = pc.watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGetAll(ctx, postKey(postID)).Result()
		if err != nil {
			return err
		}
		if current["_id"] != "" {
			return nil
		}
		listed, err := tx.Exists(ctx, reactionsKey(postID)).Result()
		if err != nil {
			return err
		}

		// counters written before the post was cached are newer than the store's
		missing := make(map[string]interface{}, len(fields))
		for name, v := range fields {
			if _, ok := current[name]; !ok {
				missing[name] = v
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			indexPost(ctx, pipe, postID, score, missing)
			if listed == 0 && len(raws) > 0 {
				pipe.RPush(ctx, reactionsKey(postID), raws...)
			}
			return nil
		})
		return err
	}, postKey(postID), reactionsKey(postID))
	if err != nil {
		return false, pc.fail("post.warm", err)
	}
	return true, nil
}

func indexPost(ctx context.Context, pipe redis.Pipeliner, postID string, score int64, fields map[string]interface{}) {
	pipe.ZAdd(ctx, postIndexKey, &redis.Z{Score: float64(score), Member: postID})
	if len(fields) > 0 {
		pipe.HSet(ctx, postKey(postID), fields)
	}
}

// Get returns the cached post, or nil when it is not cached
func (pc *PostCache) Get(ctx context.Context, postID string) (*models.Post, error) {
	ctx, end := pc.span(ctx, "post.get")
	defer end()

	values, err := pc.client.HGetAll(ctx, postKey(postID)).Result()
	if err != nil {
		return nil, pc.fail("post.get", err)
	}

	post, err := decodePost(postKey(postID), values)
	if err != nil {
		return nil, pc.fail("post.get", err)
	}
	return post, nil
}

// GetRange returns the posts ranked start..end (inclusive) in descending score order.
// Index members whose hash is gone are skipped.
func (pc *PostCache) GetRange(ctx context.Context, start, stop int64) ([]*models.Post, error) {
	ctx, end := pc.span(ctx, "post.get_range")
	defer end()

	ids, err := pc.client.ZRevRange(ctx, postIndexKey, start, stop).Result()
	if err != nil {
		return nil, pc.fail("post.get_range", err)
	}
	return pc.load(ctx, "post.get_range", ids)
}

// GetRangeWithImages is GetRange restricted to posts carrying an image or a gif
func (pc *PostCache) GetRangeWithImages(ctx context.Context, start, stop int64) ([]*models.Post, error) {
	posts, err := pc.GetRange(ctx, start, stop)
	if err != nil {
		return nil, err
	}

	withMedia := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		if p.HasMedia() {
			withMedia = append(withMedia, p)
		}
	}
	return withMedia, nil
}

// Count returns the number of indexed posts
func (pc *PostCache) Count(ctx context.Context) (int64, error) {
	n, err := pc.client.ZCard(ctx, postIndexKey).Result()
	if err != nil {
		return 0, pc.fail("post.count", err)
	}
	return n, nil
}

// CountWithImages returns the number of indexed posts carrying an image or a gif
func (pc *PostCache) CountWithImages(ctx context.Context) (int64, error) {
	ctx, end := pc.span(ctx, "post.count_with_images")
	defer end()

	ids, err := pc.client.ZRange(ctx, postIndexKey, 0, -1).Result()
	if err != nil {
		return 0, pc.fail("post.count_with_images", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	cmds := make([]*redis.SliceCmd, len(ids))
	_, err = pc.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HMGet(ctx, postKey(id), "imgId", "imgVersion", "gifUrl")
		}
		return nil
	})
	if err != nil {
		return 0, pc.fail("post.count_with_images", err)
	}

	var n int64
	for _, cmd := range cmds {
		media := make([]string, 3)
		for i, v := range cmd.Val() {
			media[i], _ = v.(string)
		}
		p := models.Post{ImgID: media[0], ImgVersion: media[1], GifURL: media[2]}
		if p.HasMedia() {
			n++
		}
	}
	return n, nil
}

// GetUserPosts returns every cached post of the author with the given uId
func (pc *PostCache) GetUserPosts(ctx context.Context, uID int64) ([]*models.Post, error) {
	ctx, end := pc.span(ctx, "post.get_user_posts")
	defer end()

	score := strconv.FormatInt(uID, 10)
	ids, err := pc.client.ZRevRangeByScore(ctx, postIndexKey, &redis.ZRangeBy{Min: score, Max: score}).Result()
	if err != nil {
		return nil, pc.fail("post.get_user_posts", err)
	}
	return pc.load(ctx, "post.get_user_posts", ids)
}

// CountUserPosts returns the number of cached posts of the author with the given uId
func (pc *PostCache) CountUserPosts(ctx context.Context, uID int64) (int64, error) {
	score := strconv.FormatInt(uID, 10)
	n, err := pc.client.ZCount(ctx, postIndexKey, score, score).Result()
	if err != nil {
		return 0, pc.fail("post.count_user_posts", err)
	}
	return n, nil
}

// Delete removes the post with its comment and reaction lists. The owner's postsCount
// is decremented only by the call that removed the index entry, so repeated deletes
// are no-ops.
func (pc *PostCache) Delete(ctx context.Context, postID, currentUserID string) error {
	ctx, end := pc.span(ctx, "post.delete")
	defer end()

	err := pc.watch(ctx, func(tx *redis.Tx) error {
		_, err := tx.ZScore(ctx, postIndexKey, postID).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}

		count, err := tx.HGet(ctx, userKey(currentUserID), "postsCount").Int()
		if err != nil && err != redis.Nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZRem(ctx, postIndexKey, postID)
			pipe.Del(ctx, postKey(postID), commentsKey(postID), reactionsKey(postID))
			if count > 0 {
				pipe.HIncrBy(ctx, userKey(currentUserID), "postsCount", -1)
			}
			return nil
		})
		return err
	}, postKey(postID), userKey(currentUserID))
	if err != nil {
		return pc.fail("post.delete", err)
	}
	return nil
}

// Update merges the non-nil fields of update into the cached post and returns the
// full post. It returns ErrNotFound when the post is not cached.
func (pc *PostCache) Update(ctx context.Context, postID string, update models.PostUpdate) (*models.Post, error) {
	ctx, end := pc.span(ctx, "post.update")
	defer end()

	fields := updateFields(update)

	var values map[string]string
	err := pc.watch(ctx, func(tx *redis.Tx) error {
		// a hash holding only counters is not a cached post
		ok, err := tx.HExists(ctx, postKey(postID), "_id").Result()
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		var all *redis.StringStringMapCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(fields) > 0 {
				pipe.HSet(ctx, postKey(postID), fields)
			}
			all = pipe.HGetAll(ctx, postKey(postID))
			return nil
		})
		if err != nil {
			return err
		}
		values = all.Val()
		return nil
	}, postKey(postID))
	if err != nil {
		return nil, pc.fail("post.update", err)
	}

	post, err := decodePost(postKey(postID), values)
	if err != nil {
		return nil, pc.fail("post.update", err)
	}
	if post == nil {
		return nil, ErrNotFound
	}
	return post, nil
}

func (pc *PostCache) load(ctx context.Context, op string, ids []string) ([]*models.Post, error) {
	if len(ids) == 0 {
		return []*models.Post{}, nil
	}

	cmds := make([]*redis.StringStringMapCmd, len(ids))
	_, err := pc.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, postKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, pc.fail(op, err)
	}

	posts := make([]*models.Post, 0, len(ids))
	for i, cmd := range cmds {
		post, err := decodePost(postKey(ids[i]), cmd.Val())
		if err != nil {
			return nil, pc.fail(op, err)
		}
		if post == nil {
			pc.logger.Debug("Skipping indexed post without hash", zap.String("post_id", ids[i]))
			continue
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func updateFields(u models.PostUpdate) map[string]interface{} {
	fields := make(map[string]interface{})
	set := func(name string, v *string) {
		if v != nil {
			fields[name] = *v
		}
	}
	set("post", u.Body)
	set("bgColor", u.BgColor)
	set("feelings", u.Feelings)
	set("privacy", u.Privacy)
	set("gifUrl", u.GifURL)
	set("profilePicture", u.ProfilePicture)
	set("imgVersion", u.ImgVersion)
	set("imgId", u.ImgID)
	return fields
}

func encodePost(p *models.Post) (map[string]interface{}, error) {
	w := newFieldWriter()
	w.String("_id", p.ID)
	w.String("userId", p.UserID)
	w.String("username", p.Username)
	w.String("email", p.Email)
	w.String("avatarColor", p.AvatarColor)
	w.String("profilePicture", p.ProfilePicture)
	w.String("post", p.Body)
	w.String("bgColor", p.BgColor)
	w.String("feelings", p.Feelings)
	w.String("privacy", p.Privacy)
	w.String("gifUrl", p.GifURL)
	w.Int("commentsCount", p.CommentsCount)
	w.Record("reactions", p.Reactions)
	w.String("imgVersion", p.ImgVersion)
	w.String("imgId", p.ImgID)
	w.Time("createdAt", p.CreatedAt)
	return w.Fields()
}

func decodePost(key string, values map[string]string) (*models.Post, error) {
	if values["_id"] == "" {
		return nil, nil
	}

	r := newFieldReader(key, values)

	var reactions models.Reactions
	r.Record("reactions", &reactions)

	p := &models.Post{
		ID:             r.String("_id"),
		UserID:         r.String("userId"),
		Username:       r.String("username"),
		Email:          r.String("email"),
		AvatarColor:    r.String("avatarColor"),
		ProfilePicture: r.String("profilePicture"),
		Body:           r.String("post"),
		BgColor:        r.String("bgColor"),
		Feelings:       r.String("feelings"),
		Privacy:        r.String("privacy"),
		GifURL:         r.String("gifUrl"),
		CommentsCount:  r.Int("commentsCount"),
		Reactions:      reactions,
		ImgVersion:     r.String("imgVersion"),
		ImgID:          r.String("imgId"),
		CreatedAt:      r.Time("createdAt"),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return p, nil
}
