package cache

import (
	"context"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/sociallink/backend/internal/models"
)

// CommentCache keeps the comments of a post as JSON records in comments:{postId},
// newest first
type CommentCache struct {
	*Cache
}

// NewCommentCache creates a comment cache on c
func NewCommentCache(c *Cache) *CommentCache {
	return &CommentCache{Cache: c.named("commentCache")}
}

// Save pushes comment to the head of the post's list and increments commentsCount
func (cc *CommentCache) Save(ctx context.Context, postID string, comment *models.Comment) error {
	ctx, end := cc.span(ctx, "comment.save")
	defer end()

	raw, err := encodeRecord(comment)
	if err != nil {
		return err
	}

	_, err = cc.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, commentsKey(postID), raw)
		pipe.HIncrBy(ctx, postKey(postID), "commentsCount", 1)
		return nil
	})
	if err != nil {
		return cc.fail("comment.save", err)
	}
	return nil
}

// Get returns the comments of a post, newest first
func (cc *CommentCache) Get(ctx context.Context, postID string) ([]*models.Comment, error) {
	ctx, end := cc.span(ctx, "comment.get")
	defer end()

	items, err := cc.client.LRange(ctx, commentsKey(postID), 0, -1).Result()
	if err != nil {
		return nil, cc.fail("comment.get", err)
	}

	comments, _, err := decodeComments(commentsKey(postID), items)
	if err != nil {
		return nil, cc.fail("comment.get", err)
	}
	return comments, nil
}

// Names returns the number of comments on a post and their authors
func (cc *CommentCache) Names(ctx context.Context, postID string) (*models.CommentNameList, error) {
	comments, err := cc.Get(ctx, postID)
	if err != nil {
		return nil, err
	}

	list := &models.CommentNameList{Count: len(comments), Names: make([]string, 0, len(comments))}
	for _, c := range comments {
		list.Names = append(list.Names, c.Username)
	}
	return list, nil
}

// GetOne returns one comment of a post, or nil when it is not cached
func (cc *CommentCache) GetOne(ctx context.Context, postID, commentID string) (*models.Comment, error) {
	comments, err := cc.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		if c.ID == commentID {
			return c, nil
		}
	}
	return nil, nil
}

// Remove deletes a comment and decrements commentsCount. It returns the removed
// comment, or nil when there was nothing to remove.
func (cc *CommentCache) Remove(ctx context.Context, postID, commentID string) (*models.Comment, error) {
	ctx, end := cc.span(ctx, "comment.remove")
	defer end()

	var removed *models.Comment
	err := cc.watch(ctx, func(tx *redis.Tx) error {
		removed = nil

		items, err := tx.LRange(ctx, commentsKey(postID), 0, -1).Result()
		if err != nil {
			return err
		}
		comments, raws, err := decodeComments(commentsKey(postID), items)
		if err != nil {
			return err
		}

		idx := -1
		for i, c := range comments {
			if c.ID == commentID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil
		}

		count, err := tx.HGet(ctx, postKey(postID), "commentsCount").Int()
		if err != nil && err != redis.Nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LRem(ctx, commentsKey(postID), 1, raws[idx])
			if count > 0 {
				pipe.HIncrBy(ctx, postKey(postID), "commentsCount", -1)
			}
			return nil
		})
		if err != nil {
			return err
		}
		removed = comments[idx]
		return nil
	}, commentsKey(postID), postKey(postID))
	if err != nil {
		return nil, cc.fail("comment.remove", err)
	}
	return removed, nil
}

func decodeComments(key string, items []string) ([]*models.Comment, []string, error) {
	comments := make([]*models.Comment, 0, len(items))
	for i, item := range items {
		var c models.Comment
		if err := decodeRecord(item, &c); err != nil {
			return nil, nil, &DecodeError{Key: key, Field: strconv.Itoa(i), Err: err}
		}
		comments = append(comments, &c)
	}
	return comments, items, nil
}
