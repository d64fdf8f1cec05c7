package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
	"gorm.io/datatypes"

	"github.com/sociallink/backend/internal/models"
)

// UserCache mirrors user profiles in users:{id} hashes, ranked in the user set by uId
type UserCache struct {
	*Cache
}

// NewUserCache creates a user cache on c
func NewUserCache(c *Cache) *UserCache {
	return &UserCache{Cache: c.named("userCache")}
}

// Save stores user under key and indexes it by its numeric uId
func (uc *UserCache) Save(ctx context.Context, key, uID string, user *models.User) error {
	ctx, end := uc.span(ctx, "user.save")
	defer end()

	score, err := strconv.ParseInt(uID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid uId %q: %w", uID, err)
	}

	fields, err := encodeUser(user)
	if err != nil {
		return err
	}

	_, err = uc.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, userIndexKey, &redis.Z{Score: float64(score), Member: key})
		pipe.HSet(ctx, userKey(key), fields)
		return nil
	})
	if err != nil {
		return uc.fail("user.save", err)
	}
	return nil
}

// Get returns the cached user, or nil when the user is not cached
func (uc *UserCache) Get(ctx context.Context, userID string) (*models.User, error) {
	ctx, end := uc.span(ctx, "user.get")
	defer end()

	values, err := uc.client.HGetAll(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, uc.fail("user.get", err)
	}

	user, err := decodeUser(userKey(userID), values)
	if err != nil {
		return nil, uc.fail("user.get", err)
	}
	return user, nil
}

// Count returns the number of cached users
func (uc *UserCache) Count(ctx context.Context) (int64, error) {
	n, err := uc.client.ZCard(ctx, userIndexKey).Result()
	if err != nil {
		return 0, uc.fail("user.count", err)
	}
	return n, nil
}

func encodeUser(u *models.User) (map[string]interface{}, error) {
	w := newFieldWriter()
	w.String("_id", u.ID)
	w.String("authId", u.AuthID)
	w.String("uId", u.UID)
	w.String("username", u.Username)
	w.String("email", u.Email)
	w.String("avatarColor", u.AvatarColor)
	w.Time("createdAt", u.CreatedAt)
	w.Int("postsCount", u.PostsCount)
	w.Record("blocked", []string(u.Blocked))
	w.Record("blockedBy", []string(u.BlockedBy))
	w.String("profilePicture", u.ProfilePicture)
	w.Int("followersCount", u.FollowersCount)
	w.Int("followingCount", u.FollowingCount)
	w.Record("notifications", u.Notifications.Data())
	w.Record("social", u.Social.Data())
	w.String("work", u.Work)
	w.String("location", u.Location)
	w.String("school", u.School)
	w.String("quote", u.Quote)
	w.String("bgImageVersion", u.BgImageVersion)
	w.String("bgImageId", u.BgImageID)
	return w.Fields()
}

func decodeUser(key string, values map[string]string) (*models.User, error) {
	if values["_id"] == "" {
		return nil, nil
	}

	r := newFieldReader(key, values)

	var (
		blocked       []string
		blockedBy     []string
		notifications models.NotificationSettings
		social        models.SocialLinks
	)
	r.Record("blocked", &blocked)
	r.Record("blockedBy", &blockedBy)
	r.Record("notifications", &notifications)
	r.Record("social", &social)

	u := &models.User{
		ID:             r.String("_id"),
		AuthID:         r.String("authId"),
		UID:            r.String("uId"),
		Username:       r.String("username"),
		Email:          r.String("email"),
		AvatarColor:    r.String("avatarColor"),
		CreatedAt:      r.Time("createdAt"),
		PostsCount:     r.Int("postsCount"),
		Blocked:        datatypes.JSONSlice[string](blocked),
		BlockedBy:      datatypes.JSONSlice[string](blockedBy),
		ProfilePicture: r.String("profilePicture"),
		FollowersCount: r.Int("followersCount"),
		FollowingCount: r.Int("followingCount"),
		Notifications:  datatypes.NewJSONType(notifications),
		Social:         datatypes.NewJSONType(social),
		Work:           r.String("work"),
		Location:       r.String("location"),
		School:         r.String("school"),
		Quote:          r.String("quote"),
		BgImageVersion: r.String("bgImageVersion"),
		BgImageID:      r.String("bgImageId"),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return u, nil
}
