package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/blog-api/internal/model"
)

const generationKey = "posts:gen"

// PostListCache 缓存列表页与总数。每次写操作递增代号，旧代号的 key 自然过期。
type PostListCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPostListCache(client *redis.Client, ttl time.Duration) *PostListCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &PostListCache{client: client, ttl: ttl}
}

// Generation 当前代号，key 不存在时为 0
func (c *PostListCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// Invalidate 使所有已缓存的列表页失效
func (c *PostListCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}

func countKey(gen int64) string { return fmt.Sprintf("posts:%d:count", gen) }

func pageKey(gen int64, offset, limit int) string {
	return fmt.Sprintf("posts:%d:page:%d:%d", gen, offset, limit)
}

// Count 命中返回 (count, true)
func (c *PostListCache) Count(ctx context.Context, gen int64) (int64, bool) {
	n, err := c.client.Get(ctx, countKey(gen)).Int64()
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c *PostListCache) SetCount(ctx context.Context, gen, count int64) error {
	return c.client.Set(ctx, countKey(gen), count, c.ttl).Err()
}

// Page 命中返回 (posts, true)
func (c *PostListCache) Page(ctx context.Context, gen int64, offset, limit int) ([]*model.Post, bool) {
	data, err := c.client.Get(ctx, pageKey(gen, offset, limit)).Bytes()
	if err != nil {
		return nil, false
	}
	var posts []*model.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, false
	}
	return posts, true
}

func (c *PostListCache) SetPage(ctx context.Context, gen int64, offset, limit int, posts []*model.Post) error {
	payload, err := json.Marshal(posts)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, pageKey(gen, offset, limit), payload, c.ttl).Err()
}
