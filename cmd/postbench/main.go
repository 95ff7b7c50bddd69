package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/blog-api/config"
	"github.com/d60-Lab/blog-api/internal/cache"
	"github.com/d60-Lab/blog-api/internal/model"
	"github.com/d60-Lab/blog-api/internal/pagination"
	"github.com/d60-Lab/blog-api/internal/repository"
	"github.com/d60-Lab/blog-api/internal/service"
	"github.com/d60-Lab/blog-api/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	ctx := context.Background()

	USERS := envInt("USERS", 100)
	POSTS := envInt("POSTS", 10000)
	REQUESTS := envInt("REQUESTS", 2000)

	// seed users and posts
	_ = db.Exec("DELETE FROM posts").Error
	_ = db.Exec("DELETE FROM users").Error
	users := make([]model.User, USERS)
	for i := range users {
		users[i] = model.User{Username: fmt.Sprintf("%s_%d", gofakeit.Username(), i), Email: fmt.Sprintf("u%d@example.com", i), Password: "p"}
	}
	if err := db.CreateInBatches(&users, 500).Error; err != nil {
		panic(err)
	}
	posts := make([]model.Post, POSTS)
	for i := range posts {
		posts[i] = model.Post{Title: gofakeit.Sentence(5), Content: gofakeit.Sentence(30), AuthorID: users[i%USERS].ID}
	}
	if err := db.Omit("Author").CreateInBatches(&posts, 500).Error; err != nil {
		panic(err)
	}

	paginator := pagination.New(cfg.Pagination)
	postRepo := repository.NewPostRepository(db)
	numPages := (POSTS + cfg.Pagination.PageSize - 1) / cfg.Pagination.PageSize

	run := func(name string, svc service.PostService) {
		lat := make([]time.Duration, 0, REQUESTS)
		t0 := time.Now()
		for i := 0; i < REQUESTS; i++ {
			// 热点集中在前几页
			page := 1 + int(math.Abs(rand.NormFloat64())*5)%numPages
			params := paginator.Params(url.Values{"page": {strconv.Itoa(page)}})
			st := time.Now()
			if _, err := svc.List(ctx, params); err != nil {
				fmt.Printf("%s: list page %d: %v\n", name, page, err)
				return
			}
			lat = append(lat, time.Since(st))
		}
		total := time.Since(t0)
		fmt.Printf("%s: total=%v per req=%v p50=%v p95=%v p99=%v\n",
			name, total, total/time.Duration(REQUESTS), pct(lat, 0.50), pct(lat, 0.95), pct(lat, 0.99))
	}

	fmt.Printf("USERS=%d POSTS=%d REQUESTS=%d PAGE_SIZE=%d\n", USERS, POSTS, REQUESTS, cfg.Pagination.PageSize)
	run("no-cache", service.NewPostService(postRepo, paginator, nil))

	if cfg.Redis.Addr == "" {
		fmt.Println("redis.addr not set, skip cached run")
		return
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer client.Close()
	listCache := cache.NewPostListCache(client, cfg.Redis.TTL)
	_ = listCache.Invalidate(ctx)
	run("redis-cache", service.NewPostService(postRepo, paginator, listCache))
}
