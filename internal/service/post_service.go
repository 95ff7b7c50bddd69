package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/d60-Lab/blog-api/internal/cache"
	"github.com/d60-Lab/blog-api/internal/model"
	"github.com/d60-Lab/blog-api/internal/pagination"
	"github.com/d60-Lab/blog-api/internal/permission"
	"github.com/d60-Lab/blog-api/internal/repository"
	"github.com/d60-Lab/blog-api/pkg/logger"
)

// PostPage 一页博文
type PostPage struct {
	Window pagination.Window
	Posts  []*model.Post
}

// PostService 博文服务
type PostService interface {
	// List 按 ID 升序分页
	List(ctx context.Context, params pagination.Params) (*PostPage, error)
	// Create 以 actor 为作者创建博文
	Create(ctx context.Context, actor *model.User, title, content string) (*model.Post, error)
	Get(ctx context.Context, id uint) (*model.Post, error)
	// GetForWrite 加载博文并执行对象级权限检查
	GetForWrite(ctx context.Context, actor *model.User, id uint, action permission.Action) (*model.Post, error)
	// Save 持久化 GetForWrite 返回并修改过的博文
	Save(ctx context.Context, post *model.Post) (*model.Post, error)
	Delete(ctx context.Context, actor *model.User, id uint) error
	// ListForAuthor username 为空时返回全部博文，不分页
	ListForAuthor(ctx context.Context, actor *model.User, username string) ([]*model.Post, error)
}

type postService struct {
	postRepo  repository.PostRepository
	paginator *pagination.Paginator
	cache     *cache.PostListCache
	policy    permission.Policy
}

// NewPostService listCache 可为 nil
func NewPostService(postRepo repository.PostRepository, paginator *pagination.Paginator, listCache *cache.PostListCache) PostService {
	return &postService{
		postRepo:  postRepo,
		paginator: paginator,
		cache:     listCache,
		policy:    permission.AuthorOrReadOnly,
	}
}

func (s *postService) List(ctx context.Context, params pagination.Params) (*PostPage, error) {
	gen := s.generation(ctx)

	count, err := s.count(ctx, gen)
	if err != nil {
		return nil, err
	}
	w, err := s.paginator.Window(params, count)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && gen >= 0 {
		if posts, ok := s.cache.Page(ctx, gen, w.Offset(), w.Size); ok {
			return &PostPage{Window: w, Posts: posts}, nil
		}
	}
	posts, err := s.postRepo.List(ctx, w.Offset(), w.Size)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && gen >= 0 {
		if err := s.cache.SetPage(ctx, gen, w.Offset(), w.Size, posts); err != nil {
			logger.Warn("cache post page failed", zap.Error(err))
		}
	}
	return &PostPage{Window: w, Posts: posts}, nil
}

// generation 返回 -1 表示本次请求绕过缓存
func (s *postService) generation(ctx context.Context) int64 {
	if s.cache == nil {
		return -1
	}
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		logger.Warn("read cache generation failed", zap.Error(err))
		return -1
	}
	return gen
}

func (s *postService) count(ctx context.Context, gen int64) (int64, error) {
	if s.cache != nil && gen >= 0 {
		if n, ok := s.cache.Count(ctx, gen); ok {
			return n, nil
		}
	}
	n, err := s.postRepo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if s.cache != nil && gen >= 0 {
		if err := s.cache.SetCount(ctx, gen, n); err != nil {
			logger.Warn("cache post count failed", zap.Error(err))
		}
	}
	return n, nil
}

func (s *postService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.Warn("invalidate post cache failed", zap.Error(err))
	}
}

func (s *postService) Create(ctx context.Context, actor *model.User, title, content string) (*model.Post, error) {
	if err := permission.Check(permission.AuthenticatedOrReadOnly, actor, permission.ActionCreate, nil); err != nil {
		return nil, err
	}
	post := &model.Post{Title: title, Content: content, AuthorID: actor.ID}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	post.Author = *actor
	s.invalidate(ctx)
	logger.Info("post created", zap.Uint("post_id", post.ID), zap.Uint("author_id", actor.ID))
	return post, nil
}

func (s *postService) Get(ctx context.Context, id uint) (*model.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	return post, err
}

func (s *postService) GetForWrite(ctx context.Context, actor *model.User, id uint, action permission.Action) (*model.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := permission.Check(s.policy, actor, action, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) Save(ctx context.Context, post *model.Post) (*model.Post, error) {
	err := s.postRepo.Update(ctx, post)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return post, nil
}

func (s *postService) Delete(ctx context.Context, actor *model.User, id uint) error {
	if _, err := s.GetForWrite(ctx, actor, id, permission.ActionDelete); err != nil {
		return err
	}
	err := s.postRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPostNotFound
	}
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	logger.Info("post deleted", zap.Uint("post_id", id), zap.Uint("actor_id", actor.ID))
	return nil
}

func (s *postService) ListForAuthor(ctx context.Context, actor *model.User, username string) ([]*model.Post, error) {
	if err := permission.Check(permission.IsAuthenticated, actor, permission.ActionList, nil); err != nil {
		return nil, err
	}
	if username == "" {
		return s.postRepo.ListAll(ctx)
	}
	return s.postRepo.ListByAuthorUsername(ctx, username)
}
