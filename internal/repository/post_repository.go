package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/d60-Lab/blog-api/internal/model"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// PostRepository 博文仓储接口
type PostRepository interface {
	// Create 创建博文，成功后回填 ID 与时间戳
	Create(ctx context.Context, post *model.Post) error

	// GetByID 根据 ID 查询博文（含作者）
	GetByID(ctx context.Context, id uint) (*model.Post, error)

	// Update 整体覆盖标题与内容
	Update(ctx context.Context, post *model.Post) error

	// Delete 删除博文
	Delete(ctx context.Context, id uint) error

	// Count 统计博文总数
	Count(ctx context.Context) (int64, error)

	// List 按 ID 升序分页查询
	List(ctx context.Context, offset, limit int) ([]*model.Post, error)

	// ListAll 按 ID 升序返回全部博文
	ListAll(ctx context.Context) ([]*model.Post, error)

	// ListByAuthorUsername 按作者用户名精确匹配（区分大小写）
	ListByAuthorUsername(ctx context.Context, username string) ([]*model.Post, error)

	// ListByAuthorID 查询某作者的全部博文
	ListByAuthorID(ctx context.Context, authorID uint) ([]*model.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(post).Error; err != nil {
		return errors.Wrap(err, "create post")
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).Preload("Author").Where("id = ?", id).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get post %d", id)
	}
	return &post, nil
}

func (r *postRepository) Update(ctx context.Context, post *model.Post) error {
	res := r.db.WithContext(ctx).
		Model(post).
		Select("title", "content", "updated_at").
		Updates(post)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update post %d", post.ID)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Post{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete post %d", id)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Post{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "count posts")
	}
	return count, nil
}

func (r *postRepository) List(ctx context.Context, offset, limit int) ([]*model.Post, error) {
	var posts []*model.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, errors.Wrap(err, "list posts")
	}
	return posts, nil
}

func (r *postRepository) ListAll(ctx context.Context) ([]*model.Post, error) {
	var posts []*model.Post
	if err := r.db.WithContext(ctx).Preload("Author").Order("id ASC").Find(&posts).Error; err != nil {
		return nil, errors.Wrap(err, "list all posts")
	}
	return posts, nil
}

func (r *postRepository) ListByAuthorUsername(ctx context.Context, username string) ([]*model.Post, error) {
	var posts []*model.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Joins("JOIN users ON users.id = posts.author_id").
		Where("users.username = ?", username).
		Order("posts.id ASC").
		Find(&posts).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list posts for %q", username)
	}
	return posts, nil
}

func (r *postRepository) ListByAuthorID(ctx context.Context, authorID uint) ([]*model.Post, error) {
	var posts []*model.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("author_id = ?", authorID).
		Order("id ASC").
		Find(&posts).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list posts of author %d", authorID)
	}
	return posts, nil
}
