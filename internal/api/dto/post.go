package dto

import (
	"strings"
	"time"

	"github.com/d60-Lab/blog-api/internal/model"
)

// PostRequest 创建/更新博文的请求体；作者由服务端写入，不接受客户端传入
type PostRequest struct {
	Title   string  `json:"title" form:"title" binding:"required,max=255"`
	Content *string `json:"content" form:"content" binding:"required"`
}

// Normalize 去掉首尾空白，纯空白标题按空值校验
func (r *PostRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	if r.Content != nil {
		trimmed := strings.TrimSpace(*r.Content)
		r.Content = &trimmed
	}
}

// Apply 将请求写入 post（整体覆盖）
func (r *PostRequest) Apply(post *model.Post) {
	post.Title = r.Title
	if r.Content != nil {
		post.Content = *r.Content
	}
}

// PostResponse 博文表示
type PostResponse struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Author         uint      `json:"author"`
	AuthorUsername string    `json:"author_username"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewPostResponse(p *model.Post) PostResponse {
	return PostResponse{
		ID:             p.ID,
		Title:          p.Title,
		Content:        p.Content,
		Author:         p.AuthorID,
		AuthorUsername: p.Author.Username,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func NewPostResponses(posts []*model.Post) []PostResponse {
	res := make([]PostResponse, len(posts))
	for i, p := range posts {
		res[i] = NewPostResponse(p)
	}
	return res
}
