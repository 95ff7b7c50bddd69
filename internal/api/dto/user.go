package dto

import (
	"strings"

	"github.com/d60-Lab/blog-api/internal/model"
)

type SignUpRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email,max=254"`
	Username string `json:"username" form:"username" binding:"required,max=150"`
	Password string `json:"password" form:"password" binding:"required,min=8"`
}

// Normalize 密码保持原样
func (r *SignUpRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Username = strings.TrimSpace(r.Username)
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

func (r *LoginRequest) Normalize() { r.Email = strings.TrimSpace(r.Email) }

type RefreshRequest struct {
	Refresh string `json:"refresh" form:"refresh" binding:"required"`
}

func (r *RefreshRequest) Normalize() { r.Refresh = strings.TrimSpace(r.Refresh) }

type UserResponse struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Username: u.Username}
}

// CurrentUserResponse 当前用户及其博文
type CurrentUserResponse struct {
	UserResponse
	Posts []PostResponse `json:"posts"`
}

func NewCurrentUserResponse(u *model.User, posts []*model.Post) CurrentUserResponse {
	return CurrentUserResponse{UserResponse: NewUserResponse(u), Posts: NewPostResponses(posts)}
}
