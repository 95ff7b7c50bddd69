package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blog-api/internal/api/dto"
	"github.com/d60-Lab/blog-api/internal/api/middleware"
	"github.com/d60-Lab/blog-api/pkg/response"
)

// SignUp 注册
// @Summary 注册
// @Tags 账户
// @Accept json,x-www-form-urlencoded,mpfd
// @Produce json
// @Param request body dto.SignUpRequest true "注册信息"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string][]string
// @Router /auth/signup [post]
func (h *Handler) SignUp(c *gin.Context) {
	var req dto.SignUpRequest
	verr, ok := bindFields(c, &req)
	if !ok {
		return
	}
	if !verr.Empty() {
		// 格式错误与占用错误一并返回
		if err := h.userService.CheckAvailable(c.Request.Context(), req.Email, req.Username, verr); err != nil {
			handleError(c, err)
			return
		}
		handleError(c, verr)
		return
	}
	user, err := h.userService.SignUp(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, gin.H{"message": "User Created Successfully", "data": dto.NewUserResponse(user)})
}

// Login 登录并签发令牌
// @Summary 登录
// @Tags 账户
// @Accept json,x-www-form-urlencoded,mpfd
// @Produce json
// @Param request body dto.LoginRequest true "登录信息"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} response.ErrorBody
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bind(c, &req) {
		return
	}
	tokens, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "Login Successful", "tokens": tokens})
}

// Refresh 用 refresh 令牌换取新的 access 令牌
// @Summary 刷新令牌
// @Tags 账户
// @Accept json,x-www-form-urlencoded,mpfd
// @Produce json
// @Param request body dto.RefreshRequest true "refresh 令牌"
// @Success 200 {object} map[string]string
// @Failure 401 {object} response.ErrorBody
// @Router /auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !bind(c, &req) {
		return
	}
	access, err := h.userService.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"access": access})
}

// CurrentUser 当前用户资料及其博文
// @Summary 当前用户
// @Tags 账户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.CurrentUserResponse
// @Failure 401 {object} response.ErrorBody
// @Router /current_user [get]
func (h *Handler) CurrentUser(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	posts, err := h.userService.Profile(c.Request.Context(), actor)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.NewCurrentUserResponse(actor, posts))
}
