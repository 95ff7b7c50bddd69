package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blog-api/internal/api/dto"
	"github.com/d60-Lab/blog-api/internal/api/middleware"
	"github.com/d60-Lab/blog-api/internal/pagination"
	"github.com/d60-Lab/blog-api/internal/permission"
	"github.com/d60-Lab/blog-api/internal/service"
	"github.com/d60-Lab/blog-api/pkg/response"
)

// ListPosts 分页查询博文
// @Summary 博文列表
// @Description 按 ID 升序分页返回全部博文
// @Tags 博文
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(3)
// @Success 200 {object} pagination.Envelope[dto.PostResponse]
// @Failure 404 {object} response.ErrorBody
// @Router /posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	page, err := h.postService.List(c.Request.Context(), h.paginator.Params(c.Request.URL.Query()))
	if err != nil {
		handleError(c, err)
		return
	}
	u := pagination.RequestURL(c.Request, h.fromTrustedProxy(c))
	response.Success(c, pagination.NewEnvelope(h.paginator, u, page.Window, dto.NewPostResponses(page.Posts)))
}

// CreatePost 创建博文
// @Summary 创建博文
// @Description 作者为当前登录用户，请求中的 author 字段被忽略
// @Tags 博文
// @Accept json,x-www-form-urlencoded,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body dto.PostRequest true "博文内容"
// @Success 201 {object} dto.PostResponse
// @Failure 400 {object} map[string][]string
// @Failure 401 {object} response.ErrorBody
// @Router /posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req dto.PostRequest
	if !bind(c, &req) {
		return
	}
	post, err := h.postService.Create(c.Request.Context(), middleware.CurrentUser(c), req.Title, *req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, dto.NewPostResponse(post))
}

// GetPost 查询单篇博文
// @Summary 博文详情
// @Tags 博文
// @Produce json
// @Param id path int true "博文ID"
// @Success 200 {object} dto.PostResponse
// @Failure 404 {object} response.ErrorBody
// @Router /posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	post, err := h.postService.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.NewPostResponse(post))
}

// UpdatePost 整体更新博文，仅作者可操作
// @Summary 更新博文
// @Tags 博文
// @Accept json,x-www-form-urlencoded,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path int true "博文ID"
// @Param request body dto.PostRequest true "博文内容"
// @Success 200 {object} dto.PostResponse
// @Failure 400 {object} map[string][]string
// @Failure 401 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /posts/{id} [put]
func (h *Handler) UpdatePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	// 先确认存在与权限，再校验请求体
	post, err := h.postService.GetForWrite(c.Request.Context(), middleware.CurrentUser(c), id, permission.ActionUpdate)
	if err != nil {
		handleError(c, err)
		return
	}
	var req dto.PostRequest
	if !bind(c, &req) {
		return
	}
	req.Apply(post)
	post, err = h.postService.Save(c.Request.Context(), post)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.NewPostResponse(post))
}

// DeletePost 删除博文，仅作者可操作
// @Summary 删除博文
// @Tags 博文
// @Security BearerAuth
// @Param id path int true "博文ID"
// @Success 204
// @Failure 401 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /posts/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	if err := h.postService.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}

// ListPostsForAuthor 按作者用户名过滤，不分页
// @Summary 按作者查询博文
// @Description 不带 username 时返回全部博文
// @Tags 博文
// @Produce json
// @Security BearerAuth
// @Param username query string false "作者用户名（精确匹配）"
// @Success 200 {array} dto.PostResponse
// @Failure 401 {object} response.ErrorBody
// @Router /posts_for [get]
func (h *Handler) ListPostsForAuthor(c *gin.Context) {
	posts, err := h.postService.ListForAuthor(c.Request.Context(), middleware.CurrentUser(c), c.Query("username"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.NewPostResponses(posts))
}

// postID 解析路径参数，非法 ID 视为不存在
func postID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		handleError(c, service.ErrPostNotFound)
		return 0, false
	}
	return uint(id), true
}
