package handler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/blog-api/config"
	"github.com/d60-Lab/blog-api/internal/api/middleware"
	"github.com/d60-Lab/blog-api/internal/pagination"
	"github.com/d60-Lab/blog-api/internal/service"
	"github.com/d60-Lab/blog-api/pkg/logger"
	"github.com/d60-Lab/blog-api/pkg/response"
)

// Pinger 健康检查依赖
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler 持有全部 HTTP 处理函数的依赖
type Handler struct {
	postService service.PostService
	userService service.UserService
	paginator   *pagination.Paginator
	db          Pinger

	// 只有来自这些地址的 X-Forwarded-Proto 才被采用
	trustedProxies []*net.IPNet
}

func NewHandler(cfg *config.Config, postService service.PostService, userService service.UserService, db Pinger) *Handler {
	registerJSONFieldNames()
	return &Handler{
		postService: postService,
		userService: userService,
		paginator:   pagination.New(cfg.Pagination),
		db:          db,

		trustedProxies: parseProxies(cfg.Server.TrustedProxies),
	}
}

// parseProxies 接受单个 IP 或 CIDR，非法项记录警告后跳过
func parseProxies(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, e := range entries {
		if !strings.Contains(e, "/") {
			ip := net.ParseIP(e)
			if ip == nil {
				logger.Warn("invalid trusted proxy", zap.String("proxy", e))
				continue
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(e)
		if err != nil {
			logger.Warn("invalid trusted proxy", zap.String("proxy", e), zap.Error(err))
			continue
		}
		nets = append(nets, n)
	}
	return nets
}

// fromTrustedProxy 直连对端是否为可信代理
func (h *Handler) fromTrustedProxy(c *gin.Context) bool {
	ip := net.ParseIP(c.RemoteIP())
	if ip == nil {
		return false
	}
	for _, n := range h.trustedProxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Health 健康检查
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} response.ErrorBody
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	if h.db != nil {
		if err := h.db.PingContext(c.Request.Context()); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, response.ErrorBody{Detail: "database unavailable"})
			return
		}
	}
	response.Success(c, gin.H{"status": "ok"})
}

// handleError 将领域错误映射为 HTTP 响应
func handleError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationFailed(c, verr.Fields)
	case errors.Is(err, service.ErrPostNotFound):
		response.NotFound(c, "No Post matches the given query.")
	case errors.Is(err, service.ErrInvalidPage):
		response.NotFound(c, "Invalid page.")
	case errors.Is(err, service.ErrNotAuthenticated):
		response.Unauthorized(c, middleware.MsgNotAuthenticated)
	case errors.Is(err, service.ErrPermissionDenied):
		response.Forbidden(c, middleware.MsgPermissionDenied)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, "No active account found with the given credentials")
	case errors.Is(err, service.ErrInvalidToken):
		response.Unauthorized(c, middleware.MsgInvalidToken)
	default:
		response.InternalError(c, err)
	}
}
