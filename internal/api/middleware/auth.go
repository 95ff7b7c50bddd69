package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blog-api/internal/model"
	"github.com/d60-Lab/blog-api/internal/permission"
	"github.com/d60-Lab/blog-api/internal/service"
	"github.com/d60-Lab/blog-api/pkg/response"
)

const actorKey = "actor"

const (
	MsgNotAuthenticated = "Authentication credentials were not provided."
	MsgPermissionDenied = "You do not have permission to perform this action."
	MsgInvalidToken     = "Given token not valid for any token type"
)

// Authenticate 解析 Bearer 令牌。没有 Authorization 头或不是 Bearer 方案时按匿名处理；
// Bearer 令牌无效时直接返回 401。
func Authenticate(users service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.Fields(header)
		if len(parts) == 0 || parts[0] != "Bearer" {
			c.Next()
			return
		}
		if len(parts) != 2 {
			response.Unauthorized(c, "Invalid Authorization header.")
			return
		}

		actor, err := users.Authenticate(c.Request.Context(), parts[1])
		if errors.Is(err, service.ErrInvalidToken) {
			response.Unauthorized(c, MsgInvalidToken)
			return
		}
		if err != nil {
			response.InternalError(c, err)
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// CurrentUser 当前请求的用户，匿名返回 nil
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	actor, _ := v.(*model.User)
	return actor
}

// Authorize 视图级权限检查
func Authorize(policy permission.Policy, action permission.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := permission.Check(policy, CurrentUser(c), action, nil)
		switch {
		case errors.Is(err, permission.ErrNotAuthenticated):
			response.Unauthorized(c, MsgNotAuthenticated)
		case errors.Is(err, permission.ErrPermissionDenied):
			response.Forbidden(c, MsgPermissionDenied)
		default:
			c.Next()
		}
	}
}
