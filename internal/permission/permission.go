// Package permission 定义请求级与对象级的访问策略。
//
// 策略是纯函数：给定当前用户（匿名为 nil）、动作与目标博文，返回是否放行。
// 视图级检查时 post 为 nil，对象级检查时 post 为已加载的博文。
package permission

import (
	"errors"

	"github.com/d60-Lab/blog-api/internal/model"
)

var (
	ErrNotAuthenticated = errors.New("authentication credentials were not provided")
	ErrPermissionDenied = errors.New("you do not have permission to perform this action")
)

// Action 对博文资源的操作
type Action int

const (
	ActionList Action = iota + 1
	ActionRetrieve
	ActionCreate
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionList:
		return "list"
	case ActionRetrieve:
		return "retrieve"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	}
	return "unknown"
}

// IsSafe 只读动作
func (a Action) IsSafe() bool { return a == ActionList || a == ActionRetrieve }

// Policy 访问策略
type Policy func(actor *model.User, action Action, post *model.Post) bool

// AllowAny 全部放行
func AllowAny(*model.User, Action, *model.Post) bool { return true }

// ReadOnly 仅放行只读动作
func ReadOnly(_ *model.User, action Action, _ *model.Post) bool { return action.IsSafe() }

// IsAuthenticated 要求已登录
func IsAuthenticated(actor *model.User, _ Action, _ *model.Post) bool { return actor != nil }

// AuthenticatedOrReadOnly 读放行，写要求已登录
func AuthenticatedOrReadOnly(actor *model.User, action Action, _ *model.Post) bool {
	return action.IsSafe() || actor != nil
}

// AuthorOrReadOnly 读放行，写仅限作者；视图级（post 为 nil）不拦截
func AuthorOrReadOnly(actor *model.User, action Action, post *model.Post) bool {
	if action.IsSafe() || post == nil {
		return true
	}
	return post.IsAuthoredBy(actor)
}

// All 组合多个策略，全部通过才放行
func All(policies ...Policy) Policy {
	return func(actor *model.User, action Action, post *model.Post) bool {
		for _, p := range policies {
			if !p(actor, action, post) {
				return false
			}
		}
		return true
	}
}

// Check 执行策略；拒绝匿名用户返回 ErrNotAuthenticated，拒绝已登录用户返回 ErrPermissionDenied
func Check(p Policy, actor *model.User, action Action, post *model.Post) error {
	if p(actor, action, post) {
		return nil
	}
	if actor == nil {
		return ErrNotAuthenticated
	}
	return ErrPermissionDenied
}
