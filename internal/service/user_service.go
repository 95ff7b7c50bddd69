package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/d60-Lab/blog-api/internal/auth"
	"github.com/d60-Lab/blog-api/internal/model"
	"github.com/d60-Lab/blog-api/internal/permission"
	"github.com/d60-Lab/blog-api/internal/repository"
	"github.com/d60-Lab/blog-api/pkg/logger"
)

// UserService 最小身份服务：注册、登录、令牌校验与当前用户资料
type UserService interface {
	SignUp(ctx context.Context, email, username, password string) (*model.User, error)
	// CheckAvailable 把邮箱、用户名的占用错误追加到 verr，已有错误的字段跳过
	CheckAvailable(ctx context.Context, email, username string, verr *ValidationError) error
	Login(ctx context.Context, email, password string) (*auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	// Authenticate 校验 access 令牌并加载用户
	Authenticate(ctx context.Context, accessToken string) (*model.User, error)
	// Profile 当前用户及其博文
	Profile(ctx context.Context, actor *model.User) ([]*model.Post, error)
}

type userService struct {
	userRepo repository.UserRepository
	postRepo repository.PostRepository
	tokens   *auth.TokenManager
}

func NewUserService(userRepo repository.UserRepository, postRepo repository.PostRepository, tokens *auth.TokenManager) UserService {
	return &userService{userRepo: userRepo, postRepo: postRepo, tokens: tokens}
}

func (s *userService) SignUp(ctx context.Context, email, username, password string) (*model.User, error) {
	verr := &ValidationError{}
	if err := s.CheckAvailable(ctx, email, username, verr); err != nil {
		return nil, err
	}
	if !verr.Empty() {
		return nil, verr
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{Email: email, Username: username, Password: hashed}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// 并发注册在唯一索引上冲突，按字段报告
		dup := &ValidationError{}
		if cerr := s.CheckAvailable(ctx, email, username, dup); cerr == nil && !dup.Empty() {
			return nil, dup
		}
		return nil, err
	}
	logger.Info("user signed up", zap.Uint("user_id", user.ID), zap.String("username", username))
	return user, nil
}

func (s *userService) CheckAvailable(ctx context.Context, email, username string, verr *ValidationError) error {
	if !verr.Has("email") {
		exists, err := s.userRepo.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if exists {
			verr.Add("email", "Email has already been used.")
		}
	}
	if !verr.Has("username") {
		exists, err := s.userRepo.ExistsByUsername(ctx, username)
		if err != nil {
			return err
		}
		if exists {
			verr.Add("username", "A user with that username already exists.")
		}
	}
	return nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*auth.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return s.tokens.IssuePair(user.ID)
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	user, err := s.userFromToken(ctx, refreshToken, auth.TokenRefresh)
	if err != nil {
		return "", err
	}
	return s.tokens.IssueAccess(user.ID)
}

func (s *userService) Authenticate(ctx context.Context, accessToken string) (*model.User, error) {
	return s.userFromToken(ctx, accessToken, auth.TokenAccess)
}

func (s *userService) userFromToken(ctx context.Context, token, tokenType string) (*model.User, error) {
	claims, err := s.tokens.Parse(token, tokenType)
	if err != nil {
		return nil, ErrInvalidToken
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	return user, err
}

func (s *userService) Profile(ctx context.Context, actor *model.User) ([]*model.Post, error) {
	if err := permission.Check(permission.IsAuthenticated, actor, permission.ActionList, nil); err != nil {
		return nil, err
	}
	return s.postRepo.ListByAuthorID(ctx, actor.ID)
}
