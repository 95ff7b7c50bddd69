package service

import (
	"errors"
	"sort"
	"strings"

	"github.com/d60-Lab/blog-api/internal/auth"
	"github.com/d60-Lab/blog-api/internal/pagination"
	"github.com/d60-Lab/blog-api/internal/permission"
)

var (
	ErrPostNotFound       = errors.New("post not found")
	ErrNotAuthenticated   = permission.ErrNotAuthenticated
	ErrPermissionDenied   = permission.ErrPermissionDenied
	ErrInvalidPage        = pagination.ErrInvalidPage
	ErrInvalidCredentials = errors.New("no active account found with the given credentials")
	ErrInvalidToken       = auth.ErrInvalidToken
)

// ValidationError 按字段聚合的校验错误
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add 追加一条字段错误
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Has 字段是否已有错误
func (e *ValidationError) Has(field string) bool {
	_, ok := e.Fields[field]
	return ok
}

func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }
