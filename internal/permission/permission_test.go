package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/d60-Lab/blog-api/internal/model"
)

var (
	alice = &model.User{ID: 1, Username: "alice"}
	bob   = &model.User{ID: 2, Username: "bob"}
	post  = &model.Post{ID: 10, AuthorID: 1}
)

func TestReadOnly(t *testing.T) {
	for _, a := range []Action{ActionList, ActionRetrieve} {
		assert.True(t, ReadOnly(nil, a, post), a.String())
	}
	for _, a := range []Action{ActionCreate, ActionUpdate, ActionDelete} {
		assert.False(t, ReadOnly(alice, a, post), a.String())
	}
}

func TestAuthorOrReadOnly(t *testing.T) {
	tests := []struct {
		name   string
		actor  *model.User
		action Action
		post   *model.Post
		want   bool
	}{
		{"anonymous read", nil, ActionRetrieve, post, true},
		{"other read", bob, ActionRetrieve, post, true},
		{"author update", alice, ActionUpdate, post, true},
		{"author delete", alice, ActionDelete, post, true},
		{"other update", bob, ActionUpdate, post, false},
		{"other delete", bob, ActionDelete, post, false},
		{"anonymous delete", nil, ActionDelete, post, false},
		{"view level", bob, ActionUpdate, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AuthorOrReadOnly(tt.actor, tt.action, tt.post))
		})
	}
}

func TestAuthenticatedOrReadOnly(t *testing.T) {
	assert.True(t, AuthenticatedOrReadOnly(nil, ActionList, nil))
	assert.False(t, AuthenticatedOrReadOnly(nil, ActionCreate, nil))
	assert.True(t, AuthenticatedOrReadOnly(bob, ActionCreate, nil))
}

func TestAll(t *testing.T) {
	p := All(IsAuthenticated, AuthorOrReadOnly)
	assert.False(t, p(nil, ActionRetrieve, post))
	assert.True(t, p(bob, ActionRetrieve, post))
	assert.False(t, p(bob, ActionUpdate, post))
	assert.True(t, p(alice, ActionUpdate, post))
	assert.True(t, All()(nil, ActionDelete, nil))
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check(AuthorOrReadOnly, alice, ActionDelete, post))
	assert.ErrorIs(t, Check(AuthorOrReadOnly, bob, ActionDelete, post), ErrPermissionDenied)
	assert.ErrorIs(t, Check(AuthorOrReadOnly, nil, ActionDelete, post), ErrNotAuthenticated)
	assert.ErrorIs(t, Check(IsAuthenticated, nil, ActionList, nil), ErrNotAuthenticated)
}
