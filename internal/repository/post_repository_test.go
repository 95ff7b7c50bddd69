package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/blog-api/internal/model"
)

func TestPostRepository_CRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")

	post := &model.Post{Title: "Sample title", Content: "Sample content", AuthorID: alice.ID}
	require.NoError(t, repo.Create(ctx, post))
	require.NotZero(t, post.ID)
	assert.False(t, post.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sample title", got.Title)
	assert.Equal(t, "alice", got.Author.Username)

	got.Title = "Changed"
	got.Content = ""
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Changed", got.Title)
	assert.Empty(t, got.Content)
	assert.Equal(t, alice.ID, got.AuthorID)

	require.NoError(t, repo.Delete(ctx, post.ID))
	_, err = repo.GetByID(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, post.ID), ErrNotFound)
}

func TestPostRepository_UpdateMissing(t *testing.T) {
	repo := NewPostRepository(setupTestDB(t))
	err := repo.Update(context.Background(), &model.Post{ID: 42, Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostRepository_ListOrderedAndPaged(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	u := seedUser(t, db, "writer")

	for i := 1; i <= 7; i++ {
		require.NoError(t, repo.Create(ctx, &model.Post{Title: fmt.Sprintf("p%d", i), AuthorID: u.ID}))
	}

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 7, count)

	page, err := repo.List(ctx, 6, 3)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "p7", page[0].Title)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 7)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
}

func TestPostRepository_ListByAuthorUsername(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	alice2 := seedUser(t, db, "alicea")

	require.NoError(t, repo.Create(ctx, &model.Post{Title: "a1", AuthorID: alice.ID}))
	require.NoError(t, repo.Create(ctx, &model.Post{Title: "b1", AuthorID: bob.ID}))
	require.NoError(t, repo.Create(ctx, &model.Post{Title: "a2", AuthorID: alice.ID}))
	require.NoError(t, repo.Create(ctx, &model.Post{Title: "x1", AuthorID: alice2.ID}))

	posts, err := repo.ListByAuthorUsername(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "a1", posts[0].Title)
	assert.Equal(t, "a2", posts[1].Title)
	assert.Equal(t, "alice", posts[0].Author.Username)

	posts, err = repo.ListByAuthorUsername(ctx, "Alice")
	require.NoError(t, err)
	assert.Empty(t, posts)

	posts, err = repo.ListByAuthorID(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "b1", posts[0].Title)
}
