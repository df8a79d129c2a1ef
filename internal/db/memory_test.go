package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mmhlko/post-feed/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCreateUserDuplicate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	user, err := m.CreateUser(ctx, &model.User{Email: "a@x.com", PasswordHash: "h"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)

	_, err = m.CreateUser(ctx, &model.User{Email: "a@x.com", PasswordHash: "h"})
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "23505", pgErr.Code)

	missing, err := m.FindUserByEmail(ctx, "b@x.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryRefreshSlot(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	user, err := m.CreateUser(ctx, &model.User{Email: "a@x.com"})
	require.NoError(t, err)

	h1 := "h1"
	require.NoError(t, m.UpdateRefreshHash(ctx, user.ID, &h1))
	h1 = "mutated"
	got, ok, err := m.GetRefreshHash(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "h1", got, "store keeps its own copy")

	swapped, err := m.SwapRefreshHash(ctx, user.ID, "other", nil)
	require.NoError(t, err)
	assert.False(t, swapped)

	swapped, err = m.SwapRefreshHash(ctx, user.ID, "h1", nil)
	require.NoError(t, err)
	assert.True(t, swapped)
	_, ok, _ = m.GetRefreshHash(ctx, user.ID)
	assert.False(t, ok)
}

func TestMemoryPosts(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	user, err := m.CreateUser(ctx, &model.User{Email: "a@x.com", FirstName: "Ann"})
	require.NoError(t, err)

	first, err := m.CreatePost(ctx, user.ID, "first", []string{"/u/1.png"})
	require.NoError(t, err)
	_, err = m.CreatePost(ctx, user.ID, "second", nil)
	require.NoError(t, err)

	desc, total, err := m.ListPosts(ctx, model.PostListQuery{Limit: 5, Sort: "desc"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "second", desc[0].Text)
	assert.Equal(t, "Ann", desc[0].Author.FirstName)

	asc, _, err := m.ListPosts(ctx, model.PostListQuery{Limit: 1, Offset: 1, Sort: "asc"})
	require.NoError(t, err)
	require.Len(t, asc, 1)
	assert.Equal(t, "second", asc[0].Text)

	post, err := m.FindPost(ctx, first)
	require.NoError(t, err)
	removed, err := m.UpdatePost(ctx, first, nil, []string{post.Images[0].ID}, []string{"/u/2.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/u/1.png"}, removed)

	post, err = m.FindPost(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "first", post.Text)
	require.Len(t, post.Images, 1)
	assert.Equal(t, "/u/2.png", post.Images[0].URL)

	require.NoError(t, m.DeletePost(ctx, first))
	post, err = m.FindPost(ctx, first)
	require.NoError(t, err)
	assert.Nil(t, post)
	_, total, _ = m.ListPosts(ctx, model.PostListQuery{Limit: 5})
	assert.Equal(t, 1, total)
}
