package service

import (
	"context"
	"testing"

	"github.com/mmhlko/post-feed/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestProfileUpdate(t *testing.T) {
	store := newMemoryStore()
	auth := NewAuthService(store, store, newTestTokens(t), nil)
	_, me := signupUser(t, auth, "a@x.com", "pw")
	_, other := signupUser(t, auth, "b@x.com", "pw")
	svc := NewProfileService(store, newMemoryStorage(), nil)
	ctx := context.Background()

	profile, err := svc.Update(ctx, me, me, model.UpdateProfileRequest{About: strPtr("hi"), Phone: strPtr("+1")})
	require.NoError(t, err)
	assert.Equal(t, "hi", profile.About)
	assert.Equal(t, "Ann", profile.FirstName)

	_, err = svc.Update(ctx, me, other, model.UpdateProfileRequest{About: strPtr("x")})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Update(ctx, me, me, model.UpdateProfileRequest{Email: strPtr("b@x.com")})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Update(ctx, me, me, model.UpdateProfileRequest{Email: strPtr("broken")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadAvatarReplacesPrevious(t *testing.T) {
	store := newMemoryStore()
	auth := NewAuthService(store, store, newTestTokens(t), nil)
	_, me := signupUser(t, auth, "a@x.com", "pw")
	files := newMemoryStorage()
	svc := NewProfileService(store, files, nil)
	ctx := context.Background()

	first, err := svc.UploadAvatar(ctx, me, me, pngUpload("a.png"))
	require.NoError(t, err)
	assert.Contains(t, first.AvatarURL, "/uploads/avatars/")

	second, err := svc.UploadAvatar(ctx, me, me, pngUpload("b.png"))
	require.NoError(t, err)
	assert.NotEqual(t, first.AvatarURL, second.AvatarURL)
	assert.Equal(t, 1, files.count())

	_, err = svc.UploadAvatar(ctx, me, me, model.Upload{Filename: "a.txt", ContentType: "text/plain", Data: []byte("x")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UploadAvatar(ctx, me, "someone-else", pngUpload("c.png"))
	assert.ErrorIs(t, err, ErrForbidden)
}
