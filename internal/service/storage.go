package service

import (
	"context"

	"github.com/mmhlko/post-feed/internal/model"
)

// imageStorage stores uploaded files under a folder and returns a public URL.
type imageStorage interface {
	Save(ctx context.Context, folder string, upload model.Upload) (string, error)
	Delete(ctx context.Context, url string) error
}

const (
	avatarFolder = "avatars"
	postFolder   = "posts"
)
