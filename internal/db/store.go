package db

import (
	"context"

	"github.com/mmhlko/post-feed/internal/model"
)

// RefreshSlots is the single refresh hash slot per user.
type RefreshSlots interface {
	GetRefreshHash(ctx context.Context, userID string) (string, bool, error)
	UpdateRefreshHash(ctx context.Context, userID string, hash *string) error
	SwapRefreshHash(ctx context.Context, userID, expected string, next *string) (bool, error)
}

// Store is implemented by Postgres and Memory.
type Store interface {
	RefreshSlots

	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, req model.UpdateProfileRequest) (*model.User, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) (*model.User, error)

	ListPosts(ctx context.Context, q model.PostListQuery) ([]model.Post, int, error)
	FindPost(ctx context.Context, id string) (*model.Post, error)
	CreatePost(ctx context.Context, authorID, text string, imageURLs []string) (string, error)
	UpdatePost(ctx context.Context, id string, text *string, removeImageIDs []string, addImageURLs []string) ([]string, error)
	DeletePost(ctx context.Context, id string) error
}

var (
	_ Store        = (*Postgres)(nil)
	_ Store        = (*Memory)(nil)
	_ RefreshSlots = (*RedisRefreshStore)(nil)
)
