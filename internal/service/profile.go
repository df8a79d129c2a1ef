package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mmhlko/post-feed/internal/model"
)

type profileStore interface {
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, req model.UpdateProfileRequest) (*model.User, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) (*model.User, error)
}

type ProfileService struct {
	repo    profileStore
	storage imageStorage
	logger  *slog.Logger
}

func NewProfileService(repo profileStore, storage imageStorage, logger *slog.Logger) *ProfileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{repo: repo, storage: storage, logger: logger}
}

func (s *ProfileService) Get(ctx context.Context, id string) (*model.Profile, error) {
	user, err := s.repo.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	profile := user.Profile()
	return &profile, nil
}

// Update applies a partial profile update. Users may only edit themselves.
func (s *ProfileService) Update(ctx context.Context, actorID, id string, req model.UpdateProfileRequest) (*model.Profile, error) {
	if actorID != id {
		return nil, ErrForbidden
	}

	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if err := validateCredentials(email, "-"); err != nil {
			return nil, err
		}
		other, err := s.repo.FindUserByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != id {
			return nil, ErrConflict
		}
		req.Email = &email
	}

	user, err := s.repo.UpdateProfile(ctx, id, req)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	profile := user.Profile()
	return &profile, nil
}

func (s *ProfileService) UploadAvatar(ctx context.Context, actorID, id string, upload model.Upload) (*model.Profile, error) {
	if actorID != id {
		return nil, ErrForbidden
	}
	if !isImage(upload) {
		return nil, ErrInvalidInput
	}

	current, err := s.repo.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotFound
	}

	url, err := s.storage.Save(ctx, avatarFolder, upload)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.UpdateAvatar(ctx, id, url)
	if err != nil {
		_ = s.storage.Delete(ctx, url)
		return nil, err
	}
	if user == nil {
		_ = s.storage.Delete(ctx, url)
		return nil, ErrNotFound
	}

	if current.AvatarURL != "" {
		if err := s.storage.Delete(ctx, current.AvatarURL); err != nil {
			s.logger.Warn("failed to delete previous avatar", "user_id", id, "error", err)
		}
	}

	profile := user.Profile()
	return &profile, nil
}

func isImage(upload model.Upload) bool {
	return len(upload.Data) > 0 && strings.HasPrefix(upload.ContentType, "image/")
}
