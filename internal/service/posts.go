package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mmhlko/post-feed/internal/model"
)

const (
	defaultPostLimit = 5
	maxPostLimit     = 50
	maxPostImages    = 5
)

// postStore returns (nil, nil) from FindPost when the post does not exist.
type postStore interface {
	ListPosts(ctx context.Context, q model.PostListQuery) ([]model.Post, int, error)
	FindPost(ctx context.Context, id string) (*model.Post, error)
	CreatePost(ctx context.Context, authorID, text string, imageURLs []string) (string, error)
	UpdatePost(ctx context.Context, id string, text *string, removeImageIDs []string, addImageURLs []string) ([]string, error)
	DeletePost(ctx context.Context, id string) error
}

type PostService struct {
	repo    postStore
	storage imageStorage
	logger  *slog.Logger
}

func NewPostService(repo postStore, storage imageStorage, logger *slog.Logger) *PostService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostService{repo: repo, storage: storage, logger: logger}
}

// NormalizeListQuery fills defaults and clamps paging values.
func NormalizeListQuery(q model.PostListQuery) model.PostListQuery {
	if q.Limit <= 0 {
		q.Limit = defaultPostLimit
	}
	if q.Limit > maxPostLimit {
		q.Limit = maxPostLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	q.Sort = strings.ToLower(strings.TrimSpace(q.Sort))
	if q.Sort != "asc" {
		q.Sort = "desc"
	}
	return q
}

func (s *PostService) List(ctx context.Context, q model.PostListQuery) (*model.PostListResponse, error) {
	items, total, err := s.repo.ListPosts(ctx, NormalizeListQuery(q))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Post{}
	}
	return &model.PostListResponse{Items: items, Total: total}, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*model.Post, error) {
	post, err := s.repo.FindPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrNotFound
	}
	return post, nil
}

func (s *PostService) Create(ctx context.Context, authorID, text string, images []model.Upload) (*model.Post, error) {
	text = strings.TrimSpace(text)
	if text == "" && len(images) == 0 {
		return nil, ErrInvalidInput
	}
	if len(images) > maxPostImages {
		return nil, ErrInvalidInput
	}

	urls, err := s.saveImages(ctx, images)
	if err != nil {
		return nil, err
	}

	id, err := s.repo.CreatePost(ctx, authorID, text, urls)
	if err != nil {
		s.deleteFiles(ctx, urls)
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *PostService) Update(ctx context.Context, actorID, id string, text *string, removeImageIDs []string, images []model.Upload) (*model.Post, error) {
	post, err := s.ownedPost(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	remaining := len(post.Images)
	for _, img := range post.Images {
		for _, removeID := range removeImageIDs {
			if img.ID == removeID {
				remaining--
				break
			}
		}
	}
	if remaining+len(images) > maxPostImages {
		return nil, ErrInvalidInput
	}

	if text != nil {
		trimmed := strings.TrimSpace(*text)
		if trimmed == "" {
			text = nil
		} else {
			text = &trimmed
		}
	}

	urls, err := s.saveImages(ctx, images)
	if err != nil {
		return nil, err
	}

	removed, err := s.repo.UpdatePost(ctx, id, text, removeImageIDs, urls)
	if err != nil {
		s.deleteFiles(ctx, urls)
		return nil, err
	}
	s.deleteFiles(ctx, removed)

	return s.Get(ctx, id)
}

func (s *PostService) Delete(ctx context.Context, actorID, id string) error {
	post, err := s.ownedPost(ctx, actorID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeletePost(ctx, id); err != nil {
		return err
	}

	urls := make([]string, 0, len(post.Images))
	for _, img := range post.Images {
		urls = append(urls, img.URL)
	}
	s.deleteFiles(ctx, urls)
	return nil
}

func (s *PostService) ownedPost(ctx context.Context, actorID, id string) (*model.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actorID {
		return nil, ErrForbidden
	}
	return post, nil
}

func (s *PostService) saveImages(ctx context.Context, images []model.Upload) ([]string, error) {
	urls := make([]string, 0, len(images))
	for _, img := range images {
		if !isImage(img) {
			s.deleteFiles(ctx, urls)
			return nil, ErrInvalidInput
		}
		url, err := s.storage.Save(ctx, postFolder, img)
		if err != nil {
			s.deleteFiles(ctx, urls)
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (s *PostService) deleteFiles(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := s.storage.Delete(ctx, url); err != nil {
			s.logger.Warn("failed to delete image", "url", url, "error", err)
		}
	}
}
