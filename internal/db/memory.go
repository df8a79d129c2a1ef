package db

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mmhlko/post-feed/internal/model"
)

// Memory is a process-local store with the same method set as Postgres.
// It backs DB_DRIVER=memory and the HTTP and client tests.
type Memory struct {
	mu    sync.Mutex
	users map[string]*model.User
	posts map[string]*model.Post
	order []string
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users: map[string]*model.User{},
		posts: map[string]*model.Post{},
		now:   time.Now,
	}
}

// uniqueViolation mirrors what Postgres reports on a duplicate key.
func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

func (m *Memory) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (m *Memory) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, nil
}

func (m *Memory) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return nil, uniqueViolation("users_email_key")
		}
	}
	created := copyUser(user)
	created.ID = uuid.NewString()
	created.HashedRefreshToken = nil
	created.CreatedAt = m.now()
	created.UpdatedAt = created.CreatedAt
	m.users[created.ID] = created
	return copyUser(created), nil
}

func (m *Memory) GetRefreshHash(ctx context.Context, userID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.HashedRefreshToken == nil {
		return "", false, nil
	}
	return *u.HashedRefreshToken, true, nil
}

func (m *Memory) UpdateRefreshHash(ctx context.Context, userID string, hash *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.HashedRefreshToken = copyString(hash)
	}
	return nil
}

func (m *Memory) SwapRefreshHash(ctx context.Context, userID, expected string, next *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.HashedRefreshToken == nil || *u.HashedRefreshToken != expected {
		return false, nil
	}
	u.HashedRefreshToken = copyString(next)
	return true, nil
}

func (m *Memory) UpdateProfile(ctx context.Context, id string, req model.UpdateProfileRequest) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	if req.Email != nil {
		for _, other := range m.users {
			if other.ID != id && other.Email == *req.Email {
				return nil, uniqueViolation("users_email_key")
			}
		}
		u.Email = *req.Email
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.BirthDate != nil {
		birth := *req.BirthDate
		u.BirthDate = &birth
	}
	if req.About != nil {
		u.About = *req.About
	}
	if req.Phone != nil {
		u.Phone = *req.Phone
	}
	u.UpdatedAt = m.now()
	return copyUser(u), nil
}

func (m *Memory) UpdateAvatar(ctx context.Context, id, avatarURL string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	u.AvatarURL = avatarURL
	u.UpdatedAt = m.now()
	return copyUser(u), nil
}

func (m *Memory) ListPosts(ctx context.Context, q model.PostListQuery) ([]model.Post, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// order holds insertion order, which is creation order
	ids := append([]string(nil), m.order...)
	if q.Sort != "asc" {
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	}

	total := len(ids)
	posts := []model.Post{}
	for i := q.Offset; i < total && len(posts) < q.Limit; i++ {
		posts = append(posts, m.viewPost(m.posts[ids[i]]))
	}
	return posts, total, nil
}

func (m *Memory) FindPost(ctx context.Context, id string) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	post := m.viewPost(p)
	return &post, nil
}

func (m *Memory) CreatePost(ctx context.Context, authorID, text string, imageURLs []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	p := &model.Post{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Text:      text,
		Images:    newImages(imageURLs),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.posts[p.ID] = p
	m.order = append(m.order, p.ID)
	return p.ID, nil
}

func (m *Memory) UpdatePost(ctx context.Context, id string, text *string, removeImageIDs []string, addImageURLs []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	if text != nil {
		p.Text = *text
	}

	remove := make(map[string]struct{}, len(removeImageIDs))
	for _, rid := range removeImageIDs {
		remove[rid] = struct{}{}
	}
	kept := make([]model.PostImage, 0, len(p.Images)+len(addImageURLs))
	var removed []string
	for _, img := range p.Images {
		if _, drop := remove[img.ID]; drop {
			removed = append(removed, img.URL)
			continue
		}
		kept = append(kept, img)
	}
	p.Images = append(kept, newImages(addImageURLs)...)
	p.UpdatedAt = m.now()
	return removed, nil
}

func (m *Memory) DeletePost(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.posts, id)
	for i, pid := range m.order {
		if pid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) viewPost(p *model.Post) model.Post {
	post := *p
	post.Images = append([]model.PostImage{}, p.Images...)
	if u, ok := m.users[p.AuthorID]; ok {
		post.Author = model.PostAuthor{
			ID:        u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			AvatarURL: u.AvatarURL,
		}
	}
	return post
}

func newImages(urls []string) []model.PostImage {
	images := make([]model.PostImage, 0, len(urls))
	for _, url := range urls {
		images = append(images, model.PostImage{ID: uuid.NewString(), URL: url})
	}
	return images
}

func copyUser(u *model.User) *model.User {
	cp := *u
	cp.HashedRefreshToken = copyString(u.HashedRefreshToken)
	return &cp
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
