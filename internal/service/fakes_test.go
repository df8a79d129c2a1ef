package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmhlko/post-feed/internal/model"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	passwordHashCost = bcrypt.MinCost
}

type memoryStore struct {
	mu     sync.Mutex
	users  map[string]*model.User
	posts  map[string]*model.Post
	clock  time.Time
	failOn string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users: map[string]*model.User{},
		posts: map[string]*model.Post{},
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memoryStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memoryStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memoryStore) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return nil, ErrConflict
		}
	}
	cp := *user
	cp.ID = uuid.NewString()
	cp.CreatedAt = m.tick()
	cp.UpdatedAt = cp.CreatedAt
	m.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memoryStore) GetRefreshHash(ctx context.Context, userID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.HashedRefreshToken == nil {
		return "", false, nil
	}
	return *u.HashedRefreshToken, true, nil
}

func (m *memoryStore) UpdateRefreshHash(ctx context.Context, userID string, hash *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.HashedRefreshToken = hash
	}
	return nil
}

func (m *memoryStore) SwapRefreshHash(ctx context.Context, userID, expected string, next *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.HashedRefreshToken == nil || *u.HashedRefreshToken != expected {
		return false, nil
	}
	u.HashedRefreshToken = next
	return true, nil
}

func (m *memoryStore) slot(userID string) *string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		return u.HashedRefreshToken
	}
	return nil
}

func (m *memoryStore) UpdateProfile(ctx context.Context, id string, req model.UpdateProfileRequest) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.BirthDate != nil {
		u.BirthDate = req.BirthDate
	}
	if req.About != nil {
		u.About = *req.About
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.Phone != nil {
		u.Phone = *req.Phone
	}
	cp := *u
	return &cp, nil
}

func (m *memoryStore) UpdateAvatar(ctx context.Context, id, avatarURL string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	u.AvatarURL = avatarURL
	cp := *u
	return &cp, nil
}

func (m *memoryStore) ListPosts(ctx context.Context, q model.PostListQuery) ([]model.Post, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]model.Post, 0, len(m.posts))
	for _, p := range m.posts {
		all = append(all, m.withAuthor(*p))
	}
	sort.Slice(all, func(i, j int) bool {
		if q.Sort == "asc" {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := len(all)
	if q.Offset >= total {
		return []model.Post{}, total, nil
	}
	end := q.Offset + q.Limit
	if end > total {
		end = total
	}
	return all[q.Offset:end], total, nil
}

func (m *memoryStore) FindPost(ctx context.Context, id string) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	out := m.withAuthor(*p)
	return &out, nil
}

func (m *memoryStore) CreatePost(ctx context.Context, authorID, text string, imageURLs []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == "create" {
		return "", fmt.Errorf("insert failed")
	}
	p := &model.Post{ID: uuid.NewString(), AuthorID: authorID, Text: text, CreatedAt: m.tick()}
	p.UpdatedAt = p.CreatedAt
	for _, url := range imageURLs {
		p.Images = append(p.Images, model.PostImage{ID: uuid.NewString(), URL: url})
	}
	m.posts[p.ID] = p
	return p.ID, nil
}

func (m *memoryStore) UpdatePost(ctx context.Context, id string, text *string, removeImageIDs []string, addImageURLs []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.posts[id]
	if text != nil {
		p.Text = *text
	}
	var kept []model.PostImage
	var removed []string
	for _, img := range p.Images {
		drop := false
		for _, rid := range removeImageIDs {
			if rid == img.ID {
				drop = true
			}
		}
		if drop {
			removed = append(removed, img.URL)
		} else {
			kept = append(kept, img)
		}
	}
	for _, url := range addImageURLs {
		kept = append(kept, model.PostImage{ID: uuid.NewString(), URL: url})
	}
	p.Images = kept
	return removed, nil
}

func (m *memoryStore) DeletePost(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.posts, id)
	return nil
}

func (m *memoryStore) withAuthor(p model.Post) model.Post {
	if u, ok := m.users[p.AuthorID]; ok {
		p.Author = model.PostAuthor{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, AvatarURL: u.AvatarURL}
	}
	p.Images = append([]model.PostImage(nil), p.Images...)
	return p
}

type memoryStorage struct {
	mu    sync.Mutex
	files map[string][]byte
	seq   int
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: map[string][]byte{}}
}

func (s *memoryStorage) Save(ctx context.Context, folder string, upload model.Upload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	url := fmt.Sprintf("/uploads/%s/%d-%s", folder, s.seq, upload.Filename)
	s.files[url] = upload.Data
	return url, nil
}

func (s *memoryStorage) Delete(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, url)
	return nil
}

func (s *memoryStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

func pngUpload(name string) model.Upload {
	return model.Upload{Filename: name, ContentType: "image/png", Data: []byte("\x89PNG")}
}
