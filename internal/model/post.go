package model

import "time"

type PostAuthor struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type PostImage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Post struct {
	ID        string      `json:"id"`
	Text      string      `json:"text"`
	AuthorID  string      `json:"-"`
	Author    PostAuthor  `json:"author"`
	Images    []PostImage `json:"images"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type PostListQuery struct {
	Limit  int
	Offset int
	// Sort is "asc" or "desc" by creation time.
	Sort string
}

type PostListResponse struct {
	Items []Post `json:"items"`
	Total int    `json:"total"`
}

// Upload is an image received from a multipart form, already read into memory.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
