package model

import "time"

type SignupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken string `json:"accessToken"`
}

// TokenPair is what the session layer hands to the transport. The refresh
// token only ever leaves the server inside the refresh cookie.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type AuthUser struct {
	ID    string
	Email string
}

// User is the credential record. Hashes are never serialized.
type User struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	BirthDate          *time.Time `json:"birthDate,omitempty"`
	About              string     `json:"about,omitempty"`
	Phone              string     `json:"phone,omitempty"`
	AvatarURL          string     `json:"avatarUrl,omitempty"`
	PasswordHash       string     `json:"-"`
	HashedRefreshToken *string    `json:"-"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}
