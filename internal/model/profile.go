package model

import "time"

// Profile is the public view of a user.
type Profile struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	About     string     `json:"about,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	AvatarURL string     `json:"avatarUrl,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// UpdateProfileRequest carries a partial update; nil fields are left as is.
type UpdateProfileRequest struct {
	FirstName *string    `json:"firstName"`
	LastName  *string    `json:"lastName"`
	BirthDate *time.Time `json:"birthDate"`
	About     *string    `json:"about"`
	Email     *string    `json:"email"`
	Phone     *string    `json:"phone"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		BirthDate: u.BirthDate,
		About:     u.About,
		Phone:     u.Phone,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
	}
}
