package db

import (
	"context"

	"github.com/mmhlko/post-feed/internal/model"
)

// UpdateProfile writes only the fields present in req.
func (db *Postgres) UpdateProfile(ctx context.Context, id string, req model.UpdateProfileRequest) (*model.User, error) {
	query := `
		UPDATE users SET
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			birth_date = COALESCE($4, birth_date),
			about = COALESCE($5, about),
			email = COALESCE($6, email),
			phone = COALESCE($7, phone),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return db.findUser(ctx, query, id, req.FirstName, req.LastName, req.BirthDate, req.About, req.Email, req.Phone)
}

func (db *Postgres) UpdateAvatar(ctx context.Context, id, avatarURL string) (*model.User, error) {
	query := `
		UPDATE users SET avatar_url = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return db.findUser(ctx, query, id, avatarURL)
}
