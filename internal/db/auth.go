package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/mmhlko/post-feed/internal/model"
)

const userColumns = `
	id, email, password_hash, hashed_refresh_token, first_name, last_name,
	birth_date, about, phone, avatar_url, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.HashedRefreshToken,
		&user.FirstName,
		&user.LastName,
		&user.BirthDate,
		&user.About,
		&user.Phone,
		&user.AvatarURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// findUser returns (nil, nil) when no row matches.
func (db *Postgres) findUser(ctx context.Context, query string, args ...any) (*model.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (db *Postgres) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (db *Postgres) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (db *Postgres) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING ` + userColumns
	return scanUser(db.Pool.QueryRow(ctx, query,
		uuid.NewString(),
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
	))
}

// GetRefreshHash reports false when the user is missing or has no session.
func (db *Postgres) GetRefreshHash(ctx context.Context, userID string) (string, bool, error) {
	var hash *string
	err := db.Pool.QueryRow(ctx, `SELECT hashed_refresh_token FROM users WHERE id = $1`, userID).Scan(&hash)
	if err != nil {
		if IsNoRows(err) {
			return "", false, nil
		}
		return "", false, err
	}
	if hash == nil {
		return "", false, nil
	}
	return *hash, true, nil
}

func (db *Postgres) UpdateRefreshHash(ctx context.Context, userID string, hash *string) error {
	query := `
		UPDATE users
		SET hashed_refresh_token = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, userID, hash)
	return err
}

func (db *Postgres) SwapRefreshHash(ctx context.Context, userID, expected string, next *string) (bool, error) {
	query := `
		UPDATE users
		SET hashed_refresh_token = $3, updated_at = NOW()
		WHERE id = $1 AND hashed_refresh_token = $2
	`
	tag, err := db.Pool.Exec(ctx, query, userID, expected, next)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
