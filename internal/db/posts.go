package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mmhlko/post-feed/internal/model"
)

const postColumns = `
	p.id, p.user_id, p.text, p.created_at, p.updated_at,
	u.id, u.first_name, u.last_name, u.avatar_url
`

func scanPost(row rowScanner) (model.Post, error) {
	var post model.Post
	err := row.Scan(
		&post.ID,
		&post.AuthorID,
		&post.Text,
		&post.CreatedAt,
		&post.UpdatedAt,
		&post.Author.ID,
		&post.Author.FirstName,
		&post.Author.LastName,
		&post.Author.AvatarURL,
	)
	return post, err
}

func (db *Postgres) ListPosts(ctx context.Context, q model.PostListQuery) ([]model.Post, int, error) {
	var total int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total); err != nil {
		return nil, 0, err
	}

	// sort is normalized by the service; never interpolate anything else
	order := "DESC"
	if q.Sort == "asc" {
		order = "ASC"
	}
	query := fmt.Sprintf(`
		SELECT `+postColumns+`
		FROM posts p
		JOIN users u ON u.id = p.user_id
		ORDER BY p.created_at %s, p.id %s
		LIMIT $1 OFFSET $2
	`, order, order)

	rows, err := db.Pool.Query(ctx, query, q.Limit, q.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := db.attachImages(ctx, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (db *Postgres) FindPost(ctx context.Context, id string) (*model.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1
	`
	post, err := scanPost(db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}

	posts := []model.Post{post}
	if err := db.attachImages(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

func (db *Postgres) CreatePost(ctx context.Context, authorID, text string, imageURLs []string) (string, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	id := uuid.NewString()
	if _, err = tx.Exec(ctx, `
		INSERT INTO posts (id, user_id, text, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`, id, authorID, text); err != nil {
		return "", err
	}

	if err = insertImages(ctx, tx, id, imageURLs); err != nil {
		return "", err
	}

	return id, tx.Commit(ctx)
}

// UpdatePost returns the URLs of the images it removed.
func (db *Postgres) UpdatePost(ctx context.Context, id string, text *string, removeImageIDs []string, addImageURLs []string) ([]string, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err = tx.Exec(ctx, `
		UPDATE posts
		SET text = COALESCE($2, text), updated_at = NOW()
		WHERE id = $1
	`, id, text); err != nil {
		return nil, err
	}

	var removed []string
	if len(removeImageIDs) > 0 {
		rows, err := tx.Query(ctx, `
			DELETE FROM post_images
			WHERE post_id = $1 AND id = ANY($2)
			RETURNING url
		`, id, removeImageIDs)
		if err != nil {
			return nil, err
		}
		removed, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return nil, err
		}
	}

	if err = insertImages(ctx, tx, id, addImageURLs); err != nil {
		return nil, err
	}

	return removed, tx.Commit(ctx)
}

func (db *Postgres) DeletePost(ctx context.Context, id string) error {
	// post_images rows go with the post via ON DELETE CASCADE
	_, err := db.Pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	return err
}

func insertImages(ctx context.Context, tx pgx.Tx, postID string, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, url := range urls {
		batch.Queue(`
			INSERT INTO post_images (id, post_id, url, created_at)
			VALUES ($1, $2, $3, NOW())
		`, uuid.NewString(), postID, url)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func (db *Postgres) attachImages(ctx context.Context, posts []model.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	index := make(map[string]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
		posts[i].Images = []model.PostImage{}
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, post_id, url
		FROM post_images
		WHERE post_id = ANY($1)
		ORDER BY created_at, id
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var img model.PostImage
		var postID string
		if err := rows.Scan(&img.ID, &postID, &img.URL); err != nil {
			return err
		}
		if i, ok := index[postID]; ok {
			posts[i].Images = append(posts[i].Images, img)
		}
	}
	return rows.Err()
}
