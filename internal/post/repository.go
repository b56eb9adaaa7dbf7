// Package post manages blog posts and their persistence.
package post

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Post is the single content entity managed by this service. Image is the
// absolute URL of the externally hosted media, nil for posts created
// without one.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       *string   `json:"image,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ErrNotFound is returned when a post does not exist.
var ErrNotFound = errors.New("post not found")

// UpdateFields carries replacement values for an update. Title and
// Description are always resupplied; ImageURL is nil when the existing
// image should be left unchanged.
type UpdateFields struct {
	Title       string
	Description string
	ImageURL    *string
}

// Store is the persistence contract for posts. Identifiers are assigned by
// the store on create and never reused. Delete is idempotent.
type Store interface {
	Create(ctx context.Context, title, description string, imageURL *string) (*Post, error)
	GetAll(ctx context.Context) ([]Post, error)
	GetByID(ctx context.Context, id string) (*Post, error)
	Update(ctx context.Context, id string, fields UpdateFields) (*Post, error)
	Delete(ctx context.Context, id string) error
}

// Repository implements Store on PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new post and returns the stored record, id included.
func (r *Repository) Create(ctx context.Context, title, description string, imageURL *string) (*Post, error) {
	p := &Post{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO posts (title, description, image)
		 VALUES ($1, $2, $3)
		 RETURNING id, title, description, image, created_at, updated_at`,
		title, description, imageURL,
	).Scan(&p.ID, &p.Title, &p.Description, &p.Image, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

// GetAll returns every stored post in insertion order.
func (r *Repository) GetAll(ctx context.Context) ([]Post, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, description, image, created_at, updated_at
		 FROM posts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Image, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

// GetByID fetches a post by its UUID. Identifiers are opaque to callers, so
// a malformed id is simply a post that does not exist.
func (r *Repository) GetByID(ctx context.Context, id string) (*Post, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrNotFound
	}

	p := &Post{}
	err := r.db.QueryRow(ctx,
		`SELECT id, title, description, image, created_at, updated_at
		 FROM posts WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Title, &p.Description, &p.Image, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post by id: %w", err)
	}
	return p, nil
}

// Update replaces title and description and, when fields.ImageURL is set,
// the image reference. The previous image URL is discarded, never merged.
func (r *Repository) Update(ctx context.Context, id string, fields UpdateFields) (*Post, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrNotFound
	}

	p := &Post{}
	err := r.db.QueryRow(ctx,
		`UPDATE posts
		 SET title = $2, description = $3, image = COALESCE($4, image)
		 WHERE id = $1
		 RETURNING id, title, description, image, created_at, updated_at`,
		id, fields.Title, fields.Description, fields.ImageURL,
	).Scan(&p.ID, &p.Title, &p.Description, &p.Image, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return p, nil
}

// Delete removes a post. Deleting an id that does not exist (or never could)
// is success: the caller cannot tell "already gone" from "deleted now".
func (r *Repository) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return nil
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}
