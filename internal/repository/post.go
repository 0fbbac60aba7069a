package repository

import (
	"context"
	"errors"
	"fmt"

	"duet-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DualPostRepository handles database operations for dual posts
type DualPostRepository struct {
	db *pgxpool.Pool
}

// NewDualPostRepository creates a new dual post repository
func NewDualPostRepository(db *pgxpool.Pool) *DualPostRepository {
	return &DualPostRepository{db: db}
}

// Create creates a new dual post
func (r *DualPostRepository) Create(ctx context.Context, post *models.DualPost) error {
	query := `
		INSERT INTO dual_posts (id, approved, content, image, date, proposer, approver)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		post.ID, post.Approved, post.Content, post.Image, post.Date, post.Proposer, post.Approver,
	)
	if err != nil {
		return fmt.Errorf("failed to create dual post: %w", err)
	}
	return nil
}

// GetByID retrieves a dual post by ID. Returns nil when absent.
func (r *DualPostRepository) GetByID(ctx context.Context, id string) (*models.DualPost, error) {
	query := `
		SELECT id, approved, content, image, date, proposer, approver
		FROM dual_posts
		WHERE id = $1
	`
	var post models.DualPost
	err := r.db.QueryRow(ctx, query, id).Scan(
		&post.ID, &post.Approved, &post.Content, &post.Image,
		&post.Date, &post.Proposer, &post.Approver,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dual post: %w", err)
	}
	return &post, nil
}

// Update applies a partial update; nil fields keep their current value.
func (r *DualPostRepository) Update(ctx context.Context, id string, update models.DualPostUpdate) error {
	query := `
		UPDATE dual_posts
		SET content = COALESCE($2, content), image = COALESCE($3, image)
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, id, update.Content, update.Image)
	if err != nil {
		return fmt.Errorf("failed to update dual post: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("dual post not found")
	}
	return nil
}

// SetApproved marks a dual post approved.
func (r *DualPostRepository) SetApproved(ctx context.Context, id string) error {
	query := `UPDATE dual_posts SET approved = TRUE WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to approve dual post: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("dual post not found")
	}
	return nil
}

// Delete deletes a dual post by ID.
func (r *DualPostRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM dual_posts WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete dual post: %w", err)
	}
	return nil
}

// ListApproved retrieves up to limit approved posts, newest first.
func (r *DualPostRepository) ListApproved(ctx context.Context, limit int) ([]*models.DualPost, error) {
	query := `
		SELECT id, approved, content, image, date, proposer, approver
		FROM dual_posts
		WHERE approved = TRUE
		ORDER BY date DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// ListByAuthor retrieves all posts, any state, where the user is
// proposer or approver.
func (r *DualPostRepository) ListByAuthor(ctx context.Context, userID string) ([]*models.DualPost, error) {
	query := `
		SELECT id, approved, content, image, date, proposer, approver
		FROM dual_posts
		WHERE proposer = $1 OR approver = $1
		ORDER BY date DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts by author: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

func scanPosts(rows pgx.Rows) ([]*models.DualPost, error) {
	var posts []*models.DualPost
	for rows.Next() {
		var post models.DualPost
		err := rows.Scan(
			&post.ID, &post.Approved, &post.Content, &post.Image,
			&post.Date, &post.Proposer, &post.Approver,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dual post: %w", err)
		}
		posts = append(posts, &post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dual posts: %w", err)
	}
	return posts, nil
}
