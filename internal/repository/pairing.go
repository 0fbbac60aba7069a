package repository

import (
	"context"
	"errors"
	"fmt"

	"duet-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PairingRepository handles database operations for pairings
type PairingRepository struct {
	db *pgxpool.Pool
}

// NewPairingRepository creates a new pairing repository
func NewPairingRepository(db *pgxpool.Pool) *PairingRepository {
	return &PairingRepository{db: db}
}

// Create creates a new pairing
func (r *PairingRepository) Create(ctx context.Context, pairing *models.Pairing) error {
	query := `
		INSERT INTO pairings (id, user_a, user_b, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, pairing.ID, pairing.UserA, pairing.UserB, pairing.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create pairing: %w", err)
	}
	return nil
}

// GetByUser retrieves the pairing containing a user in either slot.
// Returns nil when the user is not paired.
func (r *PairingRepository) GetByUser(ctx context.Context, userID string) (*models.Pairing, error) {
	query := `
		SELECT id, user_a, user_b, created_at
		FROM pairings
		WHERE user_a = $1 OR user_b = $1
		LIMIT 1
	`
	var pairing models.Pairing
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&pairing.ID, &pairing.UserA, &pairing.UserB, &pairing.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pairing by user: %w", err)
	}
	return &pairing, nil
}

// Exists reports whether the unordered pairing {a, b} exists.
func (r *PairingRepository) Exists(ctx context.Context, a, b string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM pairings
			WHERE (user_a = $1 AND user_b = $2) OR (user_a = $2 AND user_b = $1)
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, a, b).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check pairing existence: %w", err)
	}
	return exists, nil
}

// ExistsForEither reports whether any pairing involves a or b.
func (r *PairingRepository) ExistsForEither(ctx context.Context, a, b string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM pairings
			WHERE user_a IN ($1, $2) OR user_b IN ($1, $2)
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, a, b).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check pairing involvement: %w", err)
	}
	return exists, nil
}

// PopByUser atomically removes and returns the pairing containing a
// user. Returns nil when the user is not paired.
func (r *PairingRepository) PopByUser(ctx context.Context, userID string) (*models.Pairing, error) {
	query := `
		DELETE FROM pairings
		WHERE user_a = $1 OR user_b = $1
		RETURNING id, user_a, user_b, created_at
	`
	var pairing models.Pairing
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&pairing.ID, &pairing.UserA, &pairing.UserB, &pairing.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop pairing: %w", err)
	}
	return &pairing, nil
}
