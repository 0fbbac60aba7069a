package repository

import (
	"context"
	"errors"
	"fmt"

	"duet-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateSender is returned when inserting a request for a sender
// that already has one outstanding. Backed by the unique index on
// pair_requests.sender.
var ErrDuplicateSender = errors.New("sender already has an outstanding request")

// PairRequestRepository handles database operations for pair requests
type PairRequestRepository struct {
	db *pgxpool.Pool
}

// NewPairRequestRepository creates a new pair request repository
func NewPairRequestRepository(db *pgxpool.Pool) *PairRequestRepository {
	return &PairRequestRepository{db: db}
}

// Create inserts a new pair request. Returns ErrDuplicateSender if the
// sender already has an outstanding request.
func (r *PairRequestRepository) Create(ctx context.Context, req *models.PairRequest) error {
	query := `
		INSERT INTO pair_requests (id, sender, recipient, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, req.ID, req.From, req.To, req.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateSender
		}
		return fmt.Errorf("failed to create pair request: %w", err)
	}
	return nil
}

// GetBySender retrieves the outstanding request sent by a user.
// Returns nil when there is none.
func (r *PairRequestRepository) GetBySender(ctx context.Context, from string) (*models.PairRequest, error) {
	query := `
		SELECT id, sender, recipient, created_at
		FROM pair_requests
		WHERE sender = $1
	`
	var req models.PairRequest
	err := r.db.QueryRow(ctx, query, from).Scan(
		&req.ID, &req.From, &req.To, &req.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pair request: %w", err)
	}
	return &req, nil
}

// Pop atomically removes and returns the request from -> to. Returns
// nil when no such request exists. The single DELETE..RETURNING keeps
// find-and-remove indivisible, so two interleaved mutual requests
// resolve to exactly one match.
func (r *PairRequestRepository) Pop(ctx context.Context, from, to string) (*models.PairRequest, error) {
	query := `
		DELETE FROM pair_requests
		WHERE sender = $1 AND recipient = $2
		RETURNING id, sender, recipient, created_at
	`
	var req models.PairRequest
	err := r.db.QueryRow(ctx, query, from, to).Scan(
		&req.ID, &req.From, &req.To, &req.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop pair request: %w", err)
	}
	return &req, nil
}

// PopBySender atomically removes and returns the request sent by a
// user. Returns nil when there is none.
func (r *PairRequestRepository) PopBySender(ctx context.Context, from string) (*models.PairRequest, error) {
	query := `
		DELETE FROM pair_requests
		WHERE sender = $1
		RETURNING id, sender, recipient, created_at
	`
	var req models.PairRequest
	err := r.db.QueryRow(ctx, query, from).Scan(
		&req.ID, &req.From, &req.To, &req.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop pair request by sender: %w", err)
	}
	return &req, nil
}

// DeleteByUser removes all requests a user appears in, as sender or
// recipient. Used on account deletion.
func (r *PairRequestRepository) DeleteByUser(ctx context.Context, userID string) error {
	query := `DELETE FROM pair_requests WHERE sender = $1 OR recipient = $1`
	_, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete pair requests for user: %w", err)
	}
	return nil
}
