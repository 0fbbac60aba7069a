package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"duet-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository handles database operations for user profiles
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get retrieves a profile by user ID. Returns nil when absent.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	query := `SELECT user_id, name FROM profiles WHERE user_id = $1`
	var profile models.Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(&profile.UserID, &profile.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// Upsert creates or replaces the profile for a user.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, name)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET name = EXCLUDED.name
	`
	if _, err := r.db.Exec(ctx, query, profile.UserID, profile.Name); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// Delete removes a user's profile.
func (r *ProfileRepository) Delete(ctx context.Context, userID string) error {
	query := `DELETE FROM profiles WHERE user_id = $1`
	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// DualProfileRepository handles database operations for shared pair profiles
type DualProfileRepository struct {
	db *pgxpool.Pool
}

// NewDualProfileRepository creates a new dual profile repository
func NewDualProfileRepository(db *pgxpool.Pool) *DualProfileRepository {
	return &DualProfileRepository{db: db}
}

// Create creates a new dual profile
func (r *DualProfileRepository) Create(ctx context.Context, dp *models.DualProfile) error {
	scrapbook, err := json.Marshal(dp.Scrapbook)
	if err != nil {
		return fmt.Errorf("failed to marshal scrapbook: %w", err)
	}
	query := `
		INSERT INTO dual_profiles (id, pairing_id, started_at, scrapbook)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.Exec(ctx, query, dp.ID, dp.PairingID, dp.StartedAt, scrapbook); err != nil {
		return fmt.Errorf("failed to create dual profile: %w", err)
	}
	return nil
}

// GetByPairing retrieves the dual profile for a pairing. Returns nil
// when absent.
func (r *DualProfileRepository) GetByPairing(ctx context.Context, pairingID string) (*models.DualProfile, error) {
	query := `
		SELECT id, pairing_id, started_at, scrapbook
		FROM dual_profiles
		WHERE pairing_id = $1
	`
	var dp models.DualProfile
	var scrapbook []byte
	err := r.db.QueryRow(ctx, query, pairingID).Scan(&dp.ID, &dp.PairingID, &dp.StartedAt, &scrapbook)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dual profile: %w", err)
	}
	if err := json.Unmarshal(scrapbook, &dp.Scrapbook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scrapbook: %w", err)
	}
	return &dp, nil
}

// UpdateStartTime sets when the relationship started.
func (r *DualProfileRepository) UpdateStartTime(ctx context.Context, pairingID string, startedAt time.Time) error {
	query := `UPDATE dual_profiles SET started_at = $2 WHERE pairing_id = $1`
	result, err := r.db.Exec(ctx, query, pairingID, startedAt)
	if err != nil {
		return fmt.Errorf("failed to update start time: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("dual profile not found")
	}
	return nil
}

// UpdateScrapbook replaces the scrapbook for a pairing.
func (r *DualProfileRepository) UpdateScrapbook(ctx context.Context, pairingID string, scrapbook []models.ScrapbookEntry) error {
	data, err := json.Marshal(scrapbook)
	if err != nil {
		return fmt.Errorf("failed to marshal scrapbook: %w", err)
	}
	query := `UPDATE dual_profiles SET scrapbook = $2 WHERE pairing_id = $1`
	result, err := r.db.Exec(ctx, query, pairingID, data)
	if err != nil {
		return fmt.Errorf("failed to update scrapbook: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("dual profile not found")
	}
	return nil
}

// DeleteByPairing removes the dual profile for a pairing.
func (r *DualProfileRepository) DeleteByPairing(ctx context.Context, pairingID string) error {
	query := `DELETE FROM dual_profiles WHERE pairing_id = $1`
	if _, err := r.db.Exec(ctx, query, pairingID); err != nil {
		return fmt.Errorf("failed to delete dual profile: %w", err)
	}
	return nil
}
