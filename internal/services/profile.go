package services

import (
	"context"
	"fmt"
	"time"

	"duet-backend/internal/apperr"
	"duet-backend/internal/models"

	"github.com/google/uuid"
)

// ProfileStore is the profile persistence the profile service needs.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
	Delete(ctx context.Context, userID string) error
}

// DualProfileStore is the shared-profile persistence the profile
// service needs.
type DualProfileStore interface {
	Create(ctx context.Context, dp *models.DualProfile) error
	GetByPairing(ctx context.Context, pairingID string) (*models.DualProfile, error)
	UpdateStartTime(ctx context.Context, pairingID string, startedAt time.Time) error
	UpdateScrapbook(ctx context.Context, pairingID string, scrapbook []models.ScrapbookEntry) error
	DeleteByPairing(ctx context.Context, pairingID string) error
}

// ProfileService manages per-user display names and the shared profile
// a pair keeps together.
type ProfileService struct {
	profiles     ProfileStore
	dualProfiles DualProfileStore
}

// NewProfileService creates a new profile service
func NewProfileService(profiles ProfileStore, dualProfiles DualProfileStore) *ProfileService {
	return &ProfileService{
		profiles:     profiles,
		dualProfiles: dualProfiles,
	}
}

// SetProfile creates or updates a user's display name.
func (s *ProfileService) SetProfile(ctx context.Context, userID, name string) error {
	return s.profiles.Upsert(ctx, &models.Profile{UserID: userID, Name: name})
}

// GetProfile retrieves a user's profile.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperr.NotFound("could not find profile")
	}
	return profile, nil
}

// DeleteProfile removes a user's profile.
func (s *ProfileService) DeleteProfile(ctx context.Context, userID string) error {
	return s.profiles.Delete(ctx, userID)
}

// CreateDualProfile creates the shared profile for a freshly formed
// pairing, with an empty scrapbook.
func (s *ProfileService) CreateDualProfile(ctx context.Context, pairingID string, startedAt time.Time) (*models.DualProfile, error) {
	dp := &models.DualProfile{
		ID:        uuid.New().String(),
		PairingID: pairingID,
		StartedAt: startedAt,
		Scrapbook: []models.ScrapbookEntry{},
	}
	if err := s.dualProfiles.Create(ctx, dp); err != nil {
		return nil, fmt.Errorf("failed to create dual profile: %w", err)
	}
	return dp, nil
}

// GetDualProfile retrieves the shared profile for a pairing.
func (s *ProfileService) GetDualProfile(ctx context.Context, pairingID string) (*models.DualProfile, error) {
	dp, err := s.dualProfiles.GetByPairing(ctx, pairingID)
	if err != nil {
		return nil, err
	}
	if dp == nil {
		return nil, apperr.NotFound("could not find dual profile")
	}
	return dp, nil
}

// UpdateStartTime sets when the relationship started.
func (s *ProfileService) UpdateStartTime(ctx context.Context, pairingID string, startedAt time.Time) error {
	dp, err := s.dualProfiles.GetByPairing(ctx, pairingID)
	if err != nil {
		return err
	}
	if dp == nil {
		return apperr.NotFound("could not find dual profile")
	}
	return s.dualProfiles.UpdateStartTime(ctx, pairingID, startedAt)
}

// AppendScrapbookEntry adds a captioned image to the pair's scrapbook.
func (s *ProfileService) AppendScrapbookEntry(ctx context.Context, pairingID string, entry models.ScrapbookEntry) (*models.DualProfile, error) {
	dp, err := s.dualProfiles.GetByPairing(ctx, pairingID)
	if err != nil {
		return nil, err
	}
	if dp == nil {
		return nil, apperr.NotFound("could not find dual profile")
	}
	dp.Scrapbook = append(dp.Scrapbook, entry)
	if err := s.dualProfiles.UpdateScrapbook(ctx, pairingID, dp.Scrapbook); err != nil {
		return nil, err
	}
	return dp, nil
}

// DeleteDualProfile removes the shared profile for a pairing.
func (s *ProfileService) DeleteDualProfile(ctx context.Context, pairingID string) error {
	return s.dualProfiles.DeleteByPairing(ctx, pairingID)
}
