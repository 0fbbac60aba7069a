package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"duet-backend/internal/apperr"
	"duet-backend/internal/models"
	"duet-backend/internal/repository"

	"github.com/google/uuid"
)

// PairRequestStore is the request persistence the pairing engine needs.
type PairRequestStore interface {
	Create(ctx context.Context, req *models.PairRequest) error
	GetBySender(ctx context.Context, from string) (*models.PairRequest, error)
	Pop(ctx context.Context, from, to string) (*models.PairRequest, error)
	PopBySender(ctx context.Context, from string) (*models.PairRequest, error)
	DeleteByUser(ctx context.Context, userID string) error
}

// PairingStore is the pairing persistence the pairing engine needs.
type PairingStore interface {
	Create(ctx context.Context, pairing *models.Pairing) error
	GetByUser(ctx context.Context, userID string) (*models.Pairing, error)
	Exists(ctx context.Context, a, b string) (bool, error)
	ExistsForEither(ctx context.Context, a, b string) (bool, error)
	PopByUser(ctx context.Context, userID string) (*models.Pairing, error)
}

// PairingService enforces exclusive, mutual-consent pairing: each user
// has at most one active pairing and at most one outstanding sent
// request, and a pairing only ever forms from two reciprocal requests.
type PairingService struct {
	requests PairRequestStore
	pairings PairingStore
}

// NewPairingService creates a new pairing service
func NewPairingService(requests PairRequestStore, pairings PairingStore) *PairingService {
	return &PairingService{
		requests: requests,
		pairings: pairings,
	}
}

// Request records a pairing request from one user to another. If the
// recipient has already requested the sender, the reciprocal request is
// consumed and the pairing is formed; the returned pairing is non-nil
// only in that case. Whichever of two concurrent mutual requests pops
// the reciprocal first forms the pairing; the loser finds no match and
// records nothing, because its own request insert hits the
// one-outstanding-request constraint held by the consumed row's sender.
func (s *PairingService) Request(ctx context.Context, from, to string) (*models.Pairing, error) {
	if from == to {
		return nil, apperr.InvalidArgument("you cannot request yourself")
	}

	// Either party already having a partner rules the request out.
	paired, err := s.pairings.ExistsForEither(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if paired {
		return nil, apperr.Conflict("you or the requested user already has a partner")
	}

	existing, err := s.requests.GetBySender(ctx, from)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("you have already requested someone; remove that request first")
	}

	// The pop is a single indivisible store operation, so exactly one
	// of two interleaved mutual requests can consume the reciprocal.
	reciprocal, err := s.requests.Pop(ctx, to, from)
	if err != nil {
		return nil, err
	}
	if reciprocal != nil {
		pairing := &models.Pairing{
			ID:        uuid.New().String(),
			UserA:     from,
			UserB:     to,
			CreatedAt: time.Now(),
		}
		if err := s.pairings.Create(ctx, pairing); err != nil {
			return nil, fmt.Errorf("failed to create pairing: %w", err)
		}
		return pairing, nil
	}

	req := &models.PairRequest{
		ID:        uuid.New().String(),
		From:      from,
		To:        to,
		CreatedAt: time.Now(),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		if errors.Is(err, repository.ErrDuplicateSender) {
			return nil, apperr.Conflict("you have already requested someone; remove that request first")
		}
		return nil, err
	}
	return nil, nil
}

// RemoveRequest withdraws the request sent by a user.
func (s *PairingService) RemoveRequest(ctx context.Context, from string) error {
	req, err := s.requests.PopBySender(ctx, from)
	if err != nil {
		return err
	}
	if req == nil {
		return apperr.NotFound("you have not requested anyone")
	}
	return nil
}

// RemoveExclusive dissolves the pairing containing a user and returns
// it so orchestration can tear down the pair's shared state.
func (s *PairingService) RemoveExclusive(ctx context.Context, userID string) (*models.Pairing, error) {
	pairing, err := s.pairings.PopByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pairing == nil {
		return nil, apperr.NotFound("you do not have a partner")
	}
	return pairing, nil
}

// AreExclusive reports whether the unordered pairing {a, b} exists.
func (s *PairingService) AreExclusive(ctx context.Context, a, b string) (bool, error) {
	return s.pairings.Exists(ctx, a, b)
}

// Partner returns the partner of a user.
func (s *PairingService) Partner(ctx context.Context, userID string) (string, error) {
	pairing, err := s.pairings.GetByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if pairing == nil {
		return "", apperr.NotFound("you do not have a partner")
	}
	return pairing.PartnerOf(userID), nil
}

// PairingOf returns the pairing containing a user.
func (s *PairingService) PairingOf(ctx context.Context, userID string) (*models.Pairing, error) {
	pairing, err := s.pairings.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pairing == nil {
		return nil, apperr.NotFound("you do not have a partner")
	}
	return pairing, nil
}

// RemoveAllForUser clears the user's requests on account deletion.
// Pairing teardown goes through RemoveExclusive so shared state is
// dismantled with it.
func (s *PairingService) RemoveAllForUser(ctx context.Context, userID string) error {
	return s.requests.DeleteByUser(ctx, userID)
}
