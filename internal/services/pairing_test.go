package services

import (
	"context"
	"sync"
	"testing"

	"duet-backend/internal/apperr"
	"duet-backend/internal/models"
	"duet-backend/internal/repository"
)

// fakeRequestStore is an in-memory PairRequestStore. Pop is atomic
// under the mutex, matching the store's find-and-remove contract.
type fakeRequestStore struct {
	mu   sync.Mutex
	reqs map[string]*models.PairRequest // keyed by sender
}

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{reqs: make(map[string]*models.PairRequest)}
}

func (f *fakeRequestStore) Create(_ context.Context, req *models.PairRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reqs[req.From]; ok {
		return repository.ErrDuplicateSender
	}
	f.reqs[req.From] = req
	return nil
}

func (f *fakeRequestStore) GetBySender(_ context.Context, from string) (*models.PairRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[from], nil
}

func (f *fakeRequestStore) Pop(_ context.Context, from, to string) (*models.PairRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.reqs[from]
	if !ok || req.To != to {
		return nil, nil
	}
	delete(f.reqs, from)
	return req, nil
}

func (f *fakeRequestStore) PopBySender(_ context.Context, from string) (*models.PairRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.reqs[from]
	if !ok {
		return nil, nil
	}
	delete(f.reqs, from)
	return req, nil
}

func (f *fakeRequestStore) DeleteByUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sender, req := range f.reqs {
		if req.From == userID || req.To == userID {
			delete(f.reqs, sender)
		}
	}
	return nil
}

func (f *fakeRequestStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

// fakePairingStore is an in-memory PairingStore.
type fakePairingStore struct {
	mu       sync.Mutex
	pairings []*models.Pairing
}

func (f *fakePairingStore) Create(_ context.Context, pairing *models.Pairing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pairings = append(f.pairings, pairing)
	return nil
}

func (f *fakePairingStore) GetByUser(_ context.Context, userID string) (*models.Pairing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pairings {
		if p.Contains(userID) {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePairingStore) Exists(_ context.Context, a, b string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pairings {
		if (p.UserA == a && p.UserB == b) || (p.UserA == b && p.UserB == a) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePairingStore) ExistsForEither(_ context.Context, a, b string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pairings {
		if p.Contains(a) || p.Contains(b) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePairingStore) PopByUser(_ context.Context, userID string) (*models.Pairing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.pairings {
		if p.Contains(userID) {
			f.pairings = append(f.pairings[:i], f.pairings[i+1:]...)
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePairingStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pairings)
}

func newPairingService() (*PairingService, *fakeRequestStore, *fakePairingStore) {
	requests := newFakeRequestStore()
	pairings := &fakePairingStore{}
	return NewPairingService(requests, pairings), requests, pairings
}

func TestMutualRequestsFormSinglePairing(t *testing.T) {
	ctx := context.Background()
	svc, requests, pairings := newPairingService()

	pairing, err := svc.Request(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	if pairing != nil {
		t.Fatal("first request must not form a pairing")
	}
	if requests.count() != 1 {
		t.Fatalf("expected one outstanding request, got %d", requests.count())
	}

	pairing, err = svc.Request(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("reciprocal request failed: %v", err)
	}
	if pairing == nil {
		t.Fatal("reciprocal request must form the pairing")
	}
	if !pairing.Contains("alice") || !pairing.Contains("bob") {
		t.Fatalf("pairing has wrong members: %+v", pairing)
	}

	if pairings.count() != 1 {
		t.Fatalf("expected exactly one pairing, got %d", pairings.count())
	}
	if requests.count() != 0 {
		t.Fatalf("expected zero residual requests, got %d", requests.count())
	}
}

func TestSelfRequestRejected(t *testing.T) {
	svc, _, _ := newPairingService()

	_, err := svc.Request(context.Background(), "alice", "alice")
	if apperr.KindOf(err) != apperr.KindInvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestDuplicateRequestConflict(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newPairingService()

	if _, err := svc.Request(ctx, "alice", "bob"); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	_, err := svc.Request(ctx, "alice", "carol")
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected Conflict for second request from same sender, got %v", err)
	}
}

func TestRequestWhilePairedConflict(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newPairingService()

	mustPair(t, svc, "alice", "bob")

	if _, err := svc.Request(ctx, "alice", "carol"); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected Conflict for paired sender, got %v", err)
	}
	if _, err := svc.Request(ctx, "carol", "bob"); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected Conflict when target is paired, got %v", err)
	}
}

func TestAreExclusiveSymmetric(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newPairingService()

	mustPair(t, svc, "alice", "bob")

	ab, err := svc.AreExclusive(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("AreExclusive failed: %v", err)
	}
	ba, err := svc.AreExclusive(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("AreExclusive failed: %v", err)
	}
	if !ab || !ba {
		t.Fatalf("AreExclusive must be symmetric and true: ab=%v ba=%v", ab, ba)
	}

	other, err := svc.AreExclusive(ctx, "alice", "carol")
	if err != nil {
		t.Fatalf("AreExclusive failed: %v", err)
	}
	if other {
		t.Fatal("AreExclusive must be false for non-pair")
	}
}

func TestRemoveRequest(t *testing.T) {
	ctx := context.Background()
	svc, requests, _ := newPairingService()

	if err := svc.RemoveRequest(ctx, "alice"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected NotFound with no request, got %v", err)
	}

	if _, err := svc.Request(ctx, "alice", "bob"); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if err := svc.RemoveRequest(ctx, "alice"); err != nil {
		t.Fatalf("remove request failed: %v", err)
	}
	if requests.count() != 0 {
		t.Fatalf("expected zero requests after removal, got %d", requests.count())
	}
}

func TestRemoveExclusive(t *testing.T) {
	ctx := context.Background()
	svc, _, pairings := newPairingService()

	if _, err := svc.RemoveExclusive(ctx, "alice"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected NotFound with no pairing, got %v", err)
	}

	mustPair(t, svc, "alice", "bob")

	removed, err := svc.RemoveExclusive(ctx, "bob")
	if err != nil {
		t.Fatalf("remove exclusive failed: %v", err)
	}
	if !removed.Contains("alice") || !removed.Contains("bob") {
		t.Fatalf("removed pairing has wrong members: %+v", removed)
	}
	if pairings.count() != 0 {
		t.Fatalf("expected zero pairings after removal, got %d", pairings.count())
	}

	// Both members are free again.
	if _, err := svc.Request(ctx, "alice", "carol"); err != nil {
		t.Fatalf("request after unpairing failed: %v", err)
	}
}

func TestPartner(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newPairingService()

	if _, err := svc.Partner(ctx, "alice"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected NotFound with no pairing, got %v", err)
	}

	mustPair(t, svc, "alice", "bob")

	partner, err := svc.Partner(ctx, "alice")
	if err != nil {
		t.Fatalf("partner lookup failed: %v", err)
	}
	if partner != "bob" {
		t.Fatalf("expected partner bob, got %q", partner)
	}
	partner, err = svc.Partner(ctx, "bob")
	if err != nil {
		t.Fatalf("partner lookup failed: %v", err)
	}
	if partner != "alice" {
		t.Fatalf("expected partner alice, got %q", partner)
	}
}

func TestConcurrentMutualRequestsFormAtMostOnePairing(t *testing.T) {
	ctx := context.Background()
	svc, _, pairings := newPairingService()

	// Seed one half so the reciprocal pop is the contended step.
	if _, err := svc.Request(ctx, "alice", "bob"); err != nil {
		t.Fatalf("seed request failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Only one pop can consume alice's request; every other
			// call fails one of the checks.
			_, _ = svc.Request(ctx, "bob", "alice")
		}()
	}
	wg.Wait()

	if pairings.count() != 1 {
		t.Fatalf("expected exactly one pairing, got %d", pairings.count())
	}
}

func mustPair(t *testing.T, svc *PairingService, a, b string) {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.Request(ctx, a, b); err != nil {
		t.Fatalf("request %s->%s failed: %v", a, b, err)
	}
	pairing, err := svc.Request(ctx, b, a)
	if err != nil {
		t.Fatalf("request %s->%s failed: %v", b, a, err)
	}
	if pairing == nil {
		t.Fatalf("pairing %s/%s did not form", a, b)
	}
}
