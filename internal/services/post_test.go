package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"duet-backend/internal/apperr"
	"duet-backend/internal/models"
)

// fakePostStore is an in-memory DualPostStore.
type fakePostStore struct {
	mu    sync.Mutex
	posts map[string]*models.DualPost
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{posts: make(map[string]*models.DualPost)}
}

func (f *fakePostStore) Create(_ context.Context, post *models.DualPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *post
	f.posts[post.ID] = &copied
	return nil
}

func (f *fakePostStore) GetByID(_ context.Context, id string) (*models.DualPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok {
		return nil, nil
	}
	copied := *post
	return &copied, nil
}

func (f *fakePostStore) Update(_ context.Context, id string, update models.DualPostUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok {
		return nil
	}
	if update.Content != nil {
		post.Content = *update.Content
	}
	if update.Image != nil {
		post.Image = *update.Image
	}
	return nil
}

func (f *fakePostStore) SetApproved(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if post, ok := f.posts[id]; ok {
		post.Approved = true
	}
	return nil
}

func (f *fakePostStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.posts, id)
	return nil
}

func (f *fakePostStore) ListApproved(_ context.Context, limit int) ([]*models.DualPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.DualPost
	for _, post := range f.posts {
		if post.Approved {
			copied := *post
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePostStore) ListByAuthor(_ context.Context, userID string) ([]*models.DualPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.DualPost
	for _, post := range f.posts {
		if post.Proposer == userID || post.Approver == userID {
			copied := *post
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (f *fakePostStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

func TestPostLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newFakePostStore()
	svc := NewPostService(store)

	post, err := svc.Propose(ctx, "alice", "bob", "our first hike", "hike.jpg")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if post.Approved {
		t.Fatal("proposed post must start unapproved")
	}
	if post.Proposer != "alice" || post.Approver != "bob" {
		t.Fatalf("wrong authors: %+v", post)
	}

	approved, err := svc.ListApproved(ctx, 10)
	if err != nil {
		t.Fatalf("list approved failed: %v", err)
	}
	if len(approved) != 0 {
		t.Fatalf("unapproved post must not be listed, got %d", len(approved))
	}

	post, err = svc.Approve(ctx, post.ID, "bob")
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if !post.Approved {
		t.Fatal("approve must mark the post approved")
	}

	approved, err = svc.ListApproved(ctx, 10)
	if err != nil {
		t.Fatalf("list approved failed: %v", err)
	}
	if len(approved) != 1 || approved[0].ID != post.ID {
		t.Fatalf("expected the approved post listed, got %+v", approved)
	}
}

func TestModify(t *testing.T) {
	ctx := context.Background()
	store := newFakePostStore()
	svc := NewPostService(store)

	post, err := svc.Propose(ctx, "alice", "bob", "draft", "old.jpg")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}

	content := "final"
	updated, err := svc.Modify(ctx, post.ID, "bob", models.DualPostUpdate{Content: &content})
	if err != nil {
		t.Fatalf("modify failed: %v", err)
	}
	if updated.Content != "final" {
		t.Fatalf("content not updated: %q", updated.Content)
	}
	if updated.Image != "old.jpg" {
		t.Fatalf("omitted field must keep its value, got %q", updated.Image)
	}

	if _, err := svc.Modify(ctx, post.ID, "carol", models.DualPostUpdate{Content: &content}); apperr.KindOf(err) != apperr.KindNotAllowed {
		t.Fatalf("expected NotAllowed for stranger, got %v", err)
	}
	if _, err := svc.Modify(ctx, "missing", "alice", models.DualPostUpdate{Content: &content}); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected NotFound for unknown id, got %v", err)
	}

	if _, err := svc.Approve(ctx, post.ID, "bob"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if _, err := svc.Modify(ctx, post.ID, "alice", models.DualPostUpdate{Content: &content}); apperr.KindOf(err) != apperr.KindNotAllowed {
		t.Fatalf("expected NotAllowed after approval, got %v", err)
	}
}

func TestApproveAuthorization(t *testing.T) {
	ctx := context.Background()
	store := newFakePostStore()
	svc := NewPostService(store)

	post, err := svc.Propose(ctx, "alice", "bob", "content", "")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}

	// Neither the proposer nor a stranger may approve.
	if _, err := svc.Approve(ctx, post.ID, "alice"); apperr.KindOf(err) != apperr.KindNotAllowed {
		t.Fatalf("expected NotAllowed for proposer, got %v", err)
	}
	if _, err := svc.Approve(ctx, post.ID, "carol"); apperr.KindOf(err) != apperr.KindNotAllowed {
		t.Fatalf("expected NotAllowed for stranger, got %v", err)
	}
	if _, err := svc.Approve(ctx, "missing", "bob"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected NotFound for unknown id, got %v", err)
	}

	if _, err := svc.Approve(ctx, post.ID, "bob"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
}

func TestDenyRemovesPost(t *testing.T) {
	ctx := context.Background()
	store := newFakePostStore()
	svc := NewPostService(store)

	post, err := svc.Propose(ctx, "alice", "bob", "content", "")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}

	if _, err := svc.Deny(ctx, post.ID, "alice"); apperr.KindOf(err) != apperr.KindNotAllowed {
		t.Fatalf("expected NotAllowed for proposer, got %v", err)
	}

	denied, err := svc.Deny(ctx, post.ID, "bob")
	if err != nil {
		t.Fatalf("deny failed: %v", err)
	}
	if denied.Proposer != "alice" {
		t.Fatalf("denied post has wrong proposer: %+v", denied)
	}
	if store.count() != 0 {
		t.Fatal("deny must remove the post")
	}

	// Denied posts are gone, not in a rejected state.
	if _, err := svc.Approve(ctx, post.ID, "bob"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected NotFound after deny, got %v", err)
	}
}

func TestDenyApprovedPostNotAllowed(t *testing.T) {
	ctx := context.Background()
	store := newFakePostStore()
	svc := NewPostService(store)

	post, err := svc.Propose(ctx, "alice", "bob", "content", "")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if _, err := svc.Approve(ctx, post.ID, "bob"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	if _, err := svc.Deny(ctx, post.ID, "bob"); apperr.KindOf(err) != apperr.KindNotAllowed {
		t.Fatalf("expected NotAllowed denying an approved post, got %v", err)
	}
	if store.count() != 1 {
		t.Fatal("rejected deny must not delete the post")
	}
}

func TestBatchDeleteAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := newFakePostStore()
	svc := NewPostService(store)

	mine, err := svc.Propose(ctx, "alice", "bob", "ours", "")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	theirs, err := svc.Propose(ctx, "carol", "dave", "not ours", "")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}

	err = svc.Delete(ctx, []string{mine.ID, theirs.ID}, "alice")
	if apperr.KindOf(err) != apperr.KindNotAllowed {
		t.Fatalf("expected NotAllowed for foreign post in batch, got %v", err)
	}
	if store.count() != 2 {
		t.Fatalf("failed batch must delete nothing, %d posts remain", store.count())
	}

	err = svc.Delete(ctx, []string{mine.ID, "missing"}, "alice")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected NotFound for unknown id in batch, got %v", err)
	}
	if store.count() != 2 {
		t.Fatalf("failed batch must delete nothing, %d posts remain", store.count())
	}

	if err := svc.Delete(ctx, []string{mine.ID}, "alice"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if store.count() != 1 {
		t.Fatalf("expected one post left, got %d", store.count())
	}
}

func TestDeleteApprovedPostAllowed(t *testing.T) {
	ctx := context.Background()
	store := newFakePostStore()
	svc := NewPostService(store)

	post, err := svc.Propose(ctx, "alice", "bob", "content", "")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if _, err := svc.Approve(ctx, post.ID, "bob"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	// Approval freezes edits but not withdrawal, by either author.
	if err := svc.Delete(ctx, []string{post.ID}, "bob"); err != nil {
		t.Fatalf("delete of approved post failed: %v", err)
	}
	if store.count() != 0 {
		t.Fatal("approved post must be deletable")
	}
}

func TestListApproved(t *testing.T) {
	ctx := context.Background()
	store := newFakePostStore()
	svc := NewPostService(store)

	if _, err := svc.ListApproved(ctx, -1); apperr.KindOf(err) != apperr.KindInvalidArgument {
		t.Fatal("expected InvalidArgument for negative limit")
	}

	posts, err := svc.ListApproved(ctx, 0)
	if err != nil {
		t.Fatalf("list with zero limit failed: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Fatalf("zero limit must return an empty slice, got %v", posts)
	}

	base := time.Now()
	for i := 0; i < 3; i++ {
		post, err := svc.Propose(ctx, "alice", "bob", "post", "")
		if err != nil {
			t.Fatalf("propose failed: %v", err)
		}
		store.mu.Lock()
		store.posts[post.ID].Date = base.Add(time.Duration(i) * time.Hour)
		store.mu.Unlock()
		if _, err := svc.Approve(ctx, post.ID, "bob"); err != nil {
			t.Fatalf("approve failed: %v", err)
		}
	}

	posts, err = svc.ListApproved(ctx, 2)
	if err != nil {
		t.Fatalf("list approved failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected limit to cap results at 2, got %d", len(posts))
	}
	if !posts[0].Date.After(posts[1].Date) {
		t.Fatal("expected newest-first ordering")
	}
}

func TestListByAuthor(t *testing.T) {
	ctx := context.Background()
	store := newFakePostStore()
	svc := NewPostService(store)

	proposed, err := svc.Propose(ctx, "alice", "bob", "mine", "")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if _, err := svc.Propose(ctx, "carol", "dave", "other pair", ""); err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	incoming, err := svc.Propose(ctx, "bob", "alice", "from partner", "")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}

	posts, err := svc.ListByAuthor(ctx, "alice")
	if err != nil {
		t.Fatalf("list by author failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected both posts alice authors, got %d", len(posts))
	}
	ids := map[string]bool{posts[0].ID: true, posts[1].ID: true}
	if !ids[proposed.ID] || !ids[incoming.ID] {
		t.Fatalf("wrong posts listed: %+v", posts)
	}

	posts, err = svc.ListByAuthor(ctx, "nobody")
	if err != nil {
		t.Fatalf("list by author failed: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Fatalf("expected empty slice for uninvolved user, got %v", posts)
	}
}
