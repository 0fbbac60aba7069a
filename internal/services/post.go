package services

import (
	"context"
	"fmt"
	"time"

	"duet-backend/internal/apperr"
	"duet-backend/internal/models"

	"github.com/google/uuid"
)

// DualPostStore is the post persistence the workflow needs.
type DualPostStore interface {
	Create(ctx context.Context, post *models.DualPost) error
	GetByID(ctx context.Context, id string) (*models.DualPost, error)
	Update(ctx context.Context, id string, update models.DualPostUpdate) error
	SetApproved(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ListApproved(ctx context.Context, limit int) ([]*models.DualPost, error)
	ListByAuthor(ctx context.Context, userID string) ([]*models.DualPost, error)
}

// PostService runs the dual-post approval workflow. A post is proposed
// by one pair member, then either approved by the designated approver
// (after which it is immutable), denied by the approver, or withdrawn
// by either author.
type PostService struct {
	posts DualPostStore
}

// NewPostService creates a new post service
func NewPostService(posts DualPostStore) *PostService {
	return &PostService{posts: posts}
}

// Propose creates an unapproved dual post with the caller as proposer
// and their partner as approver.
func (s *PostService) Propose(ctx context.Context, proposer, approver, content, image string) (*models.DualPost, error) {
	post := &models.DualPost{
		ID:       uuid.New().String(),
		Approved: false,
		Content:  content,
		Image:    image,
		Date:     time.Now(),
		Proposer: proposer,
		Approver: approver,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to propose dual post: %w", err)
	}
	return post, nil
}

// Modify applies a partial update to an unapproved post. Only the
// proposer or approver may modify, and never after approval.
func (s *PostService) Modify(ctx context.Context, id, author string, update models.DualPostUpdate) (*models.DualPost, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, apperr.NotFound("this post doesn't exist")
	}
	if post.Approved {
		return nil, apperr.NotAllowed("you cannot modify a dual post that has already been approved")
	}
	if author != post.Proposer && author != post.Approver {
		return nil, apperr.NotAllowed("not authorized to modify this post")
	}

	if err := s.posts.Update(ctx, id, update); err != nil {
		return nil, err
	}
	if update.Content != nil {
		post.Content = *update.Content
	}
	if update.Image != nil {
		post.Image = *update.Image
	}
	return post, nil
}

// Approve marks a post approved. Only the designated approver may
// approve; the post is immutable afterwards.
func (s *PostService) Approve(ctx context.Context, id, approver string) (*models.DualPost, error) {
	post, err := s.canApproveOrDeny(ctx, id, approver)
	if err != nil {
		return nil, err
	}
	if err := s.posts.SetApproved(ctx, id); err != nil {
		return nil, err
	}
	post.Approved = true
	return post, nil
}

// Deny rejects a post. Same authorization as Approve; the record is
// removed entirely rather than kept in a rejected state. An approved
// post can no longer be denied, only withdrawn through Delete.
func (s *PostService) Deny(ctx context.Context, id, denier string) (*models.DualPost, error) {
	post, err := s.canApproveOrDeny(ctx, id, denier)
	if err != nil {
		return nil, err
	}
	if post.Approved {
		return nil, apperr.NotAllowed("you cannot deny a dual post that has already been approved")
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete withdraws posts in either approval state. Every id is
// authorized before any deletion happens, so a batch that fails
// authorization anywhere performs zero deletions.
func (s *PostService) Delete(ctx context.Context, ids []string, deleter string) error {
	for _, id := range ids {
		if err := s.canDelete(ctx, id, deleter); err != nil {
			return err
		}
	}
	for _, id := range ids {
		if err := s.posts.Delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// ListApproved returns up to limit approved posts, newest first.
func (s *PostService) ListApproved(ctx context.Context, limit int) ([]*models.DualPost, error) {
	if limit < 0 {
		return nil, apperr.InvalidArgument("number of posts must be a non-negative integer")
	}
	if limit == 0 {
		return []*models.DualPost{}, nil
	}
	posts, err := s.posts.ListApproved(ctx, limit)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.DualPost{}
	}
	return posts, nil
}

// ListByAuthor returns all posts, any state, where the user is proposer
// or approver.
func (s *PostService) ListByAuthor(ctx context.Context, userID string) ([]*models.DualPost, error) {
	posts, err := s.posts.ListByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.DualPost{}
	}
	return posts, nil
}

func (s *PostService) canApproveOrDeny(ctx context.Context, id, user string) (*models.DualPost, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, apperr.NotFound("this post doesn't exist")
	}
	if post.Approver != user {
		return nil, apperr.NotAllowed("not authorized to approve or deny this post")
	}
	return post, nil
}

func (s *PostService) canDelete(ctx context.Context, id, deleter string) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if post == nil {
		return apperr.NotFound("this post doesn't exist")
	}
	if deleter != post.Proposer && deleter != post.Approver {
		return apperr.NotAllowed("not authorized to delete this post")
	}
	return nil
}
