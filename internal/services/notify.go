package services

import (
	"context"

	"duet-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// Notifier fans partner events out over the best available channel:
// the live WebSocket connection when the partner is online, an APNs
// push when they are not but have a registered device. Delivery is
// best-effort and never fails the triggering request.
type Notifier struct {
	hub   *WSHub
	push  *PushService // nil when APNs is not configured
	users UserStore
}

// NewNotifier creates a new notifier. push may be nil.
func NewNotifier(hub *WSHub, push *PushService, users UserStore) *Notifier {
	return &Notifier{
		hub:   hub,
		push:  push,
		users: users,
	}
}

// RequestReceived tells a user someone requested to pair with them.
func (n *Notifier) RequestReceived(ctx context.Context, userID string) {
	n.notify(ctx, userID, "request_received", "Someone wants to be your partner!", nil)
}

// PairCreated tells a user their pairing formed.
func (n *Notifier) PairCreated(ctx context.Context, userID string, pairing *models.Pairing) {
	n.notify(ctx, userID, "pair_created", "You have a new partner!", pairing)
}

// PairRemoved tells a user their pairing was dissolved.
func (n *Notifier) PairRemoved(ctx context.Context, userID string) {
	n.notify(ctx, userID, "pair_removed", "Your pairing has ended", nil)
}

// PostProposed tells the approver a dual post awaits their decision.
func (n *Notifier) PostProposed(ctx context.Context, userID string, post *models.DualPost) {
	n.notify(ctx, userID, "post_proposed", "Your partner proposed a dual post", post)
}

// PostApproved tells the proposer their post was approved.
func (n *Notifier) PostApproved(ctx context.Context, userID string, post *models.DualPost) {
	n.notify(ctx, userID, "post_approved", "Your partner approved your dual post", post)
}

// PostDenied tells the proposer their post was denied.
func (n *Notifier) PostDenied(ctx context.Context, userID string) {
	n.notify(ctx, userID, "post_denied", "Your partner denied your dual post", nil)
}

func (n *Notifier) notify(ctx context.Context, userID, eventType, alert string, data interface{}) {
	if n.hub.IsOnline(userID) {
		if err := n.hub.SendToUser(userID, WSMessage{Type: eventType, Message: alert, Data: data}); err == nil {
			return
		}
		// Fall through to push; the write may have torn the connection down.
	}

	if n.push == nil {
		return
	}
	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to look up user for push")
		return
	}
	if user == nil || user.PushToken == nil {
		return
	}
	if err := n.push.Send(*user.PushToken, alert); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("event", eventType).Msg("Failed to deliver push")
	}
}
