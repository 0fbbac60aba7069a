package models

import "time"

// User represents a user account. Accounts are anonymous: a user is
// identified by an opaque ID, and partners find each other via the
// short invite code.
type User struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Token     string    `json:"token,omitempty"`
	PushToken *string   `json:"push_token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PairRequest is a one-sided, pending proposal to form a pairing.
// A user can have at most one outstanding request as sender.
type PairRequest struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	CreatedAt time.Time `json:"created_at"`
}

// Pairing is a confirmed, mutual, exclusive two-user relationship.
// The pair is unordered; UserA/UserB carry no meaning beyond storage.
type Pairing struct {
	ID        string    `json:"id"`
	UserA     string    `json:"user_a"`
	UserB     string    `json:"user_b"`
	CreatedAt time.Time `json:"created_at"`
}

// Contains reports whether user is one of the pairing's members.
func (p *Pairing) Contains(user string) bool {
	return p.UserA == user || p.UserB == user
}

// PartnerOf returns the other member of the pairing, or "" if user is
// not a member.
func (p *Pairing) PartnerOf(user string) string {
	switch user {
	case p.UserA:
		return p.UserB
	case p.UserB:
		return p.UserA
	}
	return ""
}

// DualPost is a jointly-authored post. It is proposed by one pair
// member and only becomes visible once the other member approves it.
// Proposer and approver are fixed at proposal time and share ownership
// of the record equally.
type DualPost struct {
	ID       string    `json:"id"`
	Approved bool      `json:"approved"`
	Content  string    `json:"content"`
	Image    string    `json:"image"`
	Date     time.Time `json:"date"`
	Proposer string    `json:"proposer"`
	Approver string    `json:"approver"`
}

// DualPostUpdate is a partial update to an unapproved dual post.
// Nil fields are left unchanged.
type DualPostUpdate struct {
	Content *string `json:"content,omitempty"`
	Image   *string `json:"image,omitempty"`
}

// Profile holds a user's display name.
type Profile struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// ScrapbookEntry is a single captioned image in a pair's shared scrapbook.
type ScrapbookEntry struct {
	Image   string    `json:"image"`
	Caption string    `json:"caption"`
	Date    time.Time `json:"date"`
}

// DualProfile is the shared profile of a pairing: when the relationship
// started, plus a scrapbook of moments. Created when the pairing forms
// and removed with it.
type DualProfile struct {
	ID        string           `json:"id"`
	PairingID string           `json:"pairing_id"`
	StartedAt time.Time        `json:"started_at"`
	Scrapbook []ScrapbookEntry `json:"scrapbook"`
}
