// Package access decides who may join, read and write a room.
//
//	kind          read                       write
//	public        open                       open
//	private       password once, at join     membership (gated at join)
//	announcement  open                       password on every write
//
// Decisions are pure functions of the room kind, the stored password hash and
// the password presented with the request; the package keeps no state.
package access

import (
	"crypton/backend/internal/models"
	"fmt"
)

// Verifier checks a password against a stored hash.
type Verifier interface {
	Verify(password, hash string) bool
}

// Status answers "does the client need to prompt for a password?".
type Status struct {
	RequiresPassword bool `json:"requires_password"`
	// PasswordCorrect is only reported for private rooms.
	PasswordCorrect *bool `json:"password_correct,omitempty"`
	IsAnnouncement  bool  `json:"is_announcement,omitempty"`
}

// Policy applies the decision table with a concrete Verifier.
type Policy struct {
	verifier Verifier
}

func NewPolicy(v Verifier) *Policy {
	return &Policy{verifier: v}
}

// CanJoin returns models.ErrAccessDenied when a private room is joined without
// the right password. Public and announcement rooms are always joinable.
func (p *Policy) CanJoin(kind models.RoomKind, hash, password string) error {
	if kind != models.RoomPrivate {
		return nil
	}
	if password == "" {
		return fmt.Errorf("password required: %w", models.ErrAccessDenied)
	}
	if !p.verify(password, hash) {
		return fmt.Errorf("incorrect password: %w", models.ErrAccessDenied)
	}
	return nil
}

func (p *Policy) PasswordStatus(kind models.RoomKind, hash, password string) Status {
	switch kind {
	case models.RoomAnnouncement:
		return Status{RequiresPassword: false, IsAnnouncement: true}
	case models.RoomPrivate:
		correct := p.verify(password, hash)
		return Status{RequiresPassword: !correct, PasswordCorrect: &correct}
	default:
		return Status{RequiresPassword: false}
	}
}

// CanWrite re-verifies the password for announcement rooms on every call.
// Private rooms were gated when the caller joined, so the password is not
// checked again per message.
func (p *Policy) CanWrite(kind models.RoomKind, hash, password string) bool {
	if kind == models.RoomAnnouncement {
		return p.verify(password, hash)
	}
	return true
}

// CanRead gates live subscriptions: private rooms are readable by members only.
func (p *Policy) CanRead(kind models.RoomKind, isMember bool) bool {
	if kind == models.RoomPrivate {
		return isMember
	}
	return true
}

func (p *Policy) verify(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	return p.verifier.Verify(password, hash)
}
