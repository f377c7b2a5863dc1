// Package guard implements a confirmation-token protocol for destructive
// operations. A destructive call without a token runs as a dry run: the
// intended change is described and a short-lived token issued. Presenting
// that token executes the change. The content-model core below this layer
// never confirms anything; it always executes immediately.
package guard

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ellsworth/berkano/internal/apperr"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 5 * time.Minute

// Operation names shared by every transport that guards the same call.
const (
	OpDeleteLines = "delete_lines"
)

// Pending describes a confirmed-later operation.
type Pending struct {
	Token     string    `json:"token"`
	Operation string    `json:"operation"`
	Path      string    `json:"path"`
	Preview   string    `json:"preview"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store issues and redeems confirmation tokens. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[string]Pending
	now     func() time.Time
}

// NewStore creates a token store with the given TTL (DefaultTTL when <= 0).
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:     ttl,
		pending: make(map[string]Pending),
		now:     time.Now,
	}
}

// Issue records a pending operation and returns its token. preview is a
// human-readable description of what will happen on confirmation (e.g. the
// lines about to be deleted).
func (s *Store) Issue(operation, path, preview string) Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()

	p := Pending{
		Token:     uuid.NewString(),
		Operation: operation,
		Path:      path,
		Preview:   preview,
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.pending[p.Token] = p
	return p
}

// Redeem validates and consumes a token. The operation and path must match
// what the token was issued for; a token is single-use.
func (s *Store) Redeem(token, operation, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()

	p, ok := s.pending[token]
	if !ok {
		return fmt.Errorf("guard: unknown or expired confirmation token: %w", apperr.ErrConfirmationRequired)
	}
	if p.Operation != operation || p.Path != path {
		return fmt.Errorf("guard: token was issued for %s on %s, not %s on %s: %w",
			p.Operation, p.Path, operation, path, apperr.ErrConfirmationRequired)
	}
	delete(s.pending, token)
	return nil
}

// PendingCount returns the number of live tokens.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()
	return len(s.pending)
}

func (s *Store) evictExpiredLocked() {
	now := s.now()
	for token, p := range s.pending {
		if now.After(p.ExpiresAt) {
			delete(s.pending, token)
		}
	}
}
