package guard

import (
	"errors"
	"testing"
	"time"

	"github.com/ellsworth/berkano/internal/apperr"
)

func TestIssueAndRedeem(t *testing.T) {
	s := NewStore(time.Minute)
	p := s.Issue("delete_lines", "a.md", "2 lines")
	if p.Token == "" {
		t.Fatal("expected a token")
	}
	if err := s.Redeem(p.Token, "delete_lines", "a.md"); err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	// Tokens are single-use.
	if err := s.Redeem(p.Token, "delete_lines", "a.md"); err == nil {
		t.Error("expected error on second redeem")
	}
}

func TestRedeem_WrongOperationOrPath(t *testing.T) {
	s := NewStore(time.Minute)
	p := s.Issue("delete_lines", "a.md", "")
	if err := s.Redeem(p.Token, "delete_note", "a.md"); err == nil {
		t.Error("expected mismatch error for operation")
	}
	if err := s.Redeem(p.Token, "delete_lines", "b.md"); err == nil {
		t.Error("expected mismatch error for path")
	}
}

func TestRedeem_Expired(t *testing.T) {
	s := NewStore(time.Minute)
	p := s.Issue("delete_note", "a.md", "")

	// Move the clock past the TTL.
	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	if err := s.Redeem(p.Token, "delete_note", "a.md"); err == nil {
		t.Error("expected error for expired token")
	}
	if n := s.PendingCount(); n != 0 {
		t.Errorf("pending = %d, want 0 after eviction", n)
	}
}

func TestRedeem_Unknown(t *testing.T) {
	s := NewStore(0)
	err := s.Redeem("nope", "delete_lines", "a.md")
	if !errors.Is(err, apperr.ErrConfirmationRequired) {
		t.Errorf("err = %v, want ErrConfirmationRequired", err)
	}
}
