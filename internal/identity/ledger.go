package identity

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dom/tps-identity/internal/domain"
	"github.com/google/uuid"
)

const DefaultResetTTL = time.Hour

// resetEntry binds a token to the user who held email at issue time.
type resetEntry struct {
	userID    uuid.UUID
	email     string
	expiresAt time.Time
}

// Ledger maps single-use reset tokens to the user and email they were
// issued for. A token stops working once that user is deleted or moves to
// another email, even if someone else later takes the old one.
// Its mutex is never held while the directory lock is taken: a reset claims
// the token under the ledger lock, releases it, and only then touches the
// directory.
//
// Expiry is enforced lazily on Consume. Issuing a new token does not
// invalidate earlier ones for the same email.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]resetEntry

	dir *Directory
	ttl time.Duration
	now func() time.Time
}

func NewLedger(dir *Directory, ttl time.Duration) *Ledger {
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	return &Ledger{
		entries: make(map[string]resetEntry),
		dir:     dir,
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock replaces the ledger's time source. Call it before first use.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Issue returns a fresh token for email, or domain.ErrNotFound when no user
// holds that email.
func (l *Ledger) Issue(email string) (string, error) {
	user, ok := l.dir.FindByEmail(email)
	if !ok {
		return "", domain.ErrNotFound
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	tok := hex.EncodeToString(buf)

	l.mu.Lock()
	l.entries[tok] = resetEntry{userID: user.ID, email: email, expiresAt: l.now().Add(l.ttl)}
	l.mu.Unlock()

	return tok, nil
}

// Consume spends tok and sets the new password. Unknown and expired tokens
// fail identically with domain.ErrInvalidResetToken. A token that passes the
// lookup is removed before the password change is attempted, so it cannot be
// replayed even if the change is rejected.
func (l *Ledger) Consume(tok, newPassword string) error {
	entry, err := l.claim(tok)
	if err != nil {
		return err
	}

	if err := l.dir.ResetPassword(entry.userID, entry.email, newPassword); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidResetToken
		}
		return err
	}
	return nil
}

func (l *Ledger) claim(tok string) (resetEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[tok]
	if !ok {
		return resetEntry{}, domain.ErrInvalidResetToken
	}
	delete(l.entries, tok)

	if l.now().After(entry.expiresAt) {
		return resetEntry{}, domain.ErrInvalidResetToken
	}
	return entry, nil
}

// Sweep drops entries that expired before now and reports how many were
// removed. service.RunSweeper calls it when a sweep interval is configured.
func (l *Ledger) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for tok, entry := range l.entries {
		if now.After(entry.expiresAt) {
			delete(l.entries, tok)
			removed++
		}
	}
	return removed
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
