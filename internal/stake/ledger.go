// Package stake defines the stake-ledger collaborator contract: the external
// system that locks a voter's tokens behind a vote and hands back a
// transaction reference. The governance engine only ever sees this interface;
// real settlement lives elsewhere.
package stake

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sentinel-dao/sentinel/internal/domain"
)

// LockDuration is how long a vote's stake stays locked. It is a policy
// constant, independent of any proposal's voting window.
const LockDuration = 7 * 24 * time.Hour

// Ledger locks stake for a duration and returns a transaction reference.
// Lock must respect ctx: a timed-out or cancelled call returns an error and
// locks nothing.
type Ledger interface {
	Lock(ctx context.Context, voter string, amount decimal.Decimal, duration time.Duration) (txHash string, err error)
}

// ─── Simulated ledger ───────────────────────────────────────────────────────

// Lock is one recorded stake lock in the simulated ledger.
type Lock struct {
	Voter    string
	Amount   decimal.Decimal
	LockedAt time.Time
	Expires  time.Time
	TxHash   string
}

// SimLedger is an in-process Ledger for the demo daemon and for tests. It
// records every lock and can be told to fail or stall on demand.
type SimLedger struct {
	mu    sync.Mutex
	locks []Lock

	// FailNext makes the next Lock call fail once (test hook).
	failNext bool
	// Delay is applied before every Lock call, to exercise ctx timeouts.
	delay time.Duration

	now func() time.Time
}

// NewSimLedger creates an empty simulated ledger.
func NewSimLedger() *SimLedger {
	return &SimLedger{now: time.Now}
}

// SetDelay makes every subsequent Lock call wait d before committing.
func (l *SimLedger) SetDelay(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.delay = d
}

// FailNext makes the next Lock call return an error without locking.
func (l *SimLedger) FailNext() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext = true
}

// SetClock overrides the ledger's clock (tests only).
func (l *SimLedger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Lock records a stake lock and returns a synthetic transaction hash.
func (l *SimLedger) Lock(ctx context.Context, voter string, amount decimal.Decimal, duration time.Duration) (string, error) {
	l.mu.Lock()
	delay := l.delay
	fail := l.failNext
	l.failNext = false
	l.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", domain.ErrStakeLockFailed, ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrStakeLockFailed, err)
	}
	if fail {
		return "", fmt.Errorf("%w: simulated ledger failure", domain.ErrStakeLockFailed)
	}
	if amount.Sign() <= 0 {
		return "", fmt.Errorf("%w: amount %s", domain.ErrInvalidStake, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	lock := Lock{
		Voter:    voter,
		Amount:   amount,
		LockedAt: now,
		Expires:  now.Add(duration),
		TxHash:   newTxHash(),
	}
	l.locks = append(l.locks, lock)
	return lock.TxHash, nil
}

// Locks returns a copy of all recorded locks.
func (l *SimLedger) Locks() []Lock {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Lock, len(l.locks))
	copy(out, l.locks)
	return out
}

// TotalLocked returns the sum of all locked amounts for a voter.
func (l *SimLedger) TotalLocked(voter string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := decimal.Zero
	for _, lk := range l.locks {
		if lk.Voter == voter {
			total = total.Add(lk.Amount)
		}
	}
	return total
}

// newTxHash returns a 0x-prefixed 32-byte random reference.
func newTxHash() string {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failure means the process is in a bad way; a
		// timestamp-derived reference keeps the demo ledger usable.
		return fmt.Sprintf("0x%064x", time.Now().UnixNano())
	}
	return "0x" + hex.EncodeToString(b[:])
}
