package stake

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sentinel-dao/sentinel/internal/domain"
)

func TestSimLedger_Lock(t *testing.T) {
	l := NewSimLedger()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return fixed })

	tx, err := l.Lock(context.Background(), "0xAlice", decimal.NewFromInt(100), LockDuration)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !strings.HasPrefix(tx, "0x") || len(tx) != 66 {
		t.Fatalf("tx hash %q is not a 0x-prefixed 32-byte reference", tx)
	}

	locks := l.Locks()
	if len(locks) != 1 {
		t.Fatalf("expected 1 lock, got %d", len(locks))
	}
	if locks[0].Voter != "0xAlice" || !locks[0].Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("lock = %+v", locks[0])
	}
	if !locks[0].Expires.Equal(fixed.Add(LockDuration)) {
		t.Fatalf("expiry = %v, want %v", locks[0].Expires, fixed.Add(LockDuration))
	}
}

func TestSimLedger_FailNextIsOneShot(t *testing.T) {
	l := NewSimLedger()
	l.FailNext()

	_, err := l.Lock(context.Background(), "0xAlice", decimal.NewFromInt(1), LockDuration)
	if !errors.Is(err, domain.ErrStakeLockFailed) {
		t.Fatalf("expected ErrStakeLockFailed, got %v", err)
	}
	if len(l.Locks()) != 0 {
		t.Fatal("failed call recorded a lock")
	}

	if _, err := l.Lock(context.Background(), "0xAlice", decimal.NewFromInt(1), LockDuration); err != nil {
		t.Fatalf("second call should succeed, got %v", err)
	}
}

func TestSimLedger_RejectsNonPositiveAmount(t *testing.T) {
	l := NewSimLedger()
	_, err := l.Lock(context.Background(), "0xAlice", decimal.Zero, LockDuration)
	if !errors.Is(err, domain.ErrInvalidStake) {
		t.Fatalf("expected ErrInvalidStake, got %v", err)
	}
}

func TestSimLedger_ContextTimeout(t *testing.T) {
	l := NewSimLedger()
	l.SetDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := l.Lock(ctx, "0xAlice", decimal.NewFromInt(1), LockDuration)
	if !errors.Is(err, domain.ErrStakeLockFailed) {
		t.Fatalf("expected ErrStakeLockFailed on timeout, got %v", err)
	}
	if len(l.Locks()) != 0 {
		t.Fatal("timed-out call recorded a lock")
	}
}

func TestSimLedger_TotalLocked(t *testing.T) {
	l := NewSimLedger()
	ctx := context.Background()
	for _, amount := range []string{"10.5", "0.25", "39.25"} {
		if _, err := l.Lock(ctx, "0xAlice", decimal.RequireFromString(amount), LockDuration); err != nil {
			t.Fatalf("Lock: %v", err)
		}
	}
	if _, err := l.Lock(ctx, "0xBob", decimal.NewFromInt(7), LockDuration); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	if got := l.TotalLocked("0xAlice"); !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("TotalLocked(alice) = %s, want 50", got)
	}
	if got := l.TotalLocked("0xBob"); !got.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("TotalLocked(bob) = %s, want 7", got)
	}
	if got := l.TotalLocked("0xNobody"); !got.IsZero() {
		t.Fatalf("TotalLocked(nobody) = %s, want 0", got)
	}
}
