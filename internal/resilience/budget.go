package resilience

import (
	"sync"
	"time"
)

// TokenBudget enforces a rolling-window cap on model token usage. It is
// shared process-wide across report requests and is independent of the
// circuit breaker: a healthy service can still be over budget.
type TokenBudget struct {
	mu      sync.Mutex
	window  time.Duration
	cap     int
	entries []budgetEntry

	now func() time.Time // test seam
}

type budgetEntry struct {
	at     time.Time
	tokens int
}

// NewTokenBudget creates a budget of cap tokens per window. A cap of 0
// disables enforcement.
func NewTokenBudget(cap int, window time.Duration) *TokenBudget {
	if window <= 0 {
		window = time.Hour
	}
	return &TokenBudget{window: window, cap: cap, now: time.Now}
}

// Allow reports whether another call may be made. It returns
// ErrBudgetExceeded once the window's usage has reached the cap.
func (b *TokenBudget) Allow() error {
	if b.cap <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune()

	total := 0
	for _, e := range b.entries {
		total += e.tokens
	}
	if total >= b.cap {
		return ErrBudgetExceeded
	}
	return nil
}

// Spend records tokens consumed by a completed call.
func (b *TokenBudget) Spend(tokens int) {
	if b.cap <= 0 || tokens <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune()
	b.entries = append(b.entries, budgetEntry{at: b.now(), tokens: tokens})
}

// Used returns the token total currently counted in the window.
func (b *TokenBudget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune()
	total := 0
	for _, e := range b.entries {
		total += e.tokens
	}
	return total
}

// prune drops entries older than the window. Caller holds the lock.
func (b *TokenBudget) prune() {
	cutoff := b.now().Add(-b.window)
	i := 0
	for i < len(b.entries) && b.entries[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		b.entries = append(b.entries[:0], b.entries[i:]...)
	}
}
