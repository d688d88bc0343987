// Package budget tracks the daily credit allowance of the paid news API.
package budget

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrBudgetExceeded is returned when a spend would pass the daily limit.
var ErrBudgetExceeded = errors.New("daily credit budget exceeded")

// DateLayout is the calendar-day format stored with the ledger.
const DateLayout = "2006-01-02"

// Usage is a point-in-time view of the ledger.
type Usage struct {
	Date              string  `json:"date"`
	CreditsUsed       int     `json:"creditsUsed"`
	Limit             int     `json:"limit"`
	Remaining         int     `json:"remaining"`
	ArticlesPerCredit int     `json:"articlesPerCredit"`
	Ratio             float64 `json:"ratio"`
}

// Ledger is the process-wide daily credit counter. The stored day rolls
// over on the first access after local midnight.
type Ledger struct {
	mu                sync.Mutex
	date              string
	used              int
	limit             int
	articlesPerCredit int
	now               func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the ledger clock.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a ledger with limit credits per day.
func NewLedger(limit, articlesPerCredit int, opts ...Option) *Ledger {
	if articlesPerCredit <= 0 {
		articlesPerCredit = 10
	}
	l := &Ledger{limit: limit, articlesPerCredit: articlesPerCredit, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	l.date = l.today()
	return l
}

func (l *Ledger) today() string {
	return l.now().Format(DateLayout)
}

// rollover must be called with mu held.
func (l *Ledger) rollover() {
	if today := l.today(); today != l.date {
		l.date = today
		l.used = 0
	}
}

// CreditsFor returns the credits needed for n articles: ceil(n / per credit),
// never less than one.
func (l *Ledger) CreditsFor(n int) int {
	credits := (n + l.articlesPerCredit - 1) / l.articlesPerCredit
	return max(1, credits)
}

// CanSpend reports whether credits fit in what remains today.
func (l *Ledger) CanSpend(credits int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()
	return l.used+credits <= l.limit
}

// Spend debits credits. Nothing is debited when the spend would exceed the
// limit.
func (l *Ledger) Spend(credits int) error {
	if credits < 0 {
		return fmt.Errorf("negative spend %d", credits)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()
	if l.used+credits > l.limit {
		return fmt.Errorf("%w: %d used, %d requested, limit %d", ErrBudgetExceeded, l.used, credits, l.limit)
	}
	l.used += credits
	return nil
}

// Restore seeds the ledger from a persisted record. A record from another
// day is ignored, leaving today's ledger at zero. It reports whether the
// record was applied.
func (l *Ledger) Restore(date string, used int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()
	if date != l.date {
		l.used = 0
		return false
	}
	l.used = min(max(0, used), l.limit)
	return true
}

// Usage returns the current position.
func (l *Ledger) Usage() Usage {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()

	ratio := 1.0
	if l.limit > 0 {
		ratio = float64(l.used) / float64(l.limit)
	}
	return Usage{
		Date:              l.date,
		CreditsUsed:       l.used,
		Limit:             l.limit,
		Remaining:         max(0, l.limit-l.used),
		ArticlesPerCredit: l.articlesPerCredit,
		Ratio:             ratio,
	}
}

// Exhausted reports whether no credits remain.
func (l *Ledger) Exhausted() bool {
	u := l.Usage()
	return u.Remaining == 0
}
