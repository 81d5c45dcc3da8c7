// Package ratelimit caps how many external AI calls one run may spend.
package ratelimit

import "sync"

// Budget is a per-run allowance of AI rewrite requests. A max of zero or
// less means unlimited.
type Budget struct {
	mu   sync.Mutex
	max  int
	used int
}

func NewBudget(max int) *Budget {
	return &Budget{max: max}
}

// Take reserves one request from the budget, reporting false once the
// allowance is spent.
func (b *Budget) Take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max > 0 && b.used >= b.max {
		return false
	}
	b.used++
	return true
}

// Used reports how many requests have been taken.
func (b *Budget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}
