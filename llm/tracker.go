package llm

import (
	"context"
	"sort"
	"sync"
)

// TokenTracker accumulates token usage per slot. Slots are the names of the
// collaborators that issue requests (generate_query, evaluate, ...).
type TokenTracker struct {
	mu    sync.RWMutex
	slots map[string]TokenUsage
	total TokenUsage
	calls map[string]int
}

// NewTokenTracker creates an empty tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{
		slots: make(map[string]TokenUsage),
		calls: make(map[string]int),
	}
}

// Add records usage for slot.
func (t *TokenTracker) Add(slot string, usage TokenUsage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots[slot] = t.slots[slot].Add(usage)
	t.total = t.total.Add(usage)
	t.calls[slot]++
}

// Total returns usage across all slots.
func (t *TokenTracker) Total() TokenUsage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}

// BySlot returns usage for one slot.
func (t *TokenTracker) BySlot(slot string) TokenUsage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.slots[slot]
}

// Calls returns the number of requests recorded for slot.
func (t *TokenTracker) Calls(slot string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.calls[slot]
}

// Slots returns the slot names, sorted.
func (t *TokenTracker) Slots() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.slots))
	for s := range t.slots {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Reset clears all usage.
func (t *TokenTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots = make(map[string]TokenUsage)
	t.calls = make(map[string]int)
	t.total = TokenUsage{}
}

// Snapshot is a point-in-time copy of tracked usage.
type Snapshot struct {
	Slots map[string]TokenUsage `json:"slots"`
	Total TokenUsage            `json:"total"`
}

// Snapshot returns a copy of the current state.
func (t *TokenTracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	slots := make(map[string]TokenUsage, len(t.slots))
	for k, v := range t.slots {
		slots[k] = v
	}
	return Snapshot{Slots: slots, Total: t.total}
}

// Tracked wraps a provider so every successful completion is recorded under
// slot.
func Tracked(p Provider, t *TokenTracker, slot string) Provider {
	if t == nil {
		return p
	}
	return ProviderFunc(func(ctx context.Context, msgs []Message, opts ...CompletionOption) (*CompletionResponse, error) {
		resp, err := p.Complete(ctx, msgs, opts...)
		if err == nil && resp != nil {
			t.Add(slot, resp.Usage)
		}
		return resp, err
	})
}
