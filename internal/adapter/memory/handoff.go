package memory

import (
	"context"
	"sync"
	"time"

	"nutriscan/internal/domain"
)

var _ domain.HandoffStore = (*Handoff)(nil)

type handoffSlot struct {
	rec       domain.NutritionRecord
	expiresAt time.Time
}

// Handoff keeps the latest analysis per requester in process memory. Slots
// expire after ttl; a zero ttl keeps them forever.
type Handoff struct {
	mu    sync.Mutex
	ttl   time.Duration
	slots map[string]handoffSlot
	now   func() time.Time
}

// NewHandoff creates an in-memory handoff store.
func NewHandoff(ttl time.Duration) *Handoff {
	return &Handoff{
		ttl:   ttl,
		slots: make(map[string]handoffSlot),
		now:   time.Now,
	}
}

// SaveLatest replaces the slot for key and drops every expired slot.
func (h *Handoff) SaveLatest(ctx context.Context, key string, rec domain.NutritionRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	for k, slot := range h.slots {
		if !slot.expiresAt.IsZero() && now.After(slot.expiresAt) {
			delete(h.slots, k)
		}
	}

	slot := handoffSlot{rec: rec}
	if h.ttl > 0 {
		slot.expiresAt = now.Add(h.ttl)
	}
	h.slots[key] = slot
	return nil
}

// LoadLatest returns the slot for key, or nil if it is empty or expired.
func (h *Handoff) LoadLatest(ctx context.Context, key string) (*domain.NutritionRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	slot, ok := h.slots[key]
	if !ok {
		return nil, nil
	}
	if !slot.expiresAt.IsZero() && h.now().After(slot.expiresAt) {
		delete(h.slots, key)
		return nil, nil
	}
	rec := slot.rec
	return &rec, nil
}
