package memory

import (
	"context"
	"sync"

	"storeshare/internal/app/outbox"
)

// Outbox collects event records in memory; useful in tests and demo mode.
type Outbox struct {
	mu      sync.Mutex
	records []outbox.EventRecord
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record outbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, record)
	return nil
}

// Records returns a copy of everything recorded so far.
func (o *Outbox) Records() []outbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]outbox.EventRecord, len(o.records))
	copy(out, o.records)
	return out
}
