// Package publisher emits audit events either synchronously or through a
// bounded buffer drained by a background worker.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	audit "idvgate/pkg/platform/audit"
	"idvgate/pkg/platform/audit/worker"
)

// ErrListUnsupported is returned by List when the store cannot be queried.
var ErrListUnsupported = errors.New("audit store does not support listing")

// Lister is implemented by stores that can be queried per subject.
type Lister interface {
	ListBySubject(ctx context.Context, subjectID string) ([]audit.Event, error)
}

// Publisher writes audit events to a store.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	bufferSize int
	inbox      chan audit.Event
	done       chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking: events queue in a buffer of size n
// and are dropped when it is full.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufferSize = n
	}
}

// WithLogger sets a logger for dropped events and store failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher; call Close to drain async buffers.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(store, p.inbox, p.logger)
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit records an event, stamping the timestamp and category when unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
	default:
		p.dropped.Add(1)
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, dropping event",
				"action", event.Action,
				"subject_id", event.SubjectID,
			)
		}
	}
	return nil
}

// Dropped reports how many events were discarded because the buffer was full.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// List returns events for a subject when the store supports it.
func (p *Publisher) List(ctx context.Context, subjectID string) ([]audit.Event, error) {
	lister, ok := p.store.(Lister)
	if !ok {
		return nil, ErrListUnsupported
	}
	return lister.ListBySubject(ctx, subjectID)
}

// Close drains queued events and stops the worker.
func (p *Publisher) Close() error {
	if p.inbox == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()
	<-p.done
	return nil
}
