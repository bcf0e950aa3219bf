package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Dispatcher асинхронная доставка событий во все sink'и.
// Notify никогда не блокирует вызывающего; ошибки доставки только логируются.
type Dispatcher struct {
	log     *slog.Logger
	sinks   []Sink
	queue   chan queued
	retries int
	backoff time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type queued struct {
	ctx   context.Context
	event Event
}

type Option func(*Dispatcher)

func WithRetries(n int, backoff time.Duration) Option {
	return func(d *Dispatcher) {
		d.retries = n
		d.backoff = backoff
	}
}

func NewDispatcher(log *slog.Logger, workers, buffer int, sinks []Sink, opts ...Option) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	d := &Dispatcher{
		log:     log,
		sinks:   sinks,
		queue:   make(chan queued, buffer),
		retries: 3,
		backoff: 200 * time.Millisecond,
	}
	for _, o := range opts {
		o(d)
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

var _ Notifier = (*Dispatcher)(nil)

func (d *Dispatcher) Notify(ctx context.Context, e Event) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	// отвязываемся от отмены запроса, значения (trace) сохраняются
	job := queued{ctx: context.WithoutCancel(ctx), event: e}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("notification dropped: dispatcher closed", "entity_type", e.EntityType, "entity_id", e.EntityID)
		return
	}
	select {
	case d.queue <- job:
	default:
		// очередь переполнена: доставляем отдельно, вызывающий не ждёт
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.deliver(job)
		}()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.queue {
		d.deliver(job)
	}
}

func (d *Dispatcher) deliver(job queued) {
	g, ctx := errgroup.WithContext(job.ctx)
	for _, s := range d.sinks {
		s := s
		g.Go(func() error {
			return d.deliverTo(ctx, s, job.event)
		})
	}
	if err := g.Wait(); err != nil {
		d.log.Error("notification delivery failed",
			"entity_type", job.event.EntityType,
			"entity_id", job.event.EntityID,
			"recipient_id", job.event.RecipientID,
			"err", err)
	}
}

func (d *Dispatcher) deliverTo(ctx context.Context, s Sink, e Event) error {
	var err error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.backoff * time.Duration(attempt)):
			}
		}
		if err = s.Deliver(ctx, e); err == nil {
			return nil
		}
		d.log.Warn("notification attempt failed", "attempt", attempt+1, "entity_id", e.EntityID, "err", err)
	}
	return err
}

// Close перестаёт принимать события и дожидается доставки уже принятых
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}
