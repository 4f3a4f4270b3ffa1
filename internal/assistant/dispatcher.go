package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/memohai/linerag/internal/channel/inbound"
	"github.com/memohai/linerag/internal/dedupe"
	"github.com/memohai/linerag/internal/metrics"
)

// DefaultEventTimeout bounds one event when no timeout is configured.
const DefaultEventTimeout = 3 * time.Minute

// Handler serves one classified event.
type Handler interface {
	Handle(ctx context.Context, ev inbound.Event) error
	Recovered(ctx context.Context, ev inbound.Event, err error)
}

type DispatcherOptions struct {
	Timeout time.Duration
	Dedupe  *dedupe.Cache
	Metrics *metrics.Metrics
}

// Dispatcher runs events in the background so the webhook can answer at
// once. Handler errors and panics stay inside the event goroutine.
type Dispatcher struct {
	handler Handler
	timeout time.Duration
	dedupe  *dedupe.Cache
	metrics *metrics.Metrics
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(log *slog.Logger, handler Handler, opts DispatcherOptions) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultEventTimeout
	}
	return &Dispatcher{
		handler: handler,
		timeout: opts.Timeout,
		dedupe:  opts.Dedupe,
		metrics: opts.Metrics,
		logger:  log.With(slog.String("service", "dispatcher")),
	}
}

// Dispatch starts handling ev and reports whether it was accepted. A
// redelivered event already seen is dropped.
func (d *Dispatcher) Dispatch(reqCtx context.Context, ev inbound.Event) bool {
	m := inbound.MetaOf(ev)
	if d.dedupe.CheckAndMark(m.EventID) {
		d.logger.Info("duplicate event dropped",
			slog.String("event_id", m.EventID),
			slog.Bool("redelivery", m.Redelivery))
		d.metrics.EventHandled(ev.Kind(), metrics.OutcomeIgnored)
		return false
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(reqCtx), d.timeout)
		defer cancel()
		d.run(ctx, ev)
	}()
	return true
}

func (d *Dispatcher) run(ctx context.Context, ev inbound.Event) {
	m := inbound.MetaOf(ev)
	log := d.logger.With(
		slog.String("run_id", uuid.NewString()),
		slog.String("kind", ev.Kind()),
		slog.String("conversation", m.Identity.Key()),
	)
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrPanic, r)
			log.Error("event panicked", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			d.handler.Recovered(ctx, ev, err)
			d.metrics.EventHandled(ev.Kind(), metrics.OutcomeError)
		}
	}()

	if err := d.handler.Handle(ctx, ev); err != nil {
		log.Error("event failed",
			slog.String("error_kind", Classify(err).String()),
			slog.Duration("elapsed", time.Since(started)),
			slog.Any("error", err))
		d.metrics.EventHandled(ev.Kind(), metrics.OutcomeError)
		return
	}
	log.Debug("event handled", slog.Duration("elapsed", time.Since(started)))
	d.metrics.EventHandled(ev.Kind(), metrics.OutcomeOK)
}

// Shutdown waits for in-flight events until ctx is done.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
}
