package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/memohai/linerag/internal/channel/inbound"
	"github.com/memohai/linerag/internal/conversation"
	"github.com/memohai/linerag/internal/dedupe"
	"github.com/memohai/linerag/internal/metrics"
)

type recordingHandler struct {
	mu        sync.Mutex
	handled   []inbound.Event
	recovered []error
	deadlines []bool
	fn        func(ctx context.Context, ev inbound.Event) error
}

func (h *recordingHandler) Handle(ctx context.Context, ev inbound.Event) error {
	h.mu.Lock()
	h.handled = append(h.handled, ev)
	_, hasDeadline := ctx.Deadline()
	h.deadlines = append(h.deadlines, hasDeadline)
	h.mu.Unlock()
	if h.fn != nil {
		return h.fn(ctx, ev)
	}
	return nil
}

func (h *recordingHandler) Recovered(_ context.Context, _ inbound.Event, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recovered = append(h.recovered, err)
}

func textEvent(id string) inbound.TextQuery {
	return inbound.TextQuery{
		Meta: inbound.Meta{Identity: conversation.Individual("U1"), ReplyToken: "tok", EventID: id},
		Text: "hi",
	}
}

func TestDispatcherOutlivesRequestContext(t *testing.T) {
	t.Parallel()
	h := &recordingHandler{fn: func(ctx context.Context, _ inbound.Event) error {
		time.Sleep(10 * time.Millisecond)
		return ctx.Err()
	}}
	d := NewDispatcher(nil, h, DispatcherOptions{Timeout: time.Second})

	reqCtx, cancel := context.WithCancel(context.Background())
	if !d.Dispatch(reqCtx, textEvent("e1")) {
		t.Fatalf("event should be accepted")
	}
	cancel()
	drain(t, d)

	if len(h.handled) != 1 || !h.deadlines[0] {
		t.Fatalf("handled = %d, deadline = %v", len(h.handled), h.deadlines)
	}
}

func TestDispatcherDropsDuplicates(t *testing.T) {
	t.Parallel()
	h := &recordingHandler{}
	m := metrics.New()
	d := NewDispatcher(nil, h, DispatcherOptions{Dedupe: dedupe.New(time.Minute, 16), Metrics: m})

	if !d.Dispatch(context.Background(), textEvent("e1")) {
		t.Fatalf("first delivery should be accepted")
	}
	if d.Dispatch(context.Background(), textEvent("e1")) {
		t.Fatalf("redelivery should be dropped")
	}
	if !d.Dispatch(context.Background(), textEvent("e2")) {
		t.Fatalf("new event should be accepted")
	}
	drain(t, d)

	if len(h.handled) != 2 {
		t.Fatalf("handled = %d, want 2", len(h.handled))
	}
	expected := `
# HELP linerag_events_total Webhook events handled, by event kind and outcome
# TYPE linerag_events_total counter
linerag_events_total{kind="text",outcome="ignored"} 1
linerag_events_total{kind="text",outcome="ok"} 2
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "linerag_events_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestDispatcherRecoversPanics(t *testing.T) {
	t.Parallel()
	h := &recordingHandler{fn: func(context.Context, inbound.Event) error {
		panic("nil map")
	}}
	d := NewDispatcher(nil, h, DispatcherOptions{})

	d.Dispatch(context.Background(), textEvent("e1"))
	drain(t, d)

	if len(h.recovered) != 1 || !errors.Is(h.recovered[0], ErrPanic) {
		t.Fatalf("recovered = %v", h.recovered)
	}
	if Classify(h.recovered[0]) != KindInternal {
		t.Fatalf("panic should classify as internal")
	}
}

func TestDispatcherShutdownWaits(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	h := &recordingHandler{fn: func(context.Context, inbound.Event) error {
		<-release
		return nil
	}}
	d := NewDispatcher(nil, h, DispatcherOptions{})
	d.Dispatch(context.Background(), textEvent("e1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded while busy, got %v", err)
	}

	close(release)
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecoveredPushesInternalError(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Config{})
	h.svc.Recovered(context.Background(), textEvent("e1"), ErrPanic)

	pushes := h.msgr.allPushes()
	if len(pushes) != 1 || pushes[0].to != "U1" || pushes[0].text() != KindInternal.UserMessage() {
		t.Fatalf("pushes = %+v", pushes)
	}
}

func drain(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
