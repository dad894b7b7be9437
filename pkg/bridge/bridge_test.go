package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droptea/droptea/pkg/event"
	"github.com/droptea/droptea/pkg/peers"
	"github.com/droptea/droptea/pkg/request"
)

// captureHandler collects log records so tests can assert on what the
// bridge chose to log.
type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) count(msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Message == msg {
			n++
		}
	}
	return n
}

type fakeResolver struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeResolver) ResolveRequest(taskID string, accept bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("%s:%t", taskID, accept))
}

func (f *fakeResolver) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeNotifier records presented requests; shown controls the reported
// presentation outcome.
type fakeNotifier struct {
	mu        sync.Mutex
	presented []request.Request
	completed []string
	shown     bool
}

func (f *fakeNotifier) PresentRequest(req request.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presented = append(f.presented, req)
	return f.shown
}

func (f *fakeNotifier) Completed(savedPath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, savedPath)
}

type fixture struct {
	bridge   *Bridge
	tracker  *request.Tracker
	registry *peers.Registry
	bus      *event.Bus
	logs     *captureHandler
	resolver *fakeResolver
	notifier *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tracker:  request.NewTracker(),
		registry: peers.NewRegistry(),
		bus:      event.NewBus(),
		logs:     &captureHandler{},
		resolver: &fakeResolver{},
		notifier: &fakeNotifier{shown: true},
	}
	f.bridge = New(f.tracker, f.registry, f.bus, slog.New(f.logs))
	f.bridge.BindResolver(f.resolver)
	f.bridge.BindNotifier(f.notifier)
	return f
}

func incomingEvent(taskID, filename string) event.Event {
	return event.Event{
		Kind:   event.KindIncomingRequest,
		TaskID: taskID,
		Data1:  fmt.Sprintf("[[REQUEST]]|%s|2048|Alice|Alices-Laptop", filename),
	}
}

func TestDispatchIncomingRequest(t *testing.T) {
	f := newFixture(t)

	f.bridge.Dispatch(incomingEvent("task-1", "notes.txt"))

	req, ok := f.tracker.Get("task-1")
	require.True(t, ok)
	assert.Equal(t, "notes.txt", req.Filename)
	assert.Equal(t, uint64(2048), req.Size)
	assert.Equal(t, request.StateShown, req.State)

	require.Len(t, f.notifier.presented, 1)
	assert.Equal(t, "task-1", f.notifier.presented[0].TaskID)
}

func TestDispatchIncomingRequestNotShown(t *testing.T) {
	f := newFixture(t)
	f.notifier.shown = false

	f.bridge.Dispatch(incomingEvent("task-1", "notes.txt"))

	req, ok := f.tracker.Get("task-1")
	require.True(t, ok)
	assert.Equal(t, request.StatePending, req.State)
}

func TestDispatchPeerFoundAndLost(t *testing.T) {
	f := newFixture(t)

	f.bridge.Dispatch(event.Event{
		Kind:   event.KindPeerFound,
		TaskID: "peer-1",
		Data1:  "Bobs-Desktop|192.168.1.20|9000|HomeWifi|TCP",
	})

	p, ok := f.registry.Get("peer-1")
	require.True(t, ok)
	assert.Equal(t, "Bobs-Desktop", p.Name)
	assert.Equal(t, "192.168.1.20", p.IP)
	assert.Equal(t, uint16(9000), p.Port)

	f.bridge.Dispatch(event.Event{Kind: event.KindPeerLost, TaskID: "peer-1"})
	_, ok = f.registry.Get("peer-1")
	assert.False(t, ok)
}

func TestDispatchCompleted(t *testing.T) {
	f := newFixture(t)

	f.bridge.Dispatch(event.Event{
		Kind:   event.KindCompleted,
		TaskID: "task-1",
		Data1:  "/home/alice/Downloads/notes.txt",
	})

	require.Len(t, f.notifier.completed, 1)
	assert.Equal(t, "/home/alice/Downloads/notes.txt", f.notifier.completed[0])
}

func TestDispatchProgressThrottle(t *testing.T) {
	f := newFixture(t)

	for v := uint64(1); v <= 100; v++ {
		f.bridge.Dispatch(event.Event{Kind: event.KindProgress, TaskID: "task-1", Value1: v, Value2: 100})
	}

	assert.Equal(t, 10, f.logs.count("transfer progress"))
}

func TestDispatchProgressZeroTotal(t *testing.T) {
	f := newFixture(t)

	f.bridge.Dispatch(event.Event{Kind: event.KindProgress, TaskID: "task-1", Value1: 50, Value2: 0})

	assert.Zero(t, f.logs.count("transfer progress"))
}

func TestDispatchProgressSmallTotal(t *testing.T) {
	f := newFixture(t)

	for v := uint64(1); v <= 5; v++ {
		f.bridge.Dispatch(event.Event{Kind: event.KindProgress, TaskID: "task-1", Value1: v, Value2: 5})
	}

	assert.Equal(t, 5, f.logs.count("transfer progress"))
}

func TestDispatchRepublishesToBus(t *testing.T) {
	f := newFixture(t)
	sub := f.bus.Subscribe(16)
	defer f.bus.Unsubscribe(sub)

	kinds := []event.Kind{
		event.KindLog, event.KindProgress, event.KindError, event.Kind(99),
	}
	for _, k := range kinds {
		f.bridge.Dispatch(event.Event{Kind: k, TaskID: "task-1", Value2: 100})
	}

	for _, want := range kinds {
		ev := <-sub.C
		assert.Equal(t, want, ev.Kind)
	}
}

func TestDispatchUnknownKindIsIgnored(t *testing.T) {
	f := newFixture(t)

	assert.NotPanics(t, func() {
		f.bridge.Dispatch(event.Event{Kind: event.Kind(42), TaskID: "task-1"})
	})
	assert.Zero(t, f.tracker.Len())
	assert.Zero(t, f.registry.Len())
}

func TestResolveAtMostOnce(t *testing.T) {
	f := newFixture(t)
	f.bridge.Dispatch(incomingEvent("task-1", "notes.txt"))

	const callers = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func(accepted bool) {
			defer wg.Done()
			if f.bridge.Resolve("task-1", accepted) {
				wins.Add(1)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Len(t, f.resolver.all(), 1)
	assert.Zero(t, f.tracker.Len())
}

func TestResolveUnknownTask(t *testing.T) {
	f := newFixture(t)

	assert.False(t, f.bridge.Resolve("nope", true))
	assert.Empty(t, f.resolver.all())
}

func TestResolveWithoutResolverBound(t *testing.T) {
	f := newFixture(t)
	f.bridge.BindResolver(nil)
	f.bridge.Dispatch(incomingEvent("task-1", "notes.txt"))

	assert.NotPanics(t, func() {
		assert.True(t, f.bridge.Resolve("task-1", true))
	})
}

func TestShutdownAbandonsPending(t *testing.T) {
	f := newFixture(t)
	f.bridge.Dispatch(incomingEvent("task-1", "notes.txt"))
	f.bridge.Dispatch(incomingEvent("task-2", "photo.jpg"))

	f.bridge.Shutdown()

	assert.Zero(t, f.tracker.Len())
	assert.False(t, f.bridge.Resolve("task-1", true))
	assert.False(t, f.bridge.Resolve("task-2", false))
	assert.Empty(t, f.resolver.all())
}

func TestPending(t *testing.T) {
	f := newFixture(t)
	f.bridge.Dispatch(incomingEvent("task-1", "notes.txt"))
	f.bridge.Dispatch(incomingEvent("task-2", "photo.jpg"))

	pending := f.bridge.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "task-1", pending[0].TaskID)
	assert.Equal(t, "task-2", pending[1].TaskID)
}
