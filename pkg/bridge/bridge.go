// Package bridge is the seam between the transfer core's event stream
// and everything user-facing. Dispatch multiplexes each core event to
// the log, the peer registry, the request tracker and the notifier, and
// republishes it on the event bus for feed and shell subscribers.
// Resolve is the single funnel every decision source goes through; the
// tracker guarantees at most one decision per request ever reaches the
// core.
package bridge

import (
	"log/slog"
	"sync"

	"github.com/droptea/droptea/pkg/event"
	"github.com/droptea/droptea/pkg/peers"
	"github.com/droptea/droptea/pkg/protocol"
	"github.com/droptea/droptea/pkg/request"
)

// Resolver forwards a won decision to the transfer core.
type Resolver interface {
	ResolveRequest(taskID string, accept bool)
}

// Notifier presents incoming requests and completion toasts.
// PresentRequest reports whether the prompt is on screen; a false return
// means the notifier already declined the request through the funnel.
type Notifier interface {
	PresentRequest(req request.Request) bool
	Completed(savedPath string)
}

// Bridge routes core events and request decisions. Dispatch and Resolve
// are safe for concurrent use; neither holds a lock while calling into
// the resolver or notifier.
type Bridge struct {
	tracker  *request.Tracker
	registry *peers.Registry
	bus      *event.Bus
	log      *slog.Logger

	mu       sync.Mutex
	resolver Resolver
	notifier Notifier
}

// New creates a Bridge. Resolver and notifier are bound afterwards,
// since both need the bridge (or its engine handle) to exist first.
func New(tracker *request.Tracker, registry *peers.Registry, bus *event.Bus, log *slog.Logger) *Bridge {
	return &Bridge{
		tracker:  tracker,
		registry: registry,
		bus:      bus,
		log:      log,
	}
}

// BindResolver sets the decision sink. Decisions won before a resolver
// is bound are dropped.
func (b *Bridge) BindResolver(r Resolver) {
	b.mu.Lock()
	b.resolver = r
	b.mu.Unlock()
}

// BindNotifier sets the notification sink. Events arriving before a
// notifier is bound are logged and tracked but not presented.
func (b *Bridge) BindNotifier(n Notifier) {
	b.mu.Lock()
	b.notifier = n
	b.mu.Unlock()
}

// Dispatch routes one core event. It never blocks and never reports an
// error back to the caller; events it does not understand are published
// to the bus and otherwise ignored.
func (b *Bridge) Dispatch(ev event.Event) {
	switch ev.Kind {
	case event.KindLog:
		b.log.Info(ev.Data1, "source", "core")

	case event.KindPeerFound:
		p := protocol.ParsePeer(ev.Data1)
		peer := peers.Peer{
			ID:        ev.TaskID,
			Name:      p.Name,
			IP:        p.IP,
			Port:      p.Port,
			SSID:      p.SSID,
			Transport: p.Transport,
		}
		if b.registry.Update(peer) {
			b.log.Info("peer found", "name", peer.Name, "ip", peer.IP, "port", peer.Port, "transport", peer.Transport)
		}

	case event.KindPeerLost:
		if p, ok := b.registry.Remove(ev.TaskID); ok {
			b.log.Info("peer lost", "name", p.Name, "ip", p.IP)
		}

	case event.KindStarted:
		b.log.Info("transfer started", "task_id", ev.TaskID, "file", ev.Data1)

	case event.KindProgress:
		// Log at roughly 10% increments; totals under 10 log every tick.
		if ev.Value2 > 0 {
			step := ev.Value2 / 10
			if step == 0 || ev.Value1%step == 0 {
				b.log.Info("transfer progress", "task_id", ev.TaskID, "done", ev.Value1, "total", ev.Value2)
			}
		}

	case event.KindCompleted:
		b.log.Info("transfer completed", "task_id", ev.TaskID, "path", ev.Data1)
		if n := b.currentNotifier(); n != nil {
			n.Completed(ev.Data1)
		}

	case event.KindError:
		b.log.Error("core error", "task_id", ev.TaskID, "err", ev.Data1)

	case event.KindIncomingRequest:
		b.handleIncoming(ev)

	case event.KindRejected:
		b.log.Info("transfer rejected", "task_id", ev.TaskID, "reason", ev.Data1)

	case event.KindDiscoveryStarted:
		b.log.Info("peer discovery started")

	case event.KindServerStarted:
		b.log.Info("server listening", "port", ev.Data1)

	default:
		b.log.Debug("unhandled core event", "kind", int(ev.Kind))
	}

	b.bus.Publish(ev)
}

// handleIncoming tracks a new transfer request and hands it to the
// notifier. The request is marked shown only when the prompt actually
// made it to the screen; a failed presentation has already declined it
// through the funnel by the time PresentRequest returns.
func (b *Bridge) handleIncoming(ev event.Event) {
	pr := protocol.ParseRequest(ev.Data1)
	req := request.Request{
		TaskID:   ev.TaskID,
		Filename: pr.Filename,
		Size:     pr.Size,
		Sender:   pr.Sender,
		Device:   pr.Device,
	}
	b.tracker.Add(req)
	b.log.Info("incoming request", "task_id", req.TaskID, "file", req.Filename, "size", req.Size, "sender", req.Sender)

	n := b.currentNotifier()
	if n == nil {
		return
	}
	if n.PresentRequest(req) {
		b.tracker.MarkShown(req.TaskID)
	}
}

// Resolve carries a decision for taskID through the funnel. It reports
// whether this call won the request's single transition; losing calls —
// unknown ids, duplicates, anything after Shutdown — are no-ops. Only
// the winning call reaches the core.
func (b *Bridge) Resolve(taskID string, accepted bool) bool {
	req, ok := b.tracker.Resolve(taskID)
	if !ok {
		b.log.Debug("stale resolve ignored", "task_id", taskID, "accepted", accepted)
		return false
	}

	b.mu.Lock()
	r := b.resolver
	b.mu.Unlock()
	if r != nil {
		r.ResolveRequest(taskID, accepted)
	}

	b.log.Info("request resolved", "task_id", taskID, "file", req.Filename, "accepted", accepted)
	return true
}

// Pending returns the tracked requests, oldest first.
func (b *Bridge) Pending() []request.Request {
	return b.tracker.All()
}

// Shutdown abandons all pending requests so late notification signals
// resolve to nothing. Call before closing the engine handle.
func (b *Bridge) Shutdown() {
	for _, req := range b.tracker.Drain() {
		b.log.Info("abandoning pending request", "task_id", req.TaskID, "file", req.Filename)
	}
}

func (b *Bridge) currentNotifier() Notifier {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.notifier
}
