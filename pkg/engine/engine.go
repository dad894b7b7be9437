// Package engine owns the boundary to the transfer core: configuration,
// the Core interface the bridge drives, and the Handle that gates the
// callback's validity window. The core runs its own worker threads and
// delivers events through a single callback registered at open time; the
// Handle guarantees that no event is consumed and no call reaches the
// core after Close.
package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/droptea/droptea/pkg/event"
)

// ErrInitFailed reports that the core could not be initialized (invalid
// storage root, port in use, unsupported mode). It is the only startup
// error that aborts the process.
var ErrInitFailed = errors.New("engine: init failed")

// ErrClosed reports an operation on a closed handle.
var ErrClosed = errors.New("engine: handle is closed")

// Core is the transfer engine. Implementations run their own worker
// goroutines for transfer I/O and discovery and emit events through the
// callback handed to their factory. All methods must be safe for
// concurrent use.
type Core interface {
	// Start binds the listener and begins discovery.
	Start(port uint16, deviceID string, devMode bool) error
	// SendFile queues an outgoing transfer to a peer address.
	SendFile(ip string, port uint16, path, taskID, deviceName string) error
	// ResolveRequest delivers the user's decision for an incoming
	// request. Invoked at most once per task id.
	ResolveRequest(taskID string, accept bool)
	// Close stops workers and releases resources.
	Close() error
}

// Factory opens a Core with the given configuration and event callback.
type Factory func(cfg Config, emit event.Callback) (Core, error)

// Handle is the process-scoped handle to the core plus its registered
// callback. It owns the callback's validity window: once Close returns,
// no further event reaches the consumer and no further call reaches the
// core, even if the core's threads or late UI signals are still active.
type Handle struct {
	core   Core
	closed atomic.Bool
}

// Open initializes a core through factory and registers consume as the
// event sink. Events are delivered on whichever core thread emits them;
// consume must be safe to call from any goroutine. A factory failure is
// wrapped in ErrInitFailed and the caller must not proceed to Start.
func Open(cfg Config, factory Factory, consume func(event.Event)) (*Handle, error) {
	h := &Handle{}

	emit := func(kind int, taskID, data1, data2 string, value1, value2 uint64) {
		if h.closed.Load() {
			return
		}
		consume(event.Event{
			Kind:      event.Kind(kind),
			TaskID:    taskID,
			Data1:     data1,
			Data2:     data2,
			Value1:    value1,
			Value2:    value2,
			Timestamp: time.Now(),
		})
	}

	core, err := factory(cfg, emit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitFailed, err)
	}
	h.core = core

	return h, nil
}

// Start begins serving on the given port under the given device
// identity.
func (h *Handle) Start(port uint16, deviceID string, devMode bool) error {
	if h.closed.Load() {
		return ErrClosed
	}
	return h.core.Start(port, deviceID, devMode)
}

// SendFile queues an outgoing transfer.
func (h *Handle) SendFile(ip string, port uint16, path, taskID, deviceName string) error {
	if h.closed.Load() {
		return ErrClosed
	}
	return h.core.SendFile(ip, port, path, taskID, deviceName)
}

// ResolveRequest forwards the decision for an incoming request to the
// core. After Close it is a silent no-op: abandoned requests must never
// reach a destroyed core.
func (h *Handle) ResolveRequest(taskID string, accept bool) {
	if h.closed.Load() {
		return
	}
	h.core.ResolveRequest(taskID, accept)
}

// Close tears the handle down. It must be the last operation on the
// handle; events emitted by core threads racing with Close are dropped
// before they reach the consumer. Close is idempotent.
func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	return h.core.Close()
}

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool {
	return h.closed.Load()
}
