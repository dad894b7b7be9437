package engine

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/droptea/droptea/pkg/event"
	"github.com/droptea/droptea/pkg/protocol"
)

// Loopback is an in-process Core used in dev mode and tests. It serves
// no network traffic: discovery finds a single synthetic peer, outgoing
// sends play a scripted Started/Progress/Completed sequence, and
// incoming requests are injected on demand. Like a real core it emits
// events from its own goroutines.
type Loopback struct {
	cfg  Config
	emit event.Callback

	mu    sync.Mutex
	files map[string]string // task id -> filename

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewLoopback is a Factory for Loopback cores.
func NewLoopback(cfg Config, emit event.Callback) (Core, error) {
	if cfg.Storage.SavePath == "" {
		return nil, fmt.Errorf("loopback: storage save path is required")
	}
	return &Loopback{
		cfg:   cfg,
		emit:  emit,
		files: make(map[string]string),
		done:  make(chan struct{}),
	}, nil
}

var _ Factory = NewLoopback

// Start emits the startup sequence: server listening, discovery running,
// one synthetic peer.
func (l *Loopback) Start(port uint16, deviceID string, devMode bool) error {
	l.emit(int(event.KindLog), "", fmt.Sprintf("loopback core ready (device %s)", deviceID), "", 0, 0)
	l.emit(int(event.KindServerStarted), "", fmt.Sprintf("%d", port), "", 0, 0)
	l.emit(int(event.KindDiscoveryStarted), "", "", "", 0, 0)

	l.spawn(func() {
		l.sleep(20 * time.Millisecond)
		payload := fmt.Sprintf("Loopback|127.0.0.1|%d||TCP", port)
		l.emit(int(event.KindPeerFound), "loopback", payload, "", 0, 0)
	})

	return nil
}

// InjectIncoming synthesizes an incoming transfer request and returns
// its task id. The request flows through the same callback path a real
// peer's request would.
func (l *Loopback) InjectIncoming(filename string, size uint64, sender, device string) string {
	taskID := uuid.NewString()

	l.mu.Lock()
	l.files[taskID] = filename
	l.mu.Unlock()

	payload := protocol.FormatRequest(filename, size, sender, device)
	l.emit(int(event.KindIncomingRequest), taskID, payload, "", 0, 0)

	return taskID
}

// ResolveRequest plays the accepted transfer to completion or emits a
// rejection. A task id it does not know is ignored, like a real core
// tolerating a stale decision.
func (l *Loopback) ResolveRequest(taskID string, accept bool) {
	l.mu.Lock()
	filename, ok := l.files[taskID]
	if ok {
		delete(l.files, taskID)
	}
	l.mu.Unlock()

	if !ok {
		return
	}

	if !accept {
		l.emit(int(event.KindRejected), taskID, "declined by user", "", 0, 0)
		return
	}

	dest := filepath.Join(l.cfg.Storage.SavePath, filename)
	l.spawn(func() { l.playTransfer(taskID, filename, dest) })
}

// SendFile plays an outgoing transfer to completion.
func (l *Loopback) SendFile(ip string, port uint16, path, taskID, deviceName string) error {
	select {
	case <-l.done:
		return fmt.Errorf("loopback: closed")
	default:
	}

	name := filepath.Base(path)
	l.spawn(func() { l.playTransfer(taskID, name, path) })
	return nil
}

// Close stops all playback goroutines and waits for them.
func (l *Loopback) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	l.wg.Wait()
	return nil
}

func (l *Loopback) playTransfer(taskID, filename, finalPath string) {
	l.emit(int(event.KindStarted), taskID, filename, "", 0, 0)

	const total = 100
	for current := uint64(10); current <= total; current += 10 {
		if !l.sleep(10 * time.Millisecond) {
			return
		}
		l.emit(int(event.KindProgress), taskID, "", "", current, total)
	}

	l.emit(int(event.KindCompleted), taskID, finalPath, "", 0, 0)
}

func (l *Loopback) spawn(fn func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		select {
		case <-l.done:
		default:
			fn()
		}
	}()
}

// sleep waits for d and reports false when the core closed meanwhile.
func (l *Loopback) sleep(d time.Duration) bool {
	select {
	case <-l.done:
		return false
	case <-time.After(d):
		return true
	}
}
