package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/droptea/droptea/pkg/bridge"
	"github.com/droptea/droptea/pkg/engine"
	"github.com/droptea/droptea/pkg/event"
	"github.com/droptea/droptea/pkg/feed"
	"github.com/droptea/droptea/pkg/logging"
	"github.com/droptea/droptea/pkg/notify"
	"github.com/droptea/droptea/pkg/peers"
	"github.com/droptea/droptea/pkg/request"
	"github.com/droptea/droptea/pkg/transfer"
)

// Restart behavior when the listener port is still winding down.
const (
	maxRestartRetries = 5
	restartRetryDelay = time.Second
)

// app owns the engine handle and everything wired around it. The
// long-lived pieces (bus, tracker, registry, bridge, log) survive a
// restart; the handle, queue, feed and presenter are rebuilt.
type app struct {
	cfgPath string
	log     *logging.Logger

	bus      *event.Bus
	tracker  *request.Tracker
	registry *peers.Registry
	bridge   *bridge.Bridge

	mu        sync.Mutex
	cfg       engine.Config
	handle    *engine.Handle
	loop      *engine.Loopback
	queue     *transfer.Queue
	feed      *feed.Server
	presenter notify.Presenter
}

func newApp(cfgPath string, cfg engine.Config, log *logging.Logger) *app {
	a := &app{
		cfgPath:  cfgPath,
		log:      log,
		cfg:      cfg,
		bus:      event.NewBus(),
		tracker:  request.NewTracker(),
		registry: peers.NewRegistry(),
	}
	a.bridge = bridge.New(a.tracker, a.registry, a.bus, log.Logger)
	return a
}

// start brings up the presenter, engine handle, send queue and feed for
// the current config.
func (a *app) start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.startLocked()
}

func (a *app) startLocked() error {
	cfg := a.cfg

	a.presenter = a.buildPresenter(cfg)
	notifier := notify.NewController(a.presenter, a.bridge.Resolve, cfg.Notify.Image, a.log.Logger)
	a.bridge.BindNotifier(notifier)

	factory := func(cfg engine.Config, emit event.Callback) (engine.Core, error) {
		core, err := engine.NewLoopback(cfg, emit)
		if err != nil {
			return nil, err
		}
		if lb, ok := core.(*engine.Loopback); ok {
			a.loop = lb
		}
		return core, nil
	}

	handle, err := engine.Open(cfg, factory, a.bridge.Dispatch)
	if err != nil {
		return err
	}
	a.handle = handle
	a.bridge.BindResolver(handle)

	if err := handle.Start(cfg.Server.Port, cfg.DeviceName, cfg.Dev.Enabled); err != nil {
		_ = handle.Close()
		return err
	}

	a.queue = transfer.NewQueue(handle, cfg.DeviceName, a.log.Logger)

	if cfg.Feed.Enabled {
		srv := feed.NewServer(a.bus, a.bridge.Resolve, a.log.Logger)
		if err := srv.Start(cfg.Feed.Listen); err != nil {
			a.log.Warn("event feed disabled", "err", err)
		} else {
			a.feed = srv
		}
	}

	a.log.Info("engine started",
		"device", cfg.DeviceName, "port", cfg.Server.Port, "mode", cfg.Mode().String(), "dev", cfg.Dev.Enabled)
	return nil
}

// buildPresenter returns the desktop notification presenter, degrading
// to the silent one when notifications are disabled or the notification
// service is unreachable.
func (a *app) buildPresenter(cfg engine.Config) notify.Presenter {
	if !cfg.Notify.Enabled {
		return notify.Null{}
	}

	if execPath, err := os.Executable(); err == nil {
		err := notify.RegisterIdentity(execPath, cfg.Notify.AppID, cfg.Notify.DisplayName, cfg.Notify.Image)
		if err != nil {
			a.log.Warn("could not register notification identity", "err", err)
		}
	}

	p, err := notify.NewDBusPresenter(cfg.Notify.DisplayName)
	if err != nil {
		a.log.Warn("notification service unavailable, prompts disabled", "err", err)
		return notify.Null{}
	}
	return p
}

// stop tears down everything start built. Pending requests are
// abandoned first so late notification signals resolve to nothing.
func (a *app) stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *app) stopLocked() {
	a.bridge.Shutdown()

	if a.feed != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := a.feed.Close(ctx); err != nil {
			a.log.Warn("feed shutdown", "err", err)
		}
		cancel()
		a.feed = nil
	}

	if a.queue != nil {
		a.queue.Close()
		a.queue = nil
	}

	if a.handle != nil {
		if err := a.handle.Close(); err != nil {
			a.log.Warn("engine shutdown", "err", err)
		}
		a.handle = nil
		a.loop = nil
	}

	if a.presenter != nil {
		if err := a.presenter.Close(); err != nil {
			a.log.Warn("presenter shutdown", "err", err)
		}
		a.presenter = nil
	}
}

// restart reloads the config and rebuilds the engine. The listener port
// can linger after close, so startup is retried a few times.
func (a *app) restart() error {
	cfg, err := engine.LoadConfig(a.cfgPath)
	if err != nil {
		return err
	}
	applyDefaults(&cfg)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked()
	a.cfg = cfg

	var lastErr error
	for attempt := 1; attempt <= maxRestartRetries; attempt++ {
		lastErr = a.startLocked()
		if lastErr == nil {
			return nil
		}
		a.log.Warn("restart attempt failed", "attempt", attempt, "err", lastErr)
		a.stopLocked()
		time.Sleep(restartRetryDelay)
	}
	return fmt.Errorf("restart failed after %d attempts: %w", maxRestartRetries, lastErr)
}

func (a *app) config() engine.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

func (a *app) enqueue(path string, peer peers.Peer) (string, error) {
	a.mu.Lock()
	q := a.queue
	a.mu.Unlock()
	if q == nil {
		return "", transfer.ErrClosed
	}
	return q.Enqueue(path, peer)
}

// injectDemo synthesizes an incoming request on the loopback core.
// Only available while the loopback is running.
func (a *app) injectDemo(filename string, size uint64) (string, bool) {
	a.mu.Lock()
	lb := a.loop
	a.mu.Unlock()
	if lb == nil {
		return "", false
	}
	return lb.InjectIncoming(filename, size, "Demo Sender", "Demo-Device"), true
}

// applyDefaults fills the fields the config file may leave empty.
func applyDefaults(cfg *engine.Config) {
	if cfg.DeviceName == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "DropTea-Device"
		}
		cfg.DeviceName = host
	}
}

// resolveConfigPath returns the config file to use: the explicit
// --config flag, or droptea.yaml next to the working directory.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return "droptea.yaml"
}

func run(configPath string, devMode, debug bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	resolved := resolveConfigPath(configPath)

	cfg, err := engine.LoadConfig(resolved)
	if err != nil {
		// The default config path is optional; an explicit one is not.
		if configPath != "" || !errors.Is(err, os.ErrNotExist) {
			return err
		}
		cfg = engine.DefaultConfig()
	}
	if devMode {
		cfg.Dev.Enabled = true
	}
	if debug {
		cfg.Logging.Debug = true
	}
	applyDefaults(&cfg)

	log, err := logging.New(cfg.Logging.File, cfg.Logging.Debug)
	if err != nil {
		return err
	}
	defer log.Close()

	fmt.Println(renderBanner(cfg))

	a := newApp(resolved, cfg, log)
	if err := a.start(); err != nil {
		return err
	}
	defer a.stop()

	stopWatch := watchConfig(ctx, resolved, log.Logger, func() {
		if err := a.restart(); err != nil {
			log.Error("config reload failed", "err", err)
		}
	})
	defer stopWatch()

	return runShell(ctx, cancel, a)
}
