package notify

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	notifyDest  = "org.freedesktop.Notifications"
	notifyPath  = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyIface = "org.freedesktop.Notifications"
)

// DBusPresenter shows notifications through the freedesktop
// org.freedesktop.Notifications service on the session bus. Action keys
// are the decimal action indices, so ActionInvoked signals map straight
// back to Signal.ActionIndex.
type DBusPresenter struct {
	appName string
	conn    *dbus.Conn
	obj     dbus.BusObject

	mu       sync.Mutex
	handlers map[uint32]func(Signal)

	signals chan *dbus.Signal
}

// NewDBusPresenter connects to the session bus and subscribes to
// notification signals. appName is the sender name shown by the
// notification server.
func NewDBusPresenter(appName string) (*DBusPresenter, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("notify: session bus: %w", err)
	}

	p := &DBusPresenter{
		appName:  appName,
		conn:     conn,
		obj:      conn.Object(notifyDest, notifyPath),
		handlers: map[uint32]func(Signal){},
		signals:  make(chan *dbus.Signal, 32),
	}

	err = conn.AddMatchSignal(
		dbus.WithMatchObjectPath(notifyPath),
		dbus.WithMatchInterface(notifyIface),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: match notification signals: %w", err)
	}

	conn.Signal(p.signals)
	go p.watch()

	return p, nil
}

// Present implements Presenter.
func (p *DBusPresenter) Present(n Notification, onSignal func(Signal)) error {
	// Action list is flat key/label pairs; keys are the indices.
	actions := make([]string, 0, len(n.Actions)*2)
	for i, label := range n.Actions {
		actions = append(actions, strconv.Itoa(i), label)
	}
	if onSignal != nil {
		// "default" fires on body activation where the server supports it.
		actions = append(actions, "default", "Open")
	}

	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(1)),
	}

	call := p.obj.Call(notifyIface+".Notify", 0,
		p.appName,        // app_name
		uint32(0),        // replaces_id
		n.Image,          // app_icon
		n.Title,          // summary
		n.Body,           // body
		actions,          // actions
		hints,            // hints
		int32(n.Expiry.Milliseconds()), // expire_timeout
	)

	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("notify: notify call: %w", err)
	}

	if onSignal != nil {
		p.mu.Lock()
		p.handlers[id] = onSignal
		p.mu.Unlock()
	}

	return nil
}

// watch delivers ActionInvoked and NotificationClosed signals to the
// registered handlers. Runs until Close removes the signal channel.
func (p *DBusPresenter) watch() {
	for sig := range p.signals {
		switch sig.Name {
		case notifyIface + ".ActionInvoked":
			if len(sig.Body) < 2 {
				continue
			}
			id, ok1 := sig.Body[0].(uint32)
			key, ok2 := sig.Body[1].(string)
			if !ok1 || !ok2 {
				continue
			}
			p.dispatch(id, actionSignal(key), false)
		case notifyIface + ".NotificationClosed":
			if len(sig.Body) < 2 {
				continue
			}
			id, ok := sig.Body[0].(uint32)
			if !ok {
				continue
			}
			reason, _ := sig.Body[1].(uint32)
			p.dispatch(id, Signal{Kind: SignalDismissed, Reason: closeReason(reason)}, true)
		}
	}
}

// dispatch hands sig to the handler for id, dropping it when the id is
// unknown. remove forgets the handler afterwards; the server sends
// NotificationClosed last, so every path eventually removes.
func (p *DBusPresenter) dispatch(id uint32, sig Signal, remove bool) {
	p.mu.Lock()
	handler, ok := p.handlers[id]
	if remove {
		delete(p.handlers, id)
	}
	p.mu.Unlock()

	if ok {
		handler(sig)
	}
}

// Close stops signal delivery. The session bus connection is shared and
// stays open.
func (p *DBusPresenter) Close() error {
	err := p.conn.RemoveMatchSignal(
		dbus.WithMatchObjectPath(notifyPath),
		dbus.WithMatchInterface(notifyIface),
	)
	p.conn.RemoveSignal(p.signals)
	close(p.signals)

	p.mu.Lock()
	p.handlers = map[uint32]func(Signal){}
	p.mu.Unlock()

	if err != nil {
		return fmt.Errorf("notify: remove signal match: %w", err)
	}
	return nil
}

func actionSignal(key string) Signal {
	if idx, err := strconv.Atoi(key); err == nil {
		return Signal{Kind: SignalActivated, ActionIndex: idx}
	}
	// "default" or anything unrecognized is a body activation.
	return Signal{Kind: SignalActivatedBody}
}

func closeReason(code uint32) string {
	switch code {
	case 1:
		return "expired"
	case 2:
		return "dismissed by user"
	case 3:
		return "closed by call"
	default:
		return "unknown"
	}
}
