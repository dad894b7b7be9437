// Package notify turns incoming-request events into interactive desktop
// notifications and funnels every user signal — action, body click,
// dismissal, expiry, render failure — into a single resolve call. The
// controller holds no dedup logic of its own: the platform is allowed to
// fire several signals for one notification, and correctness rests on
// the resolve funnel absorbing duplicates.
package notify

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/droptea/droptea/pkg/request"
)

// Expiry durations, matching the host's notification shim: interactive
// requests linger long enough to walk to the keyboard, info toasts get a
// few seconds.
const (
	RequestExpiry = 45 * time.Second
	InfoExpiry    = 5 * time.Second
)

// Notification describes one notification to present.
type Notification struct {
	Title   string
	Body    string
	Actions []string // user-selectable options, in index order
	Expiry  time.Duration
	Image   string // optional icon path
}

// SignalKind classifies a platform signal for a presented notification.
type SignalKind int

const (
	// SignalActivated means an action was chosen; ActionIndex is valid.
	SignalActivated SignalKind = iota
	// SignalActivatedBody means the notification body was clicked.
	SignalActivatedBody
	// SignalDismissed means the notification was closed or expired.
	SignalDismissed
	// SignalFailed means the platform could not show or lost the
	// notification.
	SignalFailed
)

// Signal is one asynchronous platform signal. Reason carries the
// platform's dismissal reason, when it has one.
type Signal struct {
	Kind        SignalKind
	ActionIndex int
	Reason      string
}

// Presenter shows notifications on the host desktop. Present returns
// once the platform accepted the notification; onSignal is then invoked
// from the platform's event-delivery goroutine, possibly more than once.
// onSignal may be nil for fire-and-forget notifications.
type Presenter interface {
	Present(n Notification, onSignal func(Signal)) error
	Close() error
}

// Null is a Presenter that accepts every notification and never signals.
// Used when no notification service is reachable; decisions then come
// from the shell or a feed client instead.
type Null struct{}

func (Null) Present(Notification, func(Signal)) error { return nil }
func (Null) Close() error                             { return nil }

// Controller mediates between the tracker-backed resolve funnel and a
// Presenter.
type Controller struct {
	presenter Presenter
	resolve   func(taskID string, accepted bool) bool
	image     string
	log       *slog.Logger
}

// NewController creates a Controller. resolve is the single entry point
// for decisions; it reports whether the call won the request's one
// transition, which the controller only uses for debug logging.
func NewController(p Presenter, resolve func(taskID string, accepted bool) bool, image string, log *slog.Logger) *Controller {
	return &Controller{presenter: p, resolve: resolve, image: image, log: log}
}

// PresentRequest shows the interactive prompt for an incoming request
// and reports whether it is on screen. A presentation failure resolves
// the request as declined before returning; the caller must not treat
// the request as shown in that case.
func (c *Controller) PresentRequest(req request.Request) bool {
	n := Notification{
		Title: "Incoming File Request",
		Body: fmt.Sprintf("File: %s (%s) from %s (%s)",
			req.Filename, humanize.IBytes(req.Size), req.Sender, req.Device),
		Actions: []string{"Accept", "Decline"},
		Expiry:  RequestExpiry,
		Image:   c.image,
	}

	taskID := req.TaskID
	err := c.presenter.Present(n, func(sig Signal) {
		c.handleSignal(taskID, sig)
	})
	if err != nil {
		c.log.Warn("could not show request notification, declining", "task_id", taskID, "err", err)
		c.resolve(taskID, false)
		return false
	}

	return true
}

// handleSignal maps a platform signal onto a decision. Only an explicit
// activation of the first action accepts; every other signal — another
// action, a body click, dismissal, expiry, failure — declines.
func (c *Controller) handleSignal(taskID string, sig Signal) {
	accepted := sig.Kind == SignalActivated && sig.ActionIndex == 0

	won := c.resolve(taskID, accepted)
	c.log.Debug("notification signal",
		"task_id", taskID, "signal", sig.Kind, "accepted", accepted, "won", won)
}

// Completed shows the fire-and-forget toast for a finished transfer.
func (c *Controller) Completed(savedPath string) {
	c.Info("File Transfer Complete", "Saved to: "+savedPath)
}

// Info shows a short-lived informational notification. Failures are
// logged and otherwise ignored; nothing depends on an info toast.
func (c *Controller) Info(title, body string) {
	n := Notification{
		Title:  title,
		Body:   body,
		Expiry: InfoExpiry,
		Image:  c.image,
	}
	if err := c.presenter.Present(n, nil); err != nil {
		c.log.Warn("could not show notification", "title", title, "err", err)
	}
}
