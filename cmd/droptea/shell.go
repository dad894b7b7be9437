package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/droptea/droptea/pkg/event"
	"github.com/droptea/droptea/pkg/peers"
	"github.com/droptea/droptea/pkg/protocol"
	"github.com/droptea/droptea/pkg/request"
)

// shell is the interactive command loop. Core events print between
// prompts from a bus subscription, the same stream feed clients see.
type shell struct {
	app *app
	out io.Writer
}

func runShell(ctx context.Context, cancel context.CancelFunc, a *app) error {
	s := &shell{app: a, out: os.Stdout}

	sub := a.bus.Subscribe(64)
	defer a.bus.Unsubscribe(sub)
	go s.printEvents(ctx, sub.C)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(s.out, dimStyle.Render("Type help for commands."))
	s.prompt()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if s.execute(strings.TrimSpace(line)) {
				cancel()
				return nil
			}
			s.prompt()
		}
	}
}

func (s *shell) prompt() {
	fmt.Fprint(s.out, promptStyle.Render("droptea> "))
}

// execute runs one command line. It reports whether the shell should
// exit.
func (s *shell) execute(line string) bool {
	if line == "" {
		return false
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "peers":
		s.listPeers()
	case "requests":
		s.listRequests()
	case "accept":
		s.resolveCmd(args, true)
	case "decline":
		s.resolveCmd(args, false)
	case "send":
		s.sendCmd(args)
	case "demo":
		s.demoCmd(args)
	case "config":
		s.showConfig()
	case "reload":
		if err := s.app.restart(); err != nil {
			fmt.Fprintln(s.out, errorStyle.Render("reload failed: "+err.Error()))
		} else {
			fmt.Fprintln(s.out, okStyle.Render("config reloaded"))
		}
	case "help":
		fmt.Fprintln(s.out, renderHelp())
	case "clear":
		fmt.Fprint(s.out, "\033[2J\033[H")
	case "quit", "exit":
		return true
	default:
		fmt.Fprintln(s.out, warnStyle.Render("unknown command: "+cmd+" (try help)"))
	}
	return false
}

func (s *shell) listPeers() {
	list := s.app.registry.All()
	if len(list) == 0 {
		fmt.Fprintln(s.out, dimStyle.Render("no peers discovered yet"))
		return
	}
	for _, p := range list {
		extra := ""
		if p.SSID != "" {
			extra = "  " + dimStyle.Render(p.SSID)
		}
		fmt.Fprintf(s.out, "%s  %s:%d  %s%s\n",
			peerNameStyle.Render(truncateCell(p.Name, 24)), p.IP, p.Port, dimStyle.Render(p.Transport), extra)
	}
}

func (s *shell) listRequests() {
	pending := s.app.bridge.Pending()
	if len(pending) == 0 {
		fmt.Fprintln(s.out, dimStyle.Render("no pending requests"))
		return
	}
	for _, req := range pending {
		fmt.Fprintf(s.out, "%s  %s (%s) from %s (%s)  %s\n",
			requestStyle.Render(shortID(req.TaskID)),
			req.Filename, fmtBytes(req.Size), req.Sender, req.Device,
			dimStyle.Render(fmtAge(req.CreatedAt)))
	}
}

// resolveCmd accepts or declines a pending request. With no id the
// oldest pending request is used; ids may be abbreviated to a unique
// prefix.
func (s *shell) resolveCmd(args []string, accepted bool) {
	pending := s.app.bridge.Pending()
	if len(pending) == 0 {
		fmt.Fprintln(s.out, dimStyle.Render("no pending requests"))
		return
	}

	var taskID string
	if len(args) == 0 {
		taskID = pending[0].TaskID
	} else {
		req, ok := findRequest(pending, args[0])
		if !ok {
			fmt.Fprintln(s.out, warnStyle.Render("no pending request matches "+args[0]))
			return
		}
		taskID = req.TaskID
	}

	verb := "declined"
	if accepted {
		verb = "accepted"
	}
	if s.app.bridge.Resolve(taskID, accepted) {
		fmt.Fprintln(s.out, okStyle.Render(verb+" "+shortID(taskID)))
	} else {
		fmt.Fprintln(s.out, dimStyle.Render("request already handled"))
	}
}

func (s *shell) sendCmd(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, warnStyle.Render("usage: send <file> [peer]"))
		return
	}
	path := args[0]

	list := s.app.registry.All()
	if len(list) == 0 {
		fmt.Fprintln(s.out, dimStyle.Render("no peers discovered yet"))
		return
	}

	var (
		peer peers.Peer
		ok   bool
	)
	switch {
	case len(args) > 1:
		peer, ok = findPeer(list, strings.Join(args[1:], " "))
		if !ok {
			fmt.Fprintln(s.out, warnStyle.Render("no peer matches "+strings.Join(args[1:], " ")))
			return
		}
	case len(list) == 1:
		peer, ok = list[0], true
	default:
		var err error
		peer, ok, err = pickPeer(list)
		if err != nil {
			fmt.Fprintln(s.out, errorStyle.Render(err.Error()))
			return
		}
		if !ok {
			return
		}
	}

	taskID, err := s.app.enqueue(path, peer)
	if err != nil {
		fmt.Fprintln(s.out, errorStyle.Render("send failed: "+err.Error()))
		return
	}
	fmt.Fprintln(s.out, okStyle.Render(fmt.Sprintf("sending %s to %s (%s)", path, peer.Name, shortID(taskID))))
}

func (s *shell) demoCmd(args []string) {
	filename := "demo.txt"
	if len(args) > 0 {
		filename = args[0]
	}
	taskID, ok := s.app.injectDemo(filename, 204800)
	if !ok {
		fmt.Fprintln(s.out, warnStyle.Render("demo requires dev mode"))
		return
	}
	fmt.Fprintln(s.out, dimStyle.Render("demo request "+shortID(taskID)))
}

func (s *shell) showConfig() {
	cfg := s.app.config()
	fmt.Fprintf(s.out, "device       %s\n", cfg.DeviceName)
	fmt.Fprintf(s.out, "server       port %d, %s\n", cfg.Server.Port, cfg.Mode())
	fmt.Fprintf(s.out, "save path    %s\n", cfg.Storage.SavePath)
	fmt.Fprintf(s.out, "notify       enabled=%t app_id=%s\n", cfg.Notify.Enabled, cfg.Notify.AppID)
	fmt.Fprintf(s.out, "feed         enabled=%t listen=%s\n", cfg.Feed.Enabled, cfg.Feed.Listen)
	fmt.Fprintf(s.out, "log file     %s (debug=%t)\n", cfg.Logging.File, cfg.Logging.Debug)
	fmt.Fprintf(s.out, "dev mode     %t\n", cfg.Dev.Enabled)
}

// printEvents mirrors the core's event stream onto the terminal.
func (s *shell) printEvents(ctx context.Context, ch <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			if line := renderEvent(ev); line != "" {
				fmt.Fprintln(s.out, "\n"+line)
				s.prompt()
			}
		}
	}
}

// renderEvent formats one event for the terminal, or "" for events the
// shell does not surface.
func renderEvent(ev event.Event) string {
	switch ev.Kind {
	case event.KindServerStarted:
		return dimStyle.Render("listening on port " + ev.Data1)
	case event.KindDiscoveryStarted:
		return dimStyle.Render("discovering peers...")
	case event.KindPeerFound:
		p := protocol.ParsePeer(ev.Data1)
		return dimStyle.Render(fmt.Sprintf("peer found: %s (%s:%d)", p.Name, p.IP, p.Port))
	case event.KindPeerLost:
		return dimStyle.Render("peer lost: " + shortID(ev.TaskID))
	case event.KindIncomingRequest:
		req := protocol.ParseRequest(ev.Data1)
		return requestStyle.Render(fmt.Sprintf("Incoming: %s (%s) from %s (%s) — accept/decline %s",
			req.Filename, fmtBytes(req.Size), req.Sender, req.Device, shortID(ev.TaskID)))
	case event.KindStarted:
		return dimStyle.Render("transfer started " + shortID(ev.TaskID))
	case event.KindProgress:
		if ev.Value2 == 0 {
			return ""
		}
		step := ev.Value2 / 10
		if step != 0 && ev.Value1%step != 0 {
			return ""
		}
		return fmt.Sprintf("%s %s", renderProgress(ev.Value1, ev.Value2), dimStyle.Render(shortID(ev.TaskID)))
	case event.KindCompleted:
		return okStyle.Render("Saved to: " + ev.Data1)
	case event.KindRejected:
		return warnStyle.Render("transfer rejected: " + ev.Data1)
	case event.KindError:
		return errorStyle.Render("transfer error: " + ev.Data1)
	default:
		return ""
	}
}

// shortID abbreviates a task id for display.
func shortID(taskID string) string {
	if len(taskID) <= 8 {
		return taskID
	}
	return taskID[:8]
}

// findRequest matches an id or unique id prefix against the pending
// list.
func findRequest(pending []request.Request, query string) (request.Request, bool) {
	for _, req := range pending {
		if req.TaskID == query {
			return req, true
		}
	}
	for _, req := range pending {
		if strings.HasPrefix(req.TaskID, query) {
			return req, true
		}
	}
	return request.Request{}, false
}

// findPeer matches a peer by exact name, id prefix, or name prefix,
// case-insensitively.
func findPeer(list []peers.Peer, query string) (peers.Peer, bool) {
	q := strings.ToLower(query)
	for _, p := range list {
		if strings.ToLower(p.Name) == q {
			return p, true
		}
	}
	for _, p := range list {
		if strings.HasPrefix(strings.ToLower(p.ID), q) || strings.HasPrefix(strings.ToLower(p.Name), q) {
			return p, true
		}
	}
	return peers.Peer{}, false
}
