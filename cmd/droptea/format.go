package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/droptea/droptea/pkg/engine"
)

const transferBarWidth = 30

// transferBar renders the inline progress bar for running transfers.
var transferBar = progress.New(progress.WithDefaultGradient(), progress.WithWidth(transferBarWidth))

// renderProgress draws a progress bar for done/total. Total is known to
// be non-zero by the caller.
func renderProgress(done, total uint64) string {
	ratio := float64(done) / float64(total)
	if ratio > 1 {
		ratio = 1
	}
	return transferBar.ViewAs(ratio)
}

// fmtBytes formats a byte count for display.
func fmtBytes(n uint64) string {
	return humanize.IBytes(n)
}

// fmtAge formats how long ago t was, for the requests listing.
func fmtAge(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	default:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
}

// truncateCell shortens s to at most width display columns.
func truncateCell(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}

// renderBanner draws the startup banner.
func renderBanner(cfg engine.Config) string {
	lines := []string{
		"DropTea Host",
		fmt.Sprintf("device %s · port %d · %s", cfg.DeviceName, cfg.Server.Port, cfg.Mode()),
	}
	if cfg.Dev.Enabled {
		lines = append(lines, "dev mode: loopback core")
	}
	return bannerStyle.Render(strings.Join(lines, "\n"))
}

const helpMarkdown = `# Commands

| Command | Description |
|---|---|
| ` + "`peers`" + ` | List discovered peers |
| ` + "`requests`" + ` | List pending incoming requests |
| ` + "`accept [id]`" + ` | Accept a request (oldest when no id) |
| ` + "`decline [id]`" + ` | Decline a request (oldest when no id) |
| ` + "`send <file> [peer]`" + ` | Send a file to a peer |
| ` + "`demo [file]`" + ` | Synthesize an incoming request (dev mode) |
| ` + "`config`" + ` | Show the active configuration |
| ` + "`reload`" + ` | Reload the config file and restart |
| ` + "`clear`" + ` | Clear the screen |
| ` + "`quit`" + ` | Exit |

Dismissing or ignoring a request notification declines it. Requests can
also be answered from the notification itself or a connected feed
client; the first answer wins.
`

// renderHelp renders the command reference as terminal markdown.
func renderHelp() string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return strings.TrimRight(out, "\n")
}
