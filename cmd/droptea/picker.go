package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/droptea/droptea/pkg/peers"
)

// peerPickerModel lets the user choose a destination peer for a send.
type peerPickerModel struct {
	peers  []peers.Peer
	cursor int
	chosen bool
	done   bool
}

func newPeerPicker(list []peers.Peer) peerPickerModel {
	return peerPickerModel{peers: list}
}

func (m peerPickerModel) Init() tea.Cmd { return nil }

func (m peerPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.peers)-1 {
			m.cursor++
		}
	case "enter":
		m.chosen = true
		m.done = true
		return m, tea.Quit
	case "esc", "q", "ctrl+c":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m peerPickerModel) View() string {
	if m.done {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Send to which peer?\n\n")
	for i, p := range m.peers {
		line := fmt.Sprintf("%s  %s:%d", truncateCell(p.Name, 24), p.IP, p.Port)
		if i == m.cursor {
			sb.WriteString(pickerCurStyle.Render("> " + line))
		} else {
			sb.WriteString(pickerDimStyle.Render("  " + line))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(pickerDimStyle.Render("\n↑/↓ select · enter confirm · esc cancel"))
	return sb.String()
}

// pickPeer runs the interactive picker and returns the chosen peer.
// ok is false when the user cancelled.
func pickPeer(list []peers.Peer) (peers.Peer, bool, error) {
	p := tea.NewProgram(newPeerPicker(list))
	final, err := p.Run()
	if err != nil {
		return peers.Peer{}, false, fmt.Errorf("peer picker: %w", err)
	}

	m, ok := final.(peerPickerModel)
	if !ok || !m.chosen {
		return peers.Peer{}, false, nil
	}
	return m.peers[m.cursor], true, nil
}
