// Package tui renders controller snapshots in the terminal
package tui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nrdvana/slidelink/internal/controller"
)

// SnapshotMsg carries a controller snapshot into the program
type SnapshotMsg controller.Snapshot

// Model is the bubbletea model of the slide view
type Model struct {
	submit func(controller.Action) error
	snap   controller.Snapshot
	ready  bool
	keys   keyMap
	width  int
	height int
}

// New creates a view that sends actions through submit
func New(submit func(controller.Action) error) Model {
	return Model{
		submit: submit,
		keys:   defaultKeyMap(),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// send submits off the update goroutine; the controller may be blocked
// handing this program a snapshot.
func (m Model) send(a controller.Action) tea.Cmd {
	submit := m.submit
	return func() tea.Msg {
		_ = submit(a)
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SnapshotMsg:
		m.snap = controller.Snapshot(msg)
		m.ready = true
		m.keys.enabled(m.snap.Offers.Lead, m.snap.Offers.Navigate, m.snap.Offers.Notes)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if a, ok := controller.KeyAction(msg.String()); ok {
		return m, m.send(a)
	}

	switch {
	case key.Matches(msg, m.keys.Lead):
		return m, m.send(controller.SetLead{Enable: !m.snap.Lead})
	case key.Matches(msg, m.keys.Follow):
		return m, m.send(controller.SetFollow{Enable: !m.snap.Follow})
	case key.Matches(msg, m.keys.Navigate):
		return m, m.send(controller.SetNavigate{Enable: !m.snap.Navigate})
	case key.Matches(msg, m.keys.Notes):
		return m, m.send(controller.SetNotes{Enable: !m.snap.Notes})
	case key.Matches(msg, m.keys.Reconnect):
		return m, m.send(controller.Reconnect{})
	case key.Matches(msg, m.keys.First):
		return m, m.send(controller.GoTo{Slide: 1})
	case key.Matches(msg, m.keys.Last):
		return m, m.send(controller.GoTo{Slide: -1})
	}

	// digits jump to a slide, like clicking it in the navigation bar
	if n, err := strconv.Atoi(msg.String()); err == nil && n > 0 && m.snap.Navigate {
		return m, m.send(controller.GoTo{Slide: n})
	}
	return m, nil
}
