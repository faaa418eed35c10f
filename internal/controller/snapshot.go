package controller

import (
	"fmt"

	"github.com/nrdvana/slidelink/internal/models"
	"github.com/nrdvana/slidelink/internal/roles"
	"github.com/nrdvana/slidelink/internal/syncchan"
)

// Snapshot is a read-only copy of the controller state handed to views
type Snapshot struct {
	Position   models.Position
	SlideCount int
	Slide      models.Slide

	Lead     bool
	Follow   bool
	Navigate bool
	Notes    bool
	Grants   []string
	Offers   roles.Affordances

	Conn   syncchan.State
	Host   string
	Shared models.SharedState
	Notice string
	Status []string
}

// Presenter reports whether hidden steps should be ghosted rather than hidden
func (s Snapshot) Presenter() bool {
	return s.Notes
}

// Snapshot captures the current state. Only call it from the controller
// goroutine, or before Run.
func (c *Controller) Snapshot() Snapshot {
	pos := c.cursor.Position()
	slide, _ := c.pres.Slide(pos.SlideNum)
	snap := Snapshot{
		Position:   pos,
		SlideCount: c.cursor.SlideCount(),
		Slide:      slide,
		Lead:       c.roles.Lead,
		Follow:     c.roles.Follow,
		Navigate:   c.roles.Navigate,
		Notes:      c.roles.Notes,
		Grants:     c.roles.Grants().Names(),
		Offers:     c.roles.Affordances(),
		Conn:       c.transport.State(),
		Host:       syncchan.HostOf(c.transport.URL()),
		Shared:     c.shared,
		Notice:     c.notice.text,
	}
	snap.Status = statusLines(snap)
	return snap
}

func statusLines(s Snapshot) []string {
	var lines []string
	switch {
	case s.Conn == syncchan.Connected:
		lines = append(lines, "Connected to "+s.Host)
	case s.Conn == syncchan.Connecting && s.Host != "":
		lines = append(lines, "Connecting to "+s.Host)
	case s.Conn == syncchan.Connecting:
		lines = append(lines, "Connecting")
	default:
		lines = append(lines, "Not connected")
	}
	if s.Follow {
		lines = append(lines, "Following presenter")
	} else if s.Lead {
		lines = append(lines, "Broadcasting")
	}
	lines = append(lines, fmt.Sprintf("Slide %d of %d", s.Position.SlideNum, s.SlideCount))
	return lines
}
