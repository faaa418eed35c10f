package controller

import (
	"fmt"

	"github.com/nrdvana/slidelink/internal/models"
)

// Action is one user-level command. The set is closed: only the types in
// this file implement it, and Dispatch handles every one of them.
type Action interface {
	action()
	fmt.Stringer
}

// NavNext drops follow and moves to the next slide
type NavNext struct{}

// NavPrev drops follow and moves to the previous slide
type NavPrev struct{}

// NavStep drops follow and advances one step
type NavStep struct{}

// StepBy moves by Offset steps, rolling over slide boundaries
type StepBy struct {
	Offset int
}

// GoTo jumps to a slide. A nil Step keeps the slide's last-visited step.
type GoTo struct {
	Slide int
	Step  *int
}

// SetLead starts or stops broadcasting; enabling needs the lead grant
type SetLead struct{ Enable bool }

// SetFollow starts or stops tracking the leader, catching up on enable
type SetFollow struct{ Enable bool }

// SetNavigate shows or hides the slide bar
type SetNavigate struct{ Enable bool }

// SetNotes switches the notes view, which ghosts hidden steps
type SetNotes struct{ Enable bool }

// LoadDeck swaps in a reloaded presentation
type LoadDeck struct {
	Presentation *models.Presentation
}

// Reconnect replaces the current connection with a new one
type Reconnect struct{}

func (NavNext) action()     {}
func (NavPrev) action()     {}
func (NavStep) action()     {}
func (StepBy) action()      {}
func (GoTo) action()        {}
func (SetLead) action()     {}
func (SetFollow) action()   {}
func (SetNavigate) action() {}
func (SetNotes) action()    {}
func (LoadDeck) action()    {}
func (Reconnect) action()   {}

func (NavNext) String() string   { return "nav_next" }
func (NavPrev) String() string   { return "nav_prev" }
func (NavStep) String() string   { return "nav_step" }
func (a StepBy) String() string  { return fmt.Sprintf("step(%+d)", a.Offset) }
func (Reconnect) String() string { return "reconnect" }
func (LoadDeck) String() string  { return "load_deck" }

func (a GoTo) String() string {
	if a.Step == nil {
		return fmt.Sprintf("goto(%d)", a.Slide)
	}
	return fmt.Sprintf("goto(%d,%d)", a.Slide, *a.Step)
}

func (a SetLead) String() string     { return fmt.Sprintf("lead(%t)", a.Enable) }
func (a SetFollow) String() string   { return fmt.Sprintf("follow(%t)", a.Enable) }
func (a SetNavigate) String() string { return fmt.Sprintf("navigate(%t)", a.Enable) }
func (a SetNotes) String() string    { return fmt.Sprintf("notes(%t)", a.Enable) }

// Step returns a pointer for GoTo.Step
func Step(n int) *int {
	return &n
}

// KeyAction maps a key name to its navigation action. Keys that are not
// bound report false so the caller can pass them on.
func KeyAction(key string) (Action, bool) {
	switch key {
	case "right":
		return NavNext{}, true
	case "left":
		return NavPrev{}, true
	case "down", " ", "space":
		return StepBy{Offset: 1}, true
	case "up":
		return StepBy{Offset: -1}, true
	default:
		return nil, false
	}
}
