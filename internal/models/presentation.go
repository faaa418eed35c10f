package models

import "fmt"

// Range is an inclusive interval of step numbers
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether n lies inside the range (both ends inclusive)
func (r Range) Contains(n int) bool {
	return n >= r.Start && n <= r.End
}

// Visibility describes how a step is rendered at a given step number
type Visibility int

const (
	// Visible steps are shown normally
	Visible Visibility = iota
	// Hidden steps are invisible but keep their layout space
	Hidden
	// Removed steps are temporary steps taken out of the layout
	Removed
	// Ghosted steps are hidden steps shown dimmed in the presenter view
	Ghosted
)

func (v Visibility) String() string {
	switch v {
	case Visible:
		return "visible"
	case Hidden:
		return "hidden"
	case Removed:
		return "removed"
	case Ghosted:
		return "ghosted"
	default:
		return fmt.Sprintf("visibility(%d)", int(v))
	}
}

// Step represents one element of a slide that is toggled by step number
type Step struct {
	ID        int     `json:"id"`
	Ranges    []Range `json:"ranges"`
	Temporary bool    `json:"temporary"`
	Text      string  `json:"text,omitempty"`
}

// VisibleAt reports whether the step is shown at step number n
func (s Step) VisibleAt(n int) bool {
	for _, r := range s.Ranges {
		if r.Contains(n) {
			return true
		}
	}
	return false
}

// Visibility resolves how the step renders at step number n.
// presenter selects the notes view, where hidden steps stay readable.
func (s Step) Visibility(n int, presenter bool) Visibility {
	switch {
	case s.VisibleAt(n):
		return Visible
	case presenter:
		return Ghosted
	case s.Temporary:
		return Removed
	default:
		return Hidden
	}
}

// Slide represents one top-level content unit of a deck
type Slide struct {
	Index   int    `json:"index"`
	Title   string `json:"title,omitempty"`
	Body    string `json:"body,omitempty"`
	MaxStep int    `json:"maxStep"`
	Steps   []Step `json:"steps"`
	Notes   string `json:"notes,omitempty"`
}

// Presentation is the immutable side table built from the deck markup
type Presentation struct {
	Slides []Slide `json:"slides"`
}

// Len returns the number of slides
func (p *Presentation) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Slides)
}

// Slide returns the slide with the given 1-based index
func (p *Presentation) Slide(num int) (Slide, bool) {
	if num < 1 || num > p.Len() {
		return Slide{}, false
	}
	return p.Slides[num-1], true
}

// Position is a (slide, step) cursor value
type Position struct {
	SlideNum int `json:"slide_num"`
	StepNum  int `json:"step_num"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d.%d", p.SlideNum, p.StepNum)
}

// SharedState is the last authoritative position broadcast by a leader
type SharedState struct {
	SlideNum int `json:"slide_num"`
	StepNum  int `json:"step_num"`
}

// Known reports whether a leader position has been received
func (s SharedState) Known() bool {
	return s.SlideNum != 0
}
