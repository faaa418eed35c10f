// Package navigation holds the clamped (slide, step) cursor of a presentation.
//
// The cursor never rejects a request: slide and step numbers are resolved
// with negative-counts-from-end and clamping, and a change is reported only
// when the resolved position differs from the current one.
package navigation

import (
	"errors"

	"github.com/nrdvana/slidelink/internal/models"
)

// ErrEmptyPresentation is returned for a presentation without slides
var ErrEmptyPresentation = errors.New("presentation has no slides")

// Cursor tracks the current slide and the last-visited step of every slide.
// It is not safe for concurrent use; the controller is its only writer.
type Cursor struct {
	pres     *models.Presentation
	slideNum int
	// steps[i] is the recorded current step of slide i+1
	steps []int
}

// NewCursor places a cursor on slide 1 with nothing shown yet
func NewCursor(pres *models.Presentation) (*Cursor, error) {
	if pres.Len() == 0 {
		return nil, ErrEmptyPresentation
	}
	return &Cursor{
		pres:     pres,
		slideNum: 1,
		steps:    make([]int, pres.Len()),
	}, nil
}

// Position returns the current (slide, step) pair
func (c *Cursor) Position() models.Position {
	return models.Position{SlideNum: c.slideNum, StepNum: c.steps[c.slideNum-1]}
}

// SlideCount returns the number of slides in the deck
func (c *Cursor) SlideCount() int {
	return len(c.steps)
}

// RecordedStep returns the step last shown on a slide, 0 if never visited
func (c *Cursor) RecordedStep(slideNum int) int {
	return c.steps[c.resolveSlide(slideNum)-1]
}

// Resolve computes where GoToSlide would land without moving the cursor.
// A nil step keeps the target slide's recorded step.
func (c *Cursor) Resolve(slideNum int, stepNum *int) models.Position {
	slide := c.resolveSlide(slideNum)
	if stepNum == nil {
		return models.Position{SlideNum: slide, StepNum: c.steps[slide-1]}
	}
	return models.Position{SlideNum: slide, StepNum: c.resolveStep(slide, *stepNum)}
}

// GoToSlide moves to the resolved position and reports whether it changed
func (c *Cursor) GoToSlide(slideNum int, stepNum *int) (models.Position, bool) {
	target := c.Resolve(slideNum, stepNum)
	if target == c.Position() {
		return target, false
	}
	c.slideNum = target.SlideNum
	c.steps[target.SlideNum-1] = target.StepNum
	return target, true
}

// Step advances or retreats by offset, rolling over slide boundaries.
// Rolling back lands on the previous slide's last step. Past the ends of the
// deck the roll is clamped: forward from the last slide lands on its first
// step, back from the first slide on its last step.
func (c *Cursor) Step(offset int) (models.Position, bool) {
	cur := c.Position()
	max := c.maxStep(cur.SlideNum)
	switch {
	case offset > 0:
		if cur.StepNum+offset <= max {
			return c.GoToSlide(cur.SlideNum, intPtr(cur.StepNum+offset))
		}
		return c.GoToSlide(cur.SlideNum+1, intPtr(1))
	case offset < 0:
		if cur.StepNum+offset > 0 {
			return c.GoToSlide(cur.SlideNum, intPtr(cur.StepNum+offset))
		}
		return c.GoToSlide(cur.SlideNum-1, intPtr(-1))
	}
	return cur, false
}

// CarryOver copies the recorded steps of prev for every slide both decks
// share, clamped to this deck's max steps. The current slide is not moved.
func (c *Cursor) CarryOver(prev *Cursor) {
	n := len(c.steps)
	if len(prev.steps) < n {
		n = len(prev.steps)
	}
	for i := 0; i < n; i++ {
		step := prev.steps[i]
		if max := c.maxStep(i + 1); step > max {
			step = max
		}
		c.steps[i] = step
	}
}

// Next moves to the following slide, keeping its recorded step
func (c *Cursor) Next() (models.Position, bool) {
	return c.GoToSlide(c.slideNum+1, nil)
}

// Prev moves to the preceding slide, keeping its recorded step
func (c *Cursor) Prev() (models.Position, bool) {
	return c.GoToSlide(c.slideNum-1, nil)
}

// Snapshot captures the cursor so a failed action can be rolled back
func (c *Cursor) Snapshot() Snapshot {
	steps := make([]int, len(c.steps))
	copy(steps, c.steps)
	return Snapshot{slideNum: c.slideNum, steps: steps}
}

// Restore rewinds the cursor to a snapshot taken from it
func (c *Cursor) Restore(s Snapshot) {
	if len(s.steps) != len(c.steps) {
		return
	}
	c.slideNum = s.slideNum
	copy(c.steps, s.steps)
}

// Snapshot is an opaque copy of a cursor
type Snapshot struct {
	slideNum int
	steps    []int
}

func (c *Cursor) resolveSlide(n int) int {
	count := len(c.steps)
	if n < 0 {
		n = count + 1 + n
	}
	if n < 1 {
		return 1
	}
	if n > count {
		return count
	}
	return n
}

func (c *Cursor) resolveStep(slide, n int) int {
	max := c.maxStep(slide)
	if n < 0 {
		n = max + 1 + n
	}
	if n < 1 {
		n = 1
	}
	if n > max {
		n = max
	}
	return n
}

func (c *Cursor) maxStep(slide int) int {
	s, ok := c.pres.Slide(slide)
	if !ok {
		return 0
	}
	return s.MaxStep
}

func intPtr(n int) *int {
	return &n
}
