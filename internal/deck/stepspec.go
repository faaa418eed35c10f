package deck

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nrdvana/slidelink/internal/models"
)

// ErrMalformedStepSpec is matched by every SpecError
var ErrMalformedStepSpec = errors.New("malformed step spec")

// SpecError reports a step specification that cannot be indexed
type SpecError struct {
	Slide  int
	Spec   string
	Reason string
}

func (e *SpecError) Error() string {
	if e.Slide > 0 {
		return fmt.Sprintf("slide %d: step spec %q: %s", e.Slide, e.Spec, e.Reason)
	}
	return fmt.Sprintf("step spec %q: %s", e.Spec, e.Reason)
}

func (e *SpecError) Is(target error) bool {
	return target == ErrMalformedStepSpec
}

// ParseStepSpec parses "N", "N-M" and comma lists of both into a Step.
// Any range written as a pair marks the step temporary.
func ParseStepSpec(raw string) (models.Step, error) {
	var step models.Step
	if strings.TrimSpace(raw) == "" {
		return step, &SpecError{Spec: raw, Reason: "empty"}
	}
	for _, segment := range strings.Split(raw, ",") {
		r, pair, err := parseRange(segment)
		if err != nil {
			return models.Step{}, &SpecError{Spec: raw, Reason: err.Error()}
		}
		if pair {
			step.Temporary = true
		}
		step.Ranges = append(step.Ranges, r)
	}
	return step, nil
}

func parseRange(segment string) (models.Range, bool, error) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return models.Range{}, false, errors.New("empty range")
	}
	lo, hi, pair := strings.Cut(segment, "-")
	start, err := parseStepNum(lo)
	if err != nil {
		return models.Range{}, false, err
	}
	if !pair {
		return models.Range{Start: start, End: start}, false, nil
	}
	end, err := parseStepNum(hi)
	if err != nil {
		return models.Range{}, false, err
	}
	if end < start {
		return models.Range{}, false, fmt.Errorf("range %d-%d ends before it starts", start, end)
	}
	return models.Range{Start: start, End: end}, true, nil
}

func parseStepNum(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("missing step number")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%q is not a step number", s)
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a step number", s)
	}
	return n, nil
}

// singleStepNum reports whether raw is a bare number, used to seed auto-step counters.
func singleStepNum(raw string) (int, bool) {
	n, err := parseStepNum(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MaxStep returns the largest range end over all steps, or 0.
func MaxStep(steps []models.Step) int {
	max := 0
	for _, s := range steps {
		for _, r := range s.Ranges {
			if r.End > max {
				max = r.End
			}
		}
	}
	return max
}
