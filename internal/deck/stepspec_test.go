package deck

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nrdvana/slidelink/internal/models"
)

func TestParseStepSpec(t *testing.T) {
	tests := []struct {
		raw       string
		ranges    []models.Range
		temporary bool
	}{
		{"3", []models.Range{{Start: 3, End: 3}}, false},
		{"0", []models.Range{{Start: 0, End: 0}}, false},
		{"3-4", []models.Range{{Start: 3, End: 4}}, true},
		{"2,5-7", []models.Range{{Start: 2, End: 2}, {Start: 5, End: 7}}, true},
		{" 1 , 4 ", []models.Range{{Start: 1, End: 1}, {Start: 4, End: 4}}, false},
		{"2-2", []models.Range{{Start: 2, End: 2}}, true},
	}
	for _, tt := range tests {
		step, err := ParseStepSpec(tt.raw)
		if err != nil {
			t.Fatalf("ParseStepSpec(%q): %v", tt.raw, err)
		}
		if !reflect.DeepEqual(step.Ranges, tt.ranges) {
			t.Fatalf("ParseStepSpec(%q) ranges = %+v, want %+v", tt.raw, step.Ranges, tt.ranges)
		}
		if step.Temporary != tt.temporary {
			t.Fatalf("ParseStepSpec(%q) temporary = %v, want %v", tt.raw, step.Temporary, tt.temporary)
		}
	}
}

func TestParseStepSpecRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", " ", "a", "1,", ",2", "1-", "-1", "3-1", "1-2-3", "1.5", "x-2"} {
		_, err := ParseStepSpec(raw)
		if err == nil {
			t.Fatalf("ParseStepSpec(%q) expected error", raw)
		}
		if !errors.Is(err, ErrMalformedStepSpec) {
			t.Fatalf("ParseStepSpec(%q) error %v does not match ErrMalformedStepSpec", raw, err)
		}
	}
}

func TestStepVisibleAt(t *testing.T) {
	step, err := ParseStepSpec("2,5-7")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, n := range []int{2, 5, 6, 7} {
		if !step.VisibleAt(n) {
			t.Fatalf("expected visible at %d", n)
		}
	}
	for _, n := range []int{0, 1, 3, 4, 8} {
		if step.VisibleAt(n) {
			t.Fatalf("expected hidden at %d", n)
		}
	}
}

func TestStepVisibility(t *testing.T) {
	persistent, _ := ParseStepSpec("2")
	temporary, _ := ParseStepSpec("2-3")

	if got := persistent.Visibility(1, false); got != models.Hidden {
		t.Fatalf("persistent hidden = %v", got)
	}
	if got := temporary.Visibility(1, false); got != models.Removed {
		t.Fatalf("temporary hidden = %v", got)
	}
	if got := temporary.Visibility(1, true); got != models.Ghosted {
		t.Fatalf("presenter view = %v", got)
	}
	if got := temporary.Visibility(3, false); got != models.Visible {
		t.Fatalf("temporary shown = %v", got)
	}
}

func TestMaxStep(t *testing.T) {
	a, _ := ParseStepSpec("1")
	b, _ := ParseStepSpec("3-4")
	if got := MaxStep([]models.Step{a, b}); got != 4 {
		t.Fatalf("MaxStep = %d, want 4", got)
	}
	if got := MaxStep(nil); got != 0 {
		t.Fatalf("MaxStep(nil) = %d, want 0", got)
	}
}
