package roles

import (
	"errors"
	"sort"
	"strings"

	"github.com/nrdvana/slidelink/internal/models"
)

// ErrNotGranted is returned when lead is enabled without the lead grant
var ErrNotGranted = errors.New("role not granted")

// Grants is the set of role names handed out by the relay
type Grants map[string]bool

// NewGrants builds a grant set from a roles message. Unknown names are kept
// so the status view can show them; blank names are dropped.
func NewGrants(names []string) Grants {
	g := make(Grants, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" {
			g[name] = true
		}
	}
	return g
}

// Has reports whether the named role was granted
func (g Grants) Has(name string) bool {
	return g[name]
}

// Names returns the granted role names in sorted order
func (g Grants) Names() []string {
	out := make([]string, 0, len(g))
	for name := range g {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Affordances lists which role toggles a view should offer
type Affordances struct {
	Follow   bool
	Lead     bool
	Navigate bool
	Notes    bool
}

// Derive computes the toggles offered for a grant set
func Derive(g Grants) Affordances {
	lead := g.Has(models.RoleLead)
	return Affordances{
		Follow:   lead,
		Lead:     lead,
		Notes:    lead || g.Has(models.RoleNotes),
		Navigate: lead || g.Has(models.RoleNavigate),
	}
}

// Set holds the capabilities currently enabled on the local peer.
// Lead and Follow are never both true.
type Set struct {
	Lead     bool
	Follow   bool
	Navigate bool
	Notes    bool

	grants Grants
}

// Grants returns the current grant set
func (s *Set) Grants() Grants {
	return s.grants
}

// Affordances returns the toggles offered for the current grants
func (s *Set) Affordances() Affordances {
	return Derive(s.grants)
}

// EnableLead turns leading on or off. Turning it on drops follow.
func (s *Set) EnableLead(enable bool) error {
	if !enable {
		s.Lead = false
		return nil
	}
	if !s.grants.Has(models.RoleLead) {
		return ErrNotGranted
	}
	s.Lead = true
	s.Follow = false
	return nil
}

// EnableFollow turns following on or off. Turning it on drops lead.
// Catching up to the leader's position is the caller's job.
func (s *Set) EnableFollow(enable bool) {
	s.Follow = enable
	if enable {
		s.Lead = false
	}
}

// EnableNavigate toggles the navigation controls
func (s *Set) EnableNavigate(enable bool) {
	s.Navigate = enable
}

// EnableNotes toggles the notes view
func (s *Set) EnableNotes(enable bool) {
	s.Notes = enable
}

// ReplaceGrants installs a new grant set wholesale. A lead grant switches
// follow off; losing the lead grant switches lead off.
func (s *Set) ReplaceGrants(g Grants) {
	if g == nil {
		g = Grants{}
	}
	s.grants = g
	if g.Has(models.RoleLead) {
		s.Follow = false
	} else {
		s.Lead = false
	}
}

// Clone returns an independent copy for rollback
func (s *Set) Clone() Set {
	out := *s
	out.grants = make(Grants, len(s.grants))
	for k, v := range s.grants {
		out.grants[k] = v
	}
	return out
}
