package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the bindings that are not navigation. Navigation keys are
// resolved by controller.KeyAction so the terminal and any other view share
// one key map.
type keyMap struct {
	Lead      key.Binding
	Follow    key.Binding
	Navigate  key.Binding
	Notes     key.Binding
	Reconnect key.Binding
	First     key.Binding
	Last      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Lead: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "lead"),
		),
		Follow: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "follow"),
		),
		Navigate: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "nav bar"),
		),
		Notes: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "notes"),
		),
		Reconnect: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reconnect"),
		),
		First: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "first slide"),
		),
		Last: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "last slide"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// enabled switches off the toggles the current grants do not offer
func (k *keyMap) enabled(lead, navigate, notes bool) {
	k.Lead.SetEnabled(lead)
	k.Navigate.SetEnabled(navigate)
	k.Notes.SetEnabled(notes)
}

func (k keyMap) help() []key.Binding {
	all := []key.Binding{k.Lead, k.Follow, k.Navigate, k.Notes, k.Reconnect, k.Quit}
	out := all[:0]
	for _, b := range all {
		if b.Enabled() {
			out = append(out, b)
		}
	}
	return out
}
