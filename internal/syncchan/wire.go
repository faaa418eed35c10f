package syncchan

import (
	"encoding/json"
	"fmt"

	"github.com/nrdvana/slidelink/internal/models"
)

// Inbound is one frame received from the relay. Both keys are optional and
// applied independently; a nil Roles means the key was absent, an empty
// non-nil slice means every role was revoked.
type Inbound struct {
	State *models.SharedState
	Roles []string
}

// Outbound is the flat cursor update a leader sends
type Outbound struct {
	SlideNum int `json:"slide_num"`
	StepNum  int `json:"step_num"`
}

// MarshalJSON writes only the keys that are present, keeping an empty
// roles list distinct from an absent one.
func (m Inbound) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 2)
	if m.State != nil {
		out["state"] = m.State
	}
	if m.Roles != nil {
		out["roles"] = m.Roles
	}
	return json.Marshal(out)
}

// DecodeInbound parses a single JSON object frame
func DecodeInbound(data []byte) (Inbound, error) {
	var raw struct {
		State *models.SharedState `json:"state"`
		Roles *[]string           `json:"roles"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Inbound{}, fmt.Errorf("failed to decode frame: %w", err)
	}
	msg := Inbound{State: raw.State}
	if raw.Roles != nil {
		msg.Roles = *raw.Roles
		if msg.Roles == nil {
			msg.Roles = []string{}
		}
	}
	return msg, nil
}
