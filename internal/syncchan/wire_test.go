package syncchan

import (
	"encoding/json"
	"testing"

	"github.com/nrdvana/slidelink/internal/models"
)

func TestDecodeInbound(t *testing.T) {
	msg, err := DecodeInbound([]byte(`{"state":{"slide_num":3,"step_num":2}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.State == nil || *msg.State != (models.SharedState{SlideNum: 3, StepNum: 2}) {
		t.Fatalf("state = %+v", msg.State)
	}
	if msg.Roles != nil {
		t.Fatalf("roles should be absent, got %v", msg.Roles)
	}

	msg, err = DecodeInbound([]byte(`{"roles":[]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Roles == nil || len(msg.Roles) != 0 {
		t.Fatalf("empty roles should be present, got %#v", msg.Roles)
	}
	if msg.State != nil {
		t.Fatal("state should be absent")
	}

	if _, err := DecodeInbound([]byte(`not json`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestInboundMarshalKeepsEmptyRoles(t *testing.T) {
	data, err := json.Marshal(Inbound{Roles: []string{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"roles":[]}` {
		t.Fatalf("marshal = %s", data)
	}
	data, _ = json.Marshal(Inbound{State: &models.SharedState{SlideNum: 1, StepNum: 0}})
	if string(data) != `{"state":{"slide_num":1,"step_num":0}}` {
		t.Fatalf("marshal = %s", data)
	}
}

func TestOutboundIsFlat(t *testing.T) {
	data, _ := json.Marshal(Outbound{SlideNum: 4, StepNum: 1})
	if string(data) != `{"slide_num":4,"step_num":1}` {
		t.Fatalf("marshal = %s", data)
	}
}
