package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nrdvana/slidelink/internal/config"
	"github.com/nrdvana/slidelink/internal/db"
	"github.com/nrdvana/slidelink/internal/models"
	"github.com/nrdvana/slidelink/internal/services"
	"github.com/nrdvana/slidelink/internal/syncchan"
)

func newRelay(t *testing.T, deckDir string) *httptest.Server {
	t.Helper()
	logger := zerolog.Nop()
	database, err := db.Open(":memory:", logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	grants := services.NewGrantService(database, logger)
	hub := services.NewHub(logger)
	router := SetupRoutes(
		NewWebSocketHandler(hub, grants, logger),
		NewStateHandler(hub),
		NewGrantHandler(grants, logger),
		deckDir,
		logger,
	)
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestGrantAPI(t *testing.T) {
	ts := newRelay(t, "")
	base := ts.URL + "/api/grants"

	var created models.Grant
	status := doJSON(t, http.MethodPost, base, CreateGrantRequest{Key: "k1", Label: "speaker", Roles: []string{"lead"}}, &created)
	if status != http.StatusCreated || created.ID == "" {
		t.Fatalf("create = %d %+v", status, created)
	}

	tests := []struct {
		name   string
		method string
		url    string
		body   any
		want   int
	}{
		{"duplicate", http.MethodPost, base, CreateGrantRequest{Key: "k1"}, http.StatusConflict},
		{"bad role", http.MethodPost, base, CreateGrantRequest{Key: "k2", Roles: []string{"root"}}, http.StatusBadRequest},
		{"missing key", http.MethodPost, base, CreateGrantRequest{}, http.StatusBadRequest},
		{"get", http.MethodGet, base + "/" + created.ID, nil, http.StatusOK},
		{"get missing", http.MethodGet, base + "/nope", nil, http.StatusNotFound},
		{"update", http.MethodPut, base + "/" + created.ID, map[string]any{"roles": []string{"notes"}}, http.StatusOK},
		{"update missing", http.MethodPut, base + "/nope", map[string]any{}, http.StatusNotFound},
		{"list", http.MethodGet, base, nil, http.StatusOK},
		{"delete", http.MethodDelete, base + "/" + created.ID, nil, http.StatusNoContent},
		{"delete again", http.MethodDelete, base + "/" + created.ID, nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		if got := doJSON(t, tt.method, tt.url, tt.body, nil); got != tt.want {
			t.Fatalf("%s: status = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestGrantKeysAreNotListed(t *testing.T) {
	ts := newRelay(t, "")
	base := ts.URL + "/api/grants"

	var created CreateGrantResponse
	if status := doJSON(t, http.MethodPost, base, CreateGrantRequest{Key: "s3cret", Roles: []string{"lead"}}, &created); status != http.StatusCreated {
		t.Fatalf("create = %d", status)
	}
	if created.Key != "s3cret" {
		t.Fatalf("create response key = %q, want the registered key", created.Key)
	}

	for _, url := range []string{base, base + "/" + created.ID} {
		resp, err := http.Get(url)
		if err != nil {
			t.Fatalf("get %s: %v", url, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("read %s: %v", url, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get %s = %d", url, resp.StatusCode)
		}
		if bytes.Contains(body, []byte("s3cret")) || bytes.Contains(body, []byte(`"key"`)) {
			t.Fatalf("get %s exposes the key: %s", url, body)
		}
		if bytes.Contains(body, []byte("lastUsed")) {
			t.Fatalf("unused grant reports lastUsed: %s", body)
		}
	}
}

func TestInvalidJSONIsRejected(t *testing.T) {
	ts := newRelay(t, "")
	resp, err := http.Post(ts.URL+"/api/grants", "application/json", bytes.NewBufferString("{"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestWebSocketRejectsBadModeAndKey(t *testing.T) {
	ts := newRelay(t, "")
	for _, q := range []string{"mode=admin", "mode=presenter&key=unknown"} {
		resp, err := http.Get(ts.URL + "/ws?" + q)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest && resp.StatusCode != http.StatusForbidden {
			t.Fatalf("%s: status = %d", q, resp.StatusCode)
		}
	}
}

func nextEvent(t *testing.T, c *syncchan.Channel) syncchan.Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return syncchan.Event{}
	}
}

func connect(t *testing.T, ts *httptest.Server, mode, key string) *syncchan.Channel {
	t.Helper()
	c := syncchan.New(syncchan.Options{
		Address:          "/ws",
		PageURL:          ts.URL + "/",
		Mode:             mode,
		Keys:             syncchan.StaticKey(key),
		HandshakeTimeout: 2 * time.Second,
	}, zerolog.Nop())
	t.Cleanup(func() { c.Close() })
	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if ev := nextEvent(t, c); ev.Kind != syncchan.EventOpen {
		t.Fatalf("expected open, got %+v", ev)
	}
	return c
}

func TestLeaderUpdatesReachObservers(t *testing.T) {
	ts := newRelay(t, "")
	if status := doJSON(t, http.MethodPost, ts.URL+"/api/grants", CreateGrantRequest{Key: "sekrit", Roles: []string{"lead"}}, nil); status != http.StatusCreated {
		t.Fatalf("create grant = %d", status)
	}

	leader := connect(t, ts, config.ModePresenter, "sekrit")
	if ev := nextEvent(t, leader); len(ev.Message.Roles) != 1 || ev.Message.Roles[0] != models.RoleLead {
		t.Fatalf("leader roles = %+v", ev.Message)
	}
	viewer := connect(t, ts, config.ModeObserver, "")
	if ev := nextEvent(t, viewer); ev.Message.Roles == nil || len(ev.Message.Roles) != 0 {
		t.Fatalf("viewer roles = %+v", ev.Message)
	}

	if err := leader.Send(syncchan.Outbound{SlideNum: 2, StepNum: 1}); err != nil {
		t.Fatalf("send: %v", err)
	}
	ev := nextEvent(t, viewer)
	if ev.Message.State == nil || *ev.Message.State != (models.SharedState{SlideNum: 2, StepNum: 1}) {
		t.Fatalf("viewer got %+v", ev)
	}

	var st StateResponse
	doJSON(t, http.MethodGet, ts.URL+"/api/state", nil, &st)
	if !st.Known || st.SlideNum != 2 || st.StepNum != 1 || st.Peers != 2 {
		t.Fatalf("state = %+v", st)
	}

	late := connect(t, ts, config.ModeObserver, "")
	nextEvent(t, late)
	if ev := nextEvent(t, late); ev.Message.State == nil || ev.Message.State.SlideNum != 2 {
		t.Fatalf("late joiner got %+v", ev)
	}
}

func TestDeckDirIsServed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "deck.html"), []byte("<div class=\"slides\"></div>"), 0644); err != nil {
		t.Fatalf("write deck: %v", err)
	}
	ts := newRelay(t, dir)
	resp, err := http.Get(ts.URL + "/deck.html")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
}
