package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("GET", "/api/state", 200, 12*time.Millisecond)
	RecordPeerJoined("obs")
	RecordPeerLeft("obs")
	RecordFrame(FrameAccepted)
	RecordBroadcast(3)
}

func TestRequestLoggerUsesRouteTemplate(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	router := mux.NewRouter()
	router.Use(RequestLogger(logger), RequestMetricsMiddleware)
	router.HandleFunc("/api/grants/{id}", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Grant not found", http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/grants/abc", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	line := buf.String()
	if !strings.Contains(line, `"path":"/api/grants/{id}"`) || !strings.Contains(line, `"level":"warn"`) {
		t.Fatalf("unexpected log line: %s", line)
	}
}
