package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jmercer/startgate/config"
	"github.com/jmercer/startgate/controller"
	"github.com/jmercer/startgate/driver/stub"
	proto "github.com/jmercer/startgate/protocol"
)

func testServer() *Server {
	cfg := config.Default()
	cfg.RetryCount = 1
	cfg.AckTimeoutMs = 5
	cfg.DiscoveryWindowMs = 20
	cfg.StartDelayMs = 50
	air := stub.NewAir()
	ctrl := controller.New(air.Endpoint(), proto.SystemClock, cfg)
	return NewServer(ctrl, cfg.DefaultVolume)
}

func TestDevicesEmpty(t *testing.T) {
	srv := testServer()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/devices", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var devices []controller.DeviceRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &devices); err != nil {
		t.Fatalf("bad body %q: %v", rec.Body.String(), err)
	}
	if len(devices) != 0 {
		t.Errorf("devices = %v, want none before discovery", devices)
	}
}

func TestStartRejectsBadBody(t *testing.T) {
	srv := testServer()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/start", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStartRejectsEmptyShow(t *testing.T) {
	srv := testServer()
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"show": "not a show"}`)
	srv.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/start", body))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 when no directive survives parsing", rec.Code)
	}
}

func TestStartReportsResultsAndSkipped(t *testing.T) {
	srv := testServer()
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"show": "01{1,2,3}@20;bad{};02{1,2,3}"}`)
	srv.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/start", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var resp startResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body %q: %v", rec.Body.String(), err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %v, want 2", resp.Results)
	}
	// Nobody is on the air, so both deliveries fail but are reported.
	for _, r := range resp.Results {
		if r.Acked {
			t.Errorf("device %02d acked with no devices attached", r.DeviceID)
		}
	}
	if len(resp.Skipped) != 1 {
		t.Errorf("skipped = %v, want the one malformed entry", resp.Skipped)
	}
	if resp.Batch == nil || resp.Batch.MasterStart == 0 {
		t.Error("response batch missing its stamped master start")
	}
}

func TestStatusShape(t *testing.T) {
	srv := testServer()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var status map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("bad body %q: %v", rec.Body.String(), err)
	}
	if _, ok := status["uptime_seconds"]; !ok {
		t.Error("status missing uptime_seconds")
	}
	if _, ok := status["last_batch"]; ok {
		t.Error("last_batch present before any launch")
	}
}

func TestMethodDiscipline(t *testing.T) {
	srv := testServer()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/start", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /start = %d, want 405", rec.Code)
	}
}
