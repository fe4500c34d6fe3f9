package trigger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appconfig "krakensync/config"
)

// blockingRunner holds a triggered sync open until released so overlap
// handling can be observed.
type blockingRunner struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) Run(context.Context) error {
	close(r.started)
	<-r.release
	return nil
}

func newTestServer(runner SyncRunner) *Server {
	return NewServer(&appconfig.Config{
		Trigger: appconfig.TriggerConfig{Listen: ":0"},
	}, runner)
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(newBlockingRunner())

	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", w.Code)
	}
}

func TestTriggerStartsJob(t *testing.T) {
	runner := newBlockingRunner()
	server := newTestServer(runner)
	router := server.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/trigger-sync", nil))

	if w.Code != http.StatusAccepted {
		t.Fatalf("trigger status = %d, want 202", w.Code)
	}

	var body struct {
		Message string `json:"message"`
		JobID   string `json:"job_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.JobID == "" {
		t.Error("response is missing a job id")
	}

	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("sync job never started")
	}
	close(runner.release)
}

func TestTriggerRejectsOverlap(t *testing.T) {
	runner := newBlockingRunner()
	server := newTestServer(runner)
	router := server.Router()

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/trigger-sync", nil))
	if first.Code != http.StatusAccepted {
		t.Fatalf("first trigger status = %d, want 202", first.Code)
	}
	<-runner.started

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/trigger-sync", nil))
	if second.Code != http.StatusConflict {
		t.Fatalf("overlapping trigger status = %d, want 409", second.Code)
	}

	close(runner.release)
}
