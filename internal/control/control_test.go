package control

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"frame-cache/internal/cache"
	"frame-cache/internal/database"
	"frame-cache/internal/extract"
)

// newTestServer builds the control router over a running cache with an
// empty picture directory.
func newTestServer(t *testing.T) (*mux.Router, *cache.Cache, string) {
	t.Helper()

	pictureDir := t.TempDir()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("database.New() failed: %v", err)
	}

	c := cache.New(db, extract.NewExif(), nil, cache.Options{
		PictureDir:     pictureDir,
		UpdateInterval: time.Hour,
	})
	c.Start()
	t.Cleanup(func() {
		if err := c.Stop(); err != nil {
			t.Logf("stop: %v", err)
		}
	})

	return New(c).Router(), c, pictureDir
}

func doRequest(t *testing.T, router *mux.Router, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	router, _, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var health HealthResponse
	decodeBody(t, rec, &health)
	if health.Status != statusHealthy {
		t.Errorf("Status = %q, want %q", health.Status, statusHealthy)
	}
	if health.State != "running" {
		t.Errorf("State = %q, want running", health.State)
	}
}

func TestControlReadPaused(t *testing.T) {
	t.Parallel()

	router, _, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodGet, "/api/control?paused")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	if paused, ok := body["paused"].(bool); !ok || paused {
		t.Errorf("paused = %v, want false", body["paused"])
	}
}

func TestControlSetPaused(t *testing.T) {
	t.Parallel()

	router, c, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/api/control?paused=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	if paused, ok := body["paused"].(bool); !ok || !paused {
		t.Errorf("paused = %v, want true", body["paused"])
	}
	if got := c.State(); got != cache.StatePaused {
		t.Errorf("cache state = %v, want paused", got)
	}

	// Health reflects the paused loop.
	rec = doRequest(t, router, http.MethodGet, "/health")
	var health HealthResponse
	decodeBody(t, rec, &health)
	if health.Status != statusPaused {
		t.Errorf("health status = %q, want %q", health.Status, statusPaused)
	}

	rec = doRequest(t, router, http.MethodPost, "/api/control?paused=off")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := c.State(); got != cache.StateRunning {
		t.Errorf("cache state = %v, want running", got)
	}
}

func TestControlSetPausedBadValue(t *testing.T) {
	t.Parallel()

	router, _, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/api/control?paused=perhaps")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestControlUnknownCommand(t *testing.T) {
	t.Parallel()

	router, _, _ := newTestServer(t)

	// Only registered commands dispatch; nothing reflects into the cache's
	// method set.
	rec := doRequest(t, router, http.MethodPost, "/api/control?stop_loop=true")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var body map[string]string
	decodeBody(t, rec, &body)
	if body["error"] == "" {
		t.Error("expected an error message in the response body")
	}
}

func TestControlUpdateCache(t *testing.T) {
	t.Parallel()

	router, _, pictureDir := newTestServer(t)

	path := filepath.Join(pictureDir, "new.jpg")
	if err := os.WriteFile(path, []byte("image payload"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	now := time.Now().Add(time.Second)
	if err := os.Chtimes(pictureDir, now, now); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	rec := doRequest(t, router, http.MethodPost, "/api/control?update_cache=now")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/query")
	if rec.Code != http.StatusOK {
		t.Fatalf("query status = %d, want 200", rec.Code)
	}
	var query QueryResponse
	decodeBody(t, rec, &query)
	if query.Count != 1 {
		t.Errorf("Count = %d, want 1", query.Count)
	}
}

func TestQueryRejectsBadSort(t *testing.T) {
	t.Parallel()

	router, _, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodGet, "/api/query?sort=fname%3B+DROP+TABLE+file")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestFileInfoErrors(t *testing.T) {
	t.Parallel()

	router, _, _ := newTestServer(t)

	rec := doRequest(t, router, http.MethodGet, "/api/file_info?id=abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id: status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/file_info?id=9999")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id: status = %d, want 404", rec.Code)
	}
}

func TestFileInfoRoundTrip(t *testing.T) {
	t.Parallel()

	router, _, pictureDir := newTestServer(t)

	path := filepath.Join(pictureDir, "shot.jpg")
	if err := os.WriteFile(path, []byte("image payload"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	now := time.Now().Add(time.Second)
	if err := os.Chtimes(pictureDir, now, now); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if rec := doRequest(t, router, http.MethodPost, "/api/control?update_cache=now"); rec.Code != http.StatusOK {
		t.Fatalf("update_cache status = %d, want 200", rec.Code)
	}

	rec := doRequest(t, router, http.MethodGet, "/api/query")
	var query QueryResponse
	decodeBody(t, rec, &query)
	if query.Count != 1 {
		t.Fatalf("Count = %d, want 1", query.Count)
	}

	rec = doRequest(t, router, http.MethodGet,
		"/api/file_info?id="+strconv.FormatInt(query.Slots[0][0], 10))
	if rec.Code != http.StatusOK {
		t.Fatalf("file_info status = %d, want 200", rec.Code)
	}

	var info database.FileInfo
	decodeBody(t, rec, &info)
	if info.Fname != path {
		t.Errorf("Fname = %q, want %q", info.Fname, path)
	}
}

func TestParseBoolValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{in: "true", want: true},
		{in: "on", want: true},
		{in: "yes", want: true},
		{in: "1", want: true},
		{in: "false", want: false},
		{in: "off", want: false},
		{in: "no", want: false},
		{in: "0", want: false},
		{in: "TRUE", want: true},
		{in: "maybe", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseBoolValue(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseBoolValue(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("parseBoolValue(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
