package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/tagcat/internal/config"
	"github.com/dgallion1/tagcat/internal/stats"
	"github.com/dgallion1/tagcat/internal/store"
)

const testAPIKey = "test-key"

func newTestServer() *Server {
	cfg := config.Config{
		Port:           "0",
		TagcatAPIKey:   testAPIKey,
		MaxUploadBytes: 1 << 20,
		CatalogTTL:     time.Hour,
		StatsWindow:    time.Hour,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(store.New(cfg.CatalogTTL), stats.New(cfg.StatsWindow), log, cfg)
}

func doRequest(t *testing.T, s *Server, method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid response JSON %q: %v", rec.Body.String(), err)
	}
	return out
}

func uploadBody(t *testing.T, filename, content string, fields map[string]string) (string, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return mw.FormDataContentType(), &buf
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/parse", strings.NewReader("[A]\nx\n"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/parse", strings.NewReader("[A]\nx\n"))
	req.Header.Set("Authorization", "Bearer wrong-key")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", rec.Code)
	}
}

func TestHandleParse(t *testing.T) {
	s := newTestServer()
	rec := doRequest(t, s, http.MethodPost, "/api/parse", "text/plain", strings.NewReader("[A]\nx # note\n[B]\n"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	groups, ok := body["groups"].([]any)
	if !ok || len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %v", body["groups"])
	}

	first := groups[0].(map[string]any)
	if first["name"] != "A" {
		t.Errorf("expected first group A, got %v", first["name"])
	}
	tags := first["tags"].([]any)
	if len(tags) != 1 || tags[0] != "x" {
		t.Errorf("expected tags [x], got %v", tags)
	}

	// Empty groups serialize as [] not null.
	second := groups[1].(map[string]any)
	if tags, ok := second["tags"].([]any); !ok || len(tags) != 0 {
		t.Errorf("expected empty tags array, got %v", second["tags"])
	}
}

func TestHandleParse_MalformedHeader(t *testing.T) {
	s := newTestServer()
	rec := doRequest(t, s, http.MethodPost, "/api/parse", "text/plain", strings.NewReader("[A]\nx\n[Broken\n"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["line"] != float64(3) {
		t.Errorf("expected line 3, got %v", body["line"])
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "closing bracket") {
		t.Errorf("expected closing bracket message, got %v", body["error"])
	}
}

func TestCatalogLifecycle(t *testing.T) {
	s := newTestServer()

	contentType, body := uploadBody(t, "anime.txt", "[Generic]\nred_hair female dress\n[IDs]\n102349\n", map[string]string{"name": "anime tags"})
	rec := doRequest(t, s, http.MethodPost, "/api/catalogs", contentType, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	created := decodeBody(t, rec)
	id, _ := created["catalog_id"].(string)
	if id == "" {
		t.Fatal("expected catalog_id in response")
	}
	if created["name"] != "anime tags" {
		t.Errorf("expected name %q, got %v", "anime tags", created["name"])
	}

	// List shows a summary with counts.
	rec = doRequest(t, s, http.MethodGet, "/api/catalogs", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	list := decodeBody(t, rec)["catalogs"].([]any)
	if len(list) != 1 {
		t.Fatalf("expected 1 catalog, got %d", len(list))
	}
	summary := list[0].(map[string]any)
	if summary["group_count"] != float64(2) || summary["tag_count"] != float64(2) {
		t.Errorf("expected counts 2/2, got %v/%v", summary["group_count"], summary["tag_count"])
	}

	// Get returns the full groups.
	rec = doRequest(t, s, http.MethodGet, "/api/catalogs/"+id, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	full := decodeBody(t, rec)
	groups := full["groups"].([]any)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	// Delete removes it.
	rec = doRequest(t, s, http.MethodDelete, "/api/catalogs/"+id, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = doRequest(t, s, http.MethodGet, "/api/catalogs/"+id, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestUploadCatalog_DefaultsNameFromFilename(t *testing.T) {
	s := newTestServer()
	contentType, body := uploadBody(t, "mylist.txt", "[A]\nx\n", nil)
	rec := doRequest(t, s, http.MethodPost, "/api/catalogs", contentType, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["name"]; got != "mylist" {
		t.Errorf("expected name mylist, got %v", got)
	}
}

func TestUploadCatalog_MarkdownSource(t *testing.T) {
	s := newTestServer()
	md := "# My tags\n\nProse is ignored.\n\n```\n[A]\nx\n```\n"
	contentType, body := uploadBody(t, "tags.md", md, nil)
	rec := doRequest(t, s, http.MethodPost, "/api/catalogs", contentType, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	groups := decodeBody(t, rec)["groups"].([]any)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].(map[string]any)["name"] != "A" {
		t.Errorf("expected group A, got %v", groups[0])
	}
}

func TestUploadCatalog_UnsupportedExtension(t *testing.T) {
	s := newTestServer()
	contentType, body := uploadBody(t, "tags.exe", "[A]\nx\n", nil)
	rec := doRequest(t, s, http.MethodPost, "/api/catalogs", contentType, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadCatalog_MissingFile(t *testing.T) {
	s := newTestServer()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("name", "no file here")
	mw.Close()

	rec := doRequest(t, s, http.MethodPost, "/api/catalogs", mw.FormDataContentType(), &buf)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleStats(t *testing.T) {
	s := newTestServer()

	// Parse something first so the window has a sample.
	rec := doRequest(t, s, http.MethodPost, "/api/parse", "text/plain", strings.NewReader("[A]\nx\ny\n"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/stats", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	snap := decodeBody(t, rec)["stats"].(map[string]any)
	if snap["count"] != float64(1) {
		t.Errorf("expected count 1, got %v", snap["count"])
	}
	if snap["groups"] != float64(1) || snap["tags"] != float64(2) {
		t.Errorf("expected groups=1 tags=2, got %v/%v", snap["groups"], snap["tags"])
	}
}
