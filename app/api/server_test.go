package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/demo-importer/app/database"
	"github.com/lysyi3m/demo-importer/app/importer"
	"github.com/lysyi3m/demo-importer/app/media"
	"github.com/lysyi3m/demo-importer/app/profile"
	"github.com/lysyi3m/demo-importer/app/shortcode"
	"github.com/lysyi3m/demo-importer/app/tasks"
)

const testAPIKey = "secret"

type fakeScheduler struct {
	mu    sync.Mutex
	tasks []tasks.TaskInterface
	err   error
}

func (s *fakeScheduler) Start() {}
func (s *fakeScheduler) Stop()  {}

func (s *fakeScheduler) EnqueueTask(task tasks.TaskInterface) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, task)
	return nil
}

type testServer struct {
	engine    *gin.Engine
	store     *database.Store
	scheduler *fakeScheduler
	exportDir string
}

func newTestServer(t *testing.T, apiKey string) *testServer {
	t.Helper()
	dir := t.TempDir()

	store, err := database.Open(filepath.Join(dir, "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	profilesDir := filepath.Join(dir, "profiles")
	require.NoError(t, os.MkdirAll(profilesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(profilesDir, "sample.yml"), []byte(`
theme_slug: rosemary
file_with_content:
  vc: sample.xml
`), 0o644))
	profiles := profile.NewCache(profilesDir)
	require.NoError(t, profiles.Run())

	testdata, err := filepath.Abs("../wxr/testdata")
	require.NoError(t, err)

	p := &profile.Profile{
		Name:            "sample",
		Dir:             testdata,
		PostsAtOnce:     10,
		DataType:        profile.DataTypeVC,
		FileWithContent: profile.ContentFiles{VC: "sample.xml"},
		UploadsFolder:   "imports",
		ThemeSlug:       "rosemary",
		DefaultAuthor:   1,
	}

	dispatcher := tasks.NewDispatcher(store, p,
		importer.NewCheckpointLog(filepath.Join(dir, "import.log")),
		media.NewUploadsRewriter("imports", "http://site.test/uploads", filepath.Join(dir, "uploads")),
		media.NewFetcher(media.FetcherOptions{}),
		tasks.DispatcherOptions{TimeBudget: time.Minute, SiteURL: "http://site.test", Version: "test"})

	scheduler := &fakeScheduler{}
	exportDir := filepath.Join(dir, "export")
	handler := NewHandler(store, profiles, dispatcher, scheduler, shortcode.NewDefaultRegistry(), exportDir, "test")

	return &testServer{
		engine:    NewServer(handler, apiKey),
		store:     store,
		scheduler: scheduler,
		exportDir: exportDir,
	}
}

func (s *testServer) do(t *testing.T, method, path string, form url.Values, key string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testAPIKey)

	w, body := s.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sample", body["profile"])
	assert.Equal(t, float64(1), body["loaded_profiles"])
	assert.Contains(t, body, "content")
}

func TestRootListsEndpoints(t *testing.T) {
	s := newTestServer(t, "")

	w, body := s.do(t, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Demo Importer", body["service"])

	endpoints := body["endpoints"].(map[string]interface{})
	assert.NotContains(t, endpoints, "importer")
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	s := newTestServer(t, "")

	w, _ := s.do(t, http.MethodPost, "/api/importer", url.Values{"importer_action": {"import_start"}}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t, testAPIKey)

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing key", "", "", http.StatusUnauthorized},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
		{"header key", "X-API-Key", testAPIKey, http.StatusOK},
		{"bearer key", "Authorization", "Bearer " + testAPIKey, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/importer/status", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			s.engine.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestImporterActions(t *testing.T) {
	s := newTestServer(t, testAPIKey)

	w, body := s.do(t, http.MethodPost, "/api/importer", url.Values{
		"importer_action": {"import_start"},
		"clear_tables":    {"posts"},
	}, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "import_start", body["action"])
	assert.Equal(t, false, body["error"])
	assert.Equal(t, float64(100), body["result"])

	w, body = s.do(t, http.MethodPost, "/api/importer", url.Values{
		"importer_action": {"import_posts"},
		"data_type":       {"vc"},
		"last_id":         {"0"},
	}, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["error"], body["message"])
	assert.Equal(t, float64(100), body["result"])

	w, body = s.do(t, http.MethodGet, "/api/importer/status", nil, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "finished", body["state"])

	stats, err := s.store.Stats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Posts)
}

func TestImporterReportsActionErrors(t *testing.T) {
	s := newTestServer(t, testAPIKey)

	w, body := s.do(t, http.MethodPost, "/api/importer", url.Values{"importer_action": {"import_sliders"}}, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["error"])
	assert.Equal(t, float64(100), body["result"])
}

func TestImporterRejectsBadInput(t *testing.T) {
	s := newTestServer(t, testAPIKey)

	w, _ := s.do(t, http.MethodPost, "/api/importer", url.Values{
		"importer_action": {"import_posts"},
		"last_id":         {"abc"},
	}, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/importer", url.Values{
		"importer_action": {"import_posts"},
		"data_type":       {"html"},
	}, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImporterRunEnqueuesTask(t *testing.T) {
	s := newTestServer(t, testAPIKey)

	w, body := s.do(t, http.MethodPost, "/api/importer/run", url.Values{"clear_tables": {"posts"}}, testAPIKey)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "sample", body["profile"])

	task := body["task"].(map[string]interface{})
	assert.Equal(t, string(tasks.TaskTypeImportRun), task["type"])
	assert.NotEmpty(t, task["id"])

	require.Len(t, s.scheduler.tasks, 1)
	assert.Equal(t, "sample", s.scheduler.tasks[0].GetProfileName())
}

func TestImporterRunQueueFull(t *testing.T) {
	s := newTestServer(t, testAPIKey)
	s.scheduler.err = errors.New("task queue is full")

	w, body := s.do(t, http.MethodPost, "/api/importer/run", url.Values{}, testAPIKey)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "task queue is full", body["details"])
}

func TestImporterRunRejectsOverlappingRun(t *testing.T) {
	s := newTestServer(t, testAPIKey)

	w, _ := s.do(t, http.MethodPost, "/api/importer/run", url.Values{}, testAPIKey)
	require.Equal(t, http.StatusAccepted, w.Code)

	w, body := s.do(t, http.MethodPost, "/api/importer/run", url.Values{"clear_tables": {"posts"}}, testAPIKey)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Import run in progress", body["error"])

	w, _ = s.do(t, http.MethodPost, "/api/importer", url.Values{
		"importer_action": {"import_posts"},
		"last_id":         {"0"},
	}, testAPIKey)
	assert.Equal(t, http.StatusConflict, w.Code)

	require.Len(t, s.scheduler.tasks, 1)
	stats, err := s.store.Stats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Posts)
}

func TestImporterRunReleasedAfterEnqueueFailure(t *testing.T) {
	s := newTestServer(t, testAPIKey)
	s.scheduler.err = errors.New("task queue is full")

	w, _ := s.do(t, http.MethodPost, "/api/importer/run", url.Values{}, testAPIKey)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	s.scheduler.err = nil
	w, _ = s.do(t, http.MethodPost, "/api/importer/run", url.Values{}, testAPIKey)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestExporter(t *testing.T) {
	s := newTestServer(t, testAPIKey)

	w, _ := s.do(t, http.MethodPost, "/api/importer", url.Values{"importer_action": {"import_posts"}}, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	w, body := s.do(t, http.MethodPost, "/api/exporter", nil, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])

	assert.FileExists(t, filepath.Join(s.exportDir, "content.xml"))
	assert.FileExists(t, filepath.Join(s.exportDir, "theme_options.yml"))
}

func TestRenderShortcodes(t *testing.T) {
	s := newTestServer(t, testAPIKey)

	w, body := s.do(t, http.MethodPost, "/api/shortcodes/render", url.Values{
		"content": {`[trx_tabs][trx_tab title="One"]first[/trx_tab][trx_tab title="Two"]second[/trx_tab][/trx_tabs]`},
	}, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	out := body["html"].(string)
	assert.Contains(t, out, `class="sc_tabs sc_tabs_style_1`)
	assert.Contains(t, out, "first")
	assert.Contains(t, out, "second")
	assert.NotContains(t, out, "[trx_tab")
}
