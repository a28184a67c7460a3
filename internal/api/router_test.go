package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"package-tracking-service/internal/adapters/document"
	"package-tracking-service/internal/adapters/repositories"
	"package-tracking-service/internal/adapters/storage"
	"package-tracking-service/internal/auth"
	"package-tracking-service/internal/platform/logger"
	"package-tracking-service/internal/services"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	srv   *httptest.Server
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	log := logger.Nop()
	repo := repositories.NewMemoryPackageRepository()
	files, err := storage.NewLocalFileStore(t.TempDir(), "/files")
	require.NoError(t, err)

	tokens, err := auth.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)
	token, err := tokens.Issue("admin-1")
	require.NoError(t, err)

	lifecycle := services.NewLifecycle(services.LifecycleDeps{Repo: repo, Files: files, Log: log, TrackingPrefix: "DU"})
	router := NewRouter(RouterDeps{
		Lifecycle:    lifecycle,
		Tracker:      services.NewTracker(repo, nil, log),
		Exporter:     services.NewExporter(repo, nil, document.NewLabelRenderer(files, log), files, log),
		Tokens:       tokens,
		Log:          log,
		FilesDir:     files.Dir,
		FilesBaseURL: "/files",
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, token: token}
}

func (s *testServer) do(t *testing.T, method, path, body string, authed bool) (int, map[string]any) {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rdr)
	require.NoError(t, err)
	if authed {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(bytes.TrimSpace(raw)) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

const createBody = `{
	"trackingNumber": "DU1234567890",
	"description": "Box of books",
	"weight": 2.5,
	"dimensions": {"length": 30, "width": 20, "height": 10},
	"sender": {"fullName": "Ada Sender"},
	"recipient": {"fullName": "Bo Recipient", "address": "1 Main St, Springfield"},
	"payment": {"amount": "19.99", "currency": "USD", "isPaid": true, "isVisible": false}
}`

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestTrackUnknown(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodGet, "/track/DU0000000000", "", false)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, map[string]any{"error": "package not found"}, body)
}

func TestAdminRequiresToken(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodGet, "/admin/packages", "", false)
	assert.Equal(t, http.StatusUnauthorized, code)

	req, err := http.NewRequest(http.MethodGet, s.srv.URL+"/admin/packages", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer forged.token.value")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPackageLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/admin/packages", createBody, true)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, float64(10), body["progress"])
	assert.Equal(t, "admin-1", body["adminId"])

	code, _ = s.do(t, http.MethodPost, "/admin/packages", createBody, true)
	assert.Equal(t, http.StatusConflict, code)

	code, body = s.do(t, http.MethodPost, "/admin/packages/DU1234567890/checkpoints",
		`{"status":"in_transit","location":"Denver, CO","coordinates":{"lat":39.7392,"lng":-104.9903}}`, true)
	require.Equal(t, http.StatusCreated, code, body)
	cp := body["checkpoint"].(map[string]any)
	cpID := cp["id"].(string)
	pkg := body["package"].(map[string]any)
	assert.Equal(t, "in_transit", pkg["status"])
	assert.Equal(t, float64(50), pkg["progress"])

	code, body = s.do(t, http.MethodGet, "/track/DU1234567890", "", false)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "In Transit", body["statusText"])
	assert.Nil(t, body["payment"], "payment is hidden unless visible")
	loc := body["currentLocation"].(map[string]any)
	assert.Equal(t, "Denver, CO", loc["address"])

	code, body = s.do(t, http.MethodPatch, "/admin/packages/DU1234567890/checkpoints/"+cpID, `{"description":"Left hub"}`, true)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Left hub", body["checkpoint"].(map[string]any)["description"])

	code, body = s.do(t, http.MethodDelete, "/admin/packages/DU1234567890/checkpoints/nope", "", true)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "checkpoint not found", body["error"])

	code, body = s.do(t, http.MethodGet, "/admin/packages/DU1234567890/export", "", true)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "DU1234567890", body["qrPayload"])
	assert.True(t, strings.HasPrefix(body["qrDataUrl"].(string), "data:image/png;base64,"))

	code, body = s.do(t, http.MethodPost, "/admin/packages/DU1234567890/documents", "", true)
	require.Equal(t, http.StatusCreated, code, body)
	ref := body["ref"].(string)
	assert.True(t, strings.HasPrefix(ref, "/files/documents/DU1234567890/"))

	resp, err := http.Get(s.srv.URL + ref)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	code, _ = s.do(t, http.MethodDelete, "/admin/packages/DU1234567890", "", true)
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = s.do(t, http.MethodGet, "/admin/packages/DU1234567890", "", true)
	assert.Equal(t, http.StatusNotFound, code)

	resp, err = http.Get(s.srv.URL + ref)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "stored document is removed with the package")
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/admin/packages", `{"description":"x","bogus":1}`, true)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "bogus")

	code, _ = s.do(t, http.MethodPost, "/admin/packages", createBody+createBody, true)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodPost, "/admin/packages", `{"description":"x"}`, true)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "validation failed")

	code, _ = s.do(t, http.MethodPost, "/admin/packages", createBody, true)
	require.Equal(t, http.StatusCreated, code)

	code, body = s.do(t, http.MethodPatch, "/admin/packages/DU1234567890", `{"trackingNumber":"DU999"}`, true)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "immutable")

	code, _ = s.do(t, http.MethodGet, "/admin/packages?limit=-1", "", true)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListPackages(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(t, http.MethodPost, "/admin/packages", createBody, true)
	require.Equal(t, http.StatusCreated, code)

	code, body := s.do(t, http.MethodGet, "/admin/packages?status=pending", "", true)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["packages"], 1)
}
