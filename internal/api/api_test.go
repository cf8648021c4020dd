package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cutplan/internal/config"
	"github.com/piwi3910/cutplan/internal/export"
	"github.com/piwi3910/cutplan/internal/importer"
	"github.com/piwi3910/cutplan/internal/model"
	"github.com/piwi3910/cutplan/internal/report"
	"github.com/piwi3910/cutplan/internal/service"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Addr: "127.0.0.1:0"},
		Service: config.ServiceConfig{
			MaxActiveTasks:  4,
			TaskTimeout:     time.Minute,
			Retention:       time.Hour,
			CleanupInterval: time.Minute,
		},
		Optimizer: config.OptimizerConfig{
			CutThickness:           "0",
			MinTrimDimension:       "0",
			OptimizationLevel:      "fast",
			Priority:               "material_efficiency",
			SplitPolicy:            "both",
			MaxSimultaneousTasks:   2,
			MaxSimultaneousThreads: 2,
			ThreadCheckInterval:    10 * time.Millisecond,
		},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := testConfig()
	svc, err := service.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})
	return New(svc, cfg.Server)
}

func do(t *testing.T, s *Server, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func simpleRequest() model.Request {
	return model.Request{
		Panels: []model.PanelInput{{ID: 1, Width: "50", Height: "50", Count: 4, Label: "door"}},
		Stock:  []model.PanelInput{{ID: 100, Width: "100", Height: "100", Count: 2}},
	}
}

type snapshot struct {
	ID          string       `json:"id"`
	Status      model.Status `json:"status"`
	PercentDone int          `json:"percent_done"`
}

// submitAndWait posts req and polls until the task is finished.
func submitAndWait(t *testing.T, s *Server, req model.Request) string {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)

	w := do(t, s, http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var snap snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.NotEmpty(t, snap.ID)
	assert.Equal(t, "/api/v1/tasks/"+snap.ID, w.Header().Get("Location"))

	require.Eventually(t, func() bool {
		w := do(t, s, http.MethodGet, "/api/v1/tasks/"+snap.ID, nil)
		var got snapshot
		return w.Code == http.StatusOK &&
			json.Unmarshal(w.Body.Bytes(), &got) == nil &&
			got.Status == model.StatusFinished
	}, 5*time.Second, 10*time.Millisecond)
	return snap.ID
}

func TestHealthz(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSubmitAndResult(t *testing.T) {
	s := newTestServer(t)
	id := submitAndWait(t, s, simpleRequest())

	w := do(t, s, http.MethodGet, "/api/v1/tasks/"+id+"/result", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp report.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.TaskID)
	assert.Equal(t, model.StatusFinished, resp.Status)
	assert.Equal(t, 4, resp.Summary.PlacedPanels)
	assert.Equal(t, 1, resp.Summary.Sheets)
	assert.Empty(t, resp.NoFit)
	require.Len(t, resp.Materials, 1)
	assert.Equal(t, "door", resp.Materials[0].Sheets[0].Panels[0].Label)

	w = do(t, s, http.MethodGet, "/api/v1/tasks/"+id, nil)
	var snap snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 100, snap.PercentDone)
}

func TestSubmit_Invalid(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/v1/tasks", strings.NewReader("{"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/tasks", strings.NewReader(`{"panels":[],"stock":[]}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request")
}

func TestUnknownTask(t *testing.T) {
	s := newTestServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/tasks/nope"},
		{http.MethodGet, "/api/v1/tasks/nope/result"},
		{http.MethodGet, "/api/v1/tasks/nope/export/pdf"},
		{http.MethodPost, "/api/v1/tasks/nope/stop"},
		{http.MethodDelete, "/api/v1/tasks/nope"},
	} {
		w := do(t, s, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestStopFinishedTaskConflicts(t *testing.T) {
	s := newTestServer(t)
	id := submitAndWait(t, s, simpleRequest())

	w := do(t, s, http.MethodPost, "/api/v1/tasks/"+id+"/stop", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, s, http.MethodDelete, "/api/v1/tasks/"+id, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestList(t *testing.T) {
	s := newTestServer(t)
	submitAndWait(t, s, simpleRequest())
	submitAndWait(t, s, simpleRequest())

	w := do(t, s, http.MethodGet, "/api/v1/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestExport(t *testing.T) {
	s := newTestServer(t)
	id := submitAndWait(t, s, simpleRequest())

	w := do(t, s, http.MethodGet, "/api/v1/tasks/"+id+"/export/pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
	assert.Contains(t, w.Header().Get("Content-Disposition"), fmt.Sprintf("cutplan-%s.pdf", id))

	for _, format := range []string{"labels", "xlsx", "dxf"} {
		w := do(t, s, http.MethodGet, "/api/v1/tasks/"+id+"/export/"+format, nil)
		assert.Equal(t, http.StatusOK, w.Code, format)
		assert.NotZero(t, w.Body.Len(), format)
	}

	w = do(t, s, http.MethodGet, "/api/v1/tasks/"+id+"/export/svg", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportUpload(t *testing.T) {
	s := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "parts.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Label,Width,Height,Qty\nShelf,600,300,2\nBad,x,1,1\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var res importer.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Panels, 1)
	assert.Equal(t, "Shelf", res.Panels[0].Label)
	assert.Len(t, res.Errors, 1)
}

func TestImportUpload_MissingFile(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodPost, "/api/v1/import", strings.NewReader(""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodGet, "/healthz", nil)

	w := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cutplan_http_requests_total")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: x", service.ErrInvalidRequest), http.StatusBadRequest},
		{fmt.Errorf("%w: x", service.ErrTaskNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: x", service.ErrServiceBusy), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: x", model.ErrInvalidTransition), http.StatusConflict},
		{export.ErrNothingToExport, http.StatusUnprocessableEntity},
		{errUnknownFormat, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestBusyResponseHasRetryAfter(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	s.fail(c, service.ErrServiceBusy)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}
