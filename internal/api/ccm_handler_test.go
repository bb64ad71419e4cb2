package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocausal/internal"
	"gocausal/internal/ccm"
	"gocausal/internal/config"
	"gocausal/internal/errors"
	"gocausal/internal/testkit"
)

func testServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Server.GinMode = gin.TestMode
	cfg.Analysis.NumSamples = 5
	cfg.Analysis.Workers = 2
	if mutate != nil {
		mutate(cfg)
	}
	return NewServer(cfg, internal.NewLogger(internal.LogLevelError))
}

func postJSON(t *testing.T, s *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func coupledRequest(t *testing.T) CCMRequest {
	t.Helper()
	cfg := testkit.DefaultLogisticConfig()
	cfg.Length = 150
	series, err := testkit.GenerateCoupledLogistic(cfg)
	require.NoError(t, err)
	return CCMRequest{
		X: series.X,
		Y: series.Y,
		Options: ccm.Options{
			EmbeddingDim: 2,
			LibSizes:     []int{10, 40, 100},
			Seed:         7,
		},
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	s := testServer(t, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestRunCCM_Bidirectional(t *testing.T) {
	s := testServer(t, nil)
	w := postJSON(t, s, "/api/ccm", coupledRequest(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_, err := uuid.Parse(w.Header().Get(RunIDHeader))
	assert.NoError(t, err)
	assert.Equal(t, "7", w.Header().Get(SeedHeader))

	var res ccm.BidirectionalResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotNil(t, res.XCausesY)
	require.NotNil(t, res.YCausesX)
	assert.Equal(t, ccm.XCausesY, res.XCausesY.Direction)
	require.Len(t, res.XCausesY.Results, 3)
	assert.Equal(t, 5, res.XCausesY.Results[0].ValidTrials, "sample count comes from config")
}

func TestRunCCM_SingleDirection(t *testing.T) {
	s := testServer(t, nil)
	req := coupledRequest(t)
	req.Direction = "y_causes_x"
	req.Options.NumSamples = 3

	w := postJSON(t, s, "/api/ccm", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res ccm.DirectionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, ccm.YCausesX, res.Direction)
	assert.Equal(t, 3, res.Results[0].ValidTrials)
}

func TestRunCCM_Deterministic(t *testing.T) {
	s := testServer(t, nil)
	a := postJSON(t, s, "/api/ccm", coupledRequest(t))
	b := postJSON(t, s, "/api/ccm", coupledRequest(t))
	assert.JSONEq(t, a.Body.String(), b.Body.String())
	assert.NotEqual(t, a.Header().Get(RunIDHeader), b.Header().Get(RunIDHeader))
}

func TestRunCCM_ValidationErrors(t *testing.T) {
	s := testServer(t, nil)

	tests := []struct {
		name string
		body interface{}
		code string
	}{
		{"length mismatch", CCMRequest{X: []float64{1, 2, 3}, Y: []float64{1, 2}}, errors.CodeLengthMismatch},
		{"unknown direction", CCMRequest{X: []float64{1, 2}, Y: []float64{1, 2}, Direction: "sideways"}, errors.CodeInvalidInput},
		{"bad tau", CCMRequest{X: []float64{1, 2}, Y: []float64{1, 2}, Options: ccm.Options{Tau: -1}}, errors.CodeInvalidInput},
		{"missing series", map[string]interface{}{"direction": "both"}, errors.CodeInvalidInput},
		{"too many samples", CCMRequest{X: []float64{1, 2}, Y: []float64{1, 2}, Options: ccm.Options{NumSamples: 1_000_000_000}}, errors.CodeInvalidInput},
		{"too many lib sizes", CCMRequest{X: []float64{1, 2}, Y: []float64{1, 2}, Options: ccm.Options{LibSizes: make([]int, MaxRequestLibSizes+1)}}, errors.CodeInvalidInput},
		{"unsorted lib sizes", CCMRequest{X: make([]float64, 50), Y: make([]float64, 50), Options: ccm.Options{LibSizes: []int{30, 10}}}, errors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, s, "/api/ccm", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w)["code"])
		})
	}
}

func TestRunCCM_Timeout(t *testing.T) {
	s := testServer(t, func(cfg *config.Config) {
		cfg.Analysis.RequestTimeout = time.Nanosecond
	})
	w := postJSON(t, s, "/api/ccm", coupledRequest(t))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, errors.CodeCanceled, decodeError(t, w)["code"])
}

func TestRunReport(t *testing.T) {
	s := testServer(t, nil)
	req := coupledRequest(t)
	req.XName = "prey"
	req.YName = "predator"

	w := postJSON(t, s, "/api/ccm/report?format=markdown", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/markdown"))
	assert.Contains(t, w.Body.String(), "# CCM report")
	assert.Contains(t, w.Body.String(), "## prey -> predator")
	assert.Contains(t, w.Body.String(), w.Header().Get(RunIDHeader))

	w = postJSON(t, s, "/api/ccm/report", req)
	require.Equal(t, http.StatusOK, w.Code)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	assert.Equal(t, w.Header().Get(RunIDHeader), decoded["run_id"])

	w = postJSON(t, s, "/api/ccm/report?format=pdf", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWriteError_Uncoded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	writeError(c, fmt.Errorf("disk full"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, errors.CodeInternalError, body["code"])
	assert.Equal(t, "internal error: disk full", body["error"])
}
