package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/credit-risk-engine/internal/pdmodel"
	"github.com/rzzdr/credit-risk-engine/internal/portfolio"
	"github.com/rzzdr/credit-risk-engine/internal/risk"
	"github.com/rzzdr/credit-risk-engine/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	rng := rand.New(rand.NewSource(42))
	results := store.NewResultStore(nil)

	service := risk.NewService(
		risk.ServiceConfig{
			PortfolioSize: 100,
			Iterations:    200,
			StressFactors: []float64{1.0, 2.5},
		},
		portfolio.NewGenerator(portfolio.GeneratorConfig{}, rng),
		pdmodel.NewTrainer(pdmodel.TrainerConfig{}),
		risk.NewEngine(rng),
		store.NewInMemoryPortfolioStore(),
		results,
		nil,
	)

	return NewServer(Config{Host: "127.0.0.1", Port: 0}, service, results, nil, nil)
}

func doJSON(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	w := doJSON(t, server, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPipelineOverHTTP(t *testing.T) {
	server := newTestServer(t)

	// Generate
	w := doJSON(t, server, http.MethodPost, "/api/v1/portfolios", map[string]interface{}{"count": 100})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID    string `json:"id"`
		Loans int    `json:"loans"`
	}
	decode(t, w, &created)
	assert.Equal(t, 100, created.Loans)
	require.NotEmpty(t, created.ID)

	// Train
	w = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/portfolios/%s/train", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var coeffs struct {
		Intercept float64 `json:"intercept"`
		Beta      float64 `json:"beta"`
	}
	decode(t, w, &coeffs)
	assert.Greater(t, coeffs.Beta, 0.0)

	// Simulate
	w = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/portfolios/%s/simulate", created.ID), map[string]interface{}{
		"iterations":        200,
		"asset_correlation": 0.2,
		"stress_factor":     1.0,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		ScenarioName  string    `json:"scenario_name"`
		Iterations    int       `json:"iterations"`
		ValueAtRisk99 float64   `json:"value_at_risk_99"`
		Losses        []float64 `json:"losses"`
	}
	decode(t, w, &result)
	assert.Equal(t, "baseline", result.ScenarioName)
	assert.Equal(t, 200, result.Iterations)
	assert.Greater(t, result.ValueAtRisk99, 0.0)
	assert.Nil(t, result.Losses, "losses stripped unless requested")

	// Stored result is retrievable
	w = doJSON(t, server, http.MethodGet, "/api/v1/results/baseline", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSimulateValidationOverHTTP(t *testing.T) {
	server := newTestServer(t)

	w := doJSON(t, server, http.MethodPost, "/api/v1/portfolios", map[string]interface{}{"count": 50})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	decode(t, w, &created)

	// Untrained portfolio
	w = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/portfolios/%s/simulate", created.ID), map[string]interface{}{
		"iterations":        100,
		"asset_correlation": 0.2,
		"stress_factor":     1.0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Out-of-range rho
	doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/portfolios/%s/train", created.ID), nil)
	w = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/portfolios/%s/simulate", created.ID), map[string]interface{}{
		"iterations":        100,
		"asset_correlation": 1.0,
		"stress_factor":     1.0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotFoundMapping(t *testing.T) {
	server := newTestServer(t)

	w := doJSON(t, server, http.MethodGet, "/api/v1/portfolios/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, server, http.MethodGet, "/api/v1/results/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, server, http.MethodPost, "/api/v1/portfolios/unknown/train", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateValidation(t *testing.T) {
	server := newTestServer(t)

	w := doJSON(t, server, http.MethodPost, "/api/v1/portfolios", map[string]interface{}{"count": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
