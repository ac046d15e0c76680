package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/credit-risk-engine/pkg/models"
	"github.com/rzzdr/credit-risk-engine/pkg/utils/errors"
)

func samplePortfolio(id string) *models.LoanPortfolio {
	return models.NewLoanPortfolio(id, "sample", []models.Loan{
		{ID: 0, ExposureAtDefault: 1000, LossGivenDefault: 0.6, BaseProbabilityOfDefault: 0.05},
	})
}

func sampleResult(scenario string) *models.SimulationResult {
	return &models.SimulationResult{
		ScenarioName:     scenario,
		StressFactor:     1.0,
		Iterations:       3,
		MeanExpectedLoss: 100,
		ValueAtRisk99:    150,
		Losses:           []float64{90, 100, 150},
		Timestamp:        time.Now(),
	}
}

func TestPortfolioStoreCRUD(t *testing.T) {
	s := NewInMemoryPortfolioStore()

	_, err := s.GetPortfolio("missing")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	p := samplePortfolio("p1")
	require.NoError(t, s.SavePortfolio(p))

	got, err := s.GetPortfolio("p1")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	all, err := s.GetAllPortfolios()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.DeletePortfolio("p1"))
	err = s.DeletePortfolio("p1")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestPortfolioStoreRejectsInvalid(t *testing.T) {
	s := NewInMemoryPortfolioStore()

	err := s.SavePortfolio(nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidInput))

	err = s.SavePortfolio(&models.LoanPortfolio{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidInput))
}

func TestResultStoreSaveAndGet(t *testing.T) {
	s := NewResultStore(nil)

	_, err := s.GetResult("baseline")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	result := sampleResult("baseline")
	require.NoError(t, s.SaveResult(result))

	got, err := s.GetResult("baseline")
	require.NoError(t, err)
	assert.Equal(t, result, got)
	assert.Equal(t, []string{"baseline"}, s.ListScenarios())
}

func TestResultStoreRejectsInvalid(t *testing.T) {
	s := NewResultStore(nil)

	err := s.SaveResult(nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidInput))

	err = s.SaveResult(&models.SimulationResult{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidInput))
}

func TestResultStoreCacheFallback(t *testing.T) {
	cache := NewMemoryCache()

	writer := NewResultStore(cache)
	require.NoError(t, writer.SaveResult(sampleResult("stress-2.5x")))

	// A second store sharing the cache sees the summary even though it
	// never ran the scenario itself.
	reader := NewResultStore(cache)
	got, err := reader.GetResult("stress-2.5x")
	require.NoError(t, err)

	assert.Equal(t, "stress-2.5x", got.ScenarioName)
	assert.Equal(t, 150.0, got.ValueAtRisk99)
	assert.Nil(t, got.Losses, "cached results carry summaries only")
}

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache()

	_, ok := cache.Get("k")
	assert.False(t, ok)

	require.NoError(t, cache.Set("k", "v"))
	v, ok := cache.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}
