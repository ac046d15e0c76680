package store

import (
	"encoding/json"
	"sync"

	"github.com/rzzdr/credit-risk-engine/pkg/models"
	"github.com/rzzdr/credit-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/credit-risk-engine/pkg/utils/logger"
)

// ResultCache abstracts the key/value cache behind the result store so the
// Redis client can be swapped for an in-process map in tests
type ResultCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// ResultStore keeps the most recent simulation result per scenario, backed
// by a cache for cross-process sharing
type ResultStore struct {
	cache   ResultCache
	results map[string]*models.SimulationResult
	mu      sync.RWMutex
	log     *logger.Logger
}

// NewResultStore creates a result store. A nil cache disables the cache
// layer and keeps results in memory only.
func NewResultStore(cache ResultCache) *ResultStore {
	return &ResultStore{
		cache:   cache,
		results: make(map[string]*models.SimulationResult),
		log:     logger.GetLogger("store.results"),
	}
}

// SaveResult records the result as the latest for its scenario
func (s *ResultStore) SaveResult(result *models.SimulationResult) error {
	if result == nil {
		return errors.InvalidInput("cannot save nil simulation result")
	}
	if result.ScenarioName == "" {
		return errors.InvalidInput("simulation result has no scenario name")
	}

	s.mu.Lock()
	s.results[result.ScenarioName] = result
	s.mu.Unlock()

	if s.cache == nil {
		return nil
	}

	// The loss vector can run to tens of thousands of entries; the cache
	// carries the summaries only.
	summary := *result
	summary.Losses = nil

	payload, err := json.Marshal(&summary)
	if err != nil {
		return errors.Wrap(err, "failed to marshal simulation result")
	}

	if err := s.cache.Set(cacheKey(result.ScenarioName), string(payload)); err != nil {
		// Cache writes are best effort; the in-memory copy stays authoritative.
		s.log.Warnf("Failed to cache result for scenario %q: %v", result.ScenarioName, err)
	}

	return nil
}

// GetResult returns the latest result for a scenario, falling back to the
// cache when this process has not run it
func (s *ResultStore) GetResult(scenarioName string) (*models.SimulationResult, error) {
	s.mu.RLock()
	result, exists := s.results[scenarioName]
	s.mu.RUnlock()

	if exists {
		return result, nil
	}

	if s.cache != nil {
		if payload, ok := s.cache.Get(cacheKey(scenarioName)); ok {
			var cached models.SimulationResult
			if err := json.Unmarshal([]byte(payload), &cached); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal cached simulation result")
			}
			return &cached, nil
		}
	}

	return nil, errors.NotFound("no result for scenario: " + scenarioName)
}

// ListScenarios returns the scenario names with stored results
func (s *ResultStore) ListScenarios() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.results))
	for name := range s.results {
		names = append(names, name)
	}
	return names
}

func cacheKey(scenarioName string) string {
	return "creditrisk:result:" + scenarioName
}
