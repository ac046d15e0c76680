// Package store holds the in-memory and cache-backed storage used by the
// API and CLI surfaces. Nothing here persists across process restarts.
package store

import (
	"sync"

	"github.com/rzzdr/credit-risk-engine/pkg/models"
	"github.com/rzzdr/credit-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/credit-risk-engine/pkg/utils/logger"
)

// PortfolioStore defines the portfolio storage interface
type PortfolioStore interface {
	GetPortfolio(id string) (*models.LoanPortfolio, error)
	GetAllPortfolios() ([]*models.LoanPortfolio, error)
	SavePortfolio(portfolio *models.LoanPortfolio) error
	DeletePortfolio(id string) error
}

// InMemoryPortfolioStore implements an in-memory portfolio storage
type InMemoryPortfolioStore struct {
	portfolios map[string]*models.LoanPortfolio
	mu         sync.RWMutex
	log        *logger.Logger
}

// NewInMemoryPortfolioStore creates a new in-memory portfolio store
func NewInMemoryPortfolioStore() *InMemoryPortfolioStore {
	return &InMemoryPortfolioStore{
		portfolios: make(map[string]*models.LoanPortfolio),
		log:        logger.GetLogger("store.portfolio"),
	}
}

// GetPortfolio retrieves a portfolio by ID
func (s *InMemoryPortfolioStore) GetPortfolio(id string) (*models.LoanPortfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	portfolio, exists := s.portfolios[id]
	if !exists {
		return nil, errors.NotFound("portfolio not found: " + id)
	}

	return portfolio, nil
}

// GetAllPortfolios returns all stored portfolios
func (s *InMemoryPortfolioStore) GetAllPortfolios() ([]*models.LoanPortfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	portfolios := make([]*models.LoanPortfolio, 0, len(s.portfolios))
	for _, p := range s.portfolios {
		portfolios = append(portfolios, p)
	}

	return portfolios, nil
}

// SavePortfolio saves or updates a portfolio
func (s *InMemoryPortfolioStore) SavePortfolio(portfolio *models.LoanPortfolio) error {
	if portfolio == nil {
		return errors.InvalidInput("cannot save nil portfolio")
	}

	if portfolio.ID == "" {
		return errors.InvalidInput("portfolio ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.portfolios[portfolio.ID] = portfolio
	return nil
}

// DeletePortfolio removes a portfolio by ID
func (s *InMemoryPortfolioStore) DeletePortfolio(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.portfolios[id]; !exists {
		return errors.NotFound("portfolio not found: " + id)
	}

	delete(s.portfolios, id)
	return nil
}
