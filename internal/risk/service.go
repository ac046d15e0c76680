package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/rzzdr/credit-risk-engine/internal/pdmodel"
	"github.com/rzzdr/credit-risk-engine/internal/portfolio"
	"github.com/rzzdr/credit-risk-engine/pkg/metrics"
	"github.com/rzzdr/credit-risk-engine/pkg/models"
	"github.com/rzzdr/credit-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/credit-risk-engine/pkg/utils/logger"
)

// ServiceConfig contains defaults for the simulation pipeline. Zero is a
// valid asset correlation, so only a negative AssetCorrelation selects the
// 0.2 default.
type ServiceConfig struct {
	PortfolioSize    int
	Iterations       int
	AssetCorrelation float64
	StressFactors    []float64
	Workers          int
}

// PortfolioStore defines the portfolio storage the service depends on
type PortfolioStore interface {
	GetPortfolio(id string) (*models.LoanPortfolio, error)
	GetAllPortfolios() ([]*models.LoanPortfolio, error)
	SavePortfolio(portfolio *models.LoanPortfolio) error
}

// ResultSink receives completed simulation results for storage
type ResultSink interface {
	SaveResult(result *models.SimulationResult) error
}

// ResultPublisher pushes completed results to an external transport
type ResultPublisher interface {
	PublishResult(ctx context.Context, result *models.SimulationResult) error
}

// ResultBroadcaster fans completed results out to connected subscribers
type ResultBroadcaster interface {
	BroadcastResult(result *models.SimulationResult)
}

// Service ties the generator, trainer and engine together behind the
// pipeline operations the callers consume.
type Service struct {
	config      ServiceConfig
	generator   *portfolio.Generator
	trainer     *pdmodel.Trainer
	engine      *Engine
	store       PortfolioStore
	results     ResultSink
	publisher   ResultPublisher
	broadcaster ResultBroadcaster
	recorder    *metrics.Recorder
	log         *logger.Logger
}

// NewService creates the pipeline service. Publisher and broadcaster are
// optional; a nil recorder disables instrumentation.
func NewService(
	config ServiceConfig,
	generator *portfolio.Generator,
	trainer *pdmodel.Trainer,
	engine *Engine,
	store PortfolioStore,
	results ResultSink,
	recorder *metrics.Recorder,
) *Service {
	if config.PortfolioSize <= 0 {
		config.PortfolioSize = 1000
	}
	if config.Iterations <= 0 {
		config.Iterations = 10000
	}
	if config.AssetCorrelation < 0 {
		config.AssetCorrelation = 0.2
	}
	if len(config.StressFactors) == 0 {
		config.StressFactors = []float64{1.0, 2.5}
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}

	return &Service{
		config:    config,
		generator: generator,
		trainer:   trainer,
		engine:    engine,
		store:     store,
		results:   results,
		recorder:  recorder,
		log:       logger.GetLogger("risk.service"),
	}
}

// SetPublisher attaches an external result transport
func (s *Service) SetPublisher(publisher ResultPublisher) {
	s.publisher = publisher
}

// SetBroadcaster attaches a subscriber fan-out
func (s *Service) SetBroadcaster(broadcaster ResultBroadcaster) {
	s.broadcaster = broadcaster
}

// GeneratePortfolio generates and stores a synthetic portfolio. A zero
// count selects the configured default size; negative counts are rejected
// by the generator.
func (s *Service) GeneratePortfolio(count int) (*models.LoanPortfolio, error) {
	if count == 0 {
		count = s.config.PortfolioSize
	}

	p, err := s.generator.Generate(count)
	if err != nil {
		return nil, err
	}

	if err := s.store.SavePortfolio(p); err != nil {
		return nil, errors.Wrap(err, "failed to store generated portfolio")
	}

	if s.recorder != nil {
		s.recorder.RecordPortfolioGenerated(p.ID, len(p.Loans))
	}

	return p, nil
}

// GetPortfolio retrieves a stored portfolio by ID
func (s *Service) GetPortfolio(id string) (*models.LoanPortfolio, error) {
	return s.store.GetPortfolio(id)
}

// ListPortfolios returns all stored portfolios
func (s *Service) ListPortfolios() ([]*models.LoanPortfolio, error) {
	return s.store.GetAllPortfolios()
}

// TrainPortfolio fits the PD model over a stored portfolio
func (s *Service) TrainPortfolio(id string) (pdmodel.Coefficients, error) {
	p, err := s.store.GetPortfolio(id)
	if err != nil {
		return pdmodel.Coefficients{}, err
	}

	start := time.Now()
	coeffs, err := s.trainer.Train(p)
	if err != nil {
		return pdmodel.Coefficients{}, err
	}

	if s.recorder != nil {
		s.recorder.RecordTraining(time.Since(start))
	}

	return coeffs, nil
}

// RunSimulation executes one Monte Carlo run over a stored, trained
// portfolio and forwards the result to the sink, publisher and broadcaster
func (s *Service) RunSimulation(ctx context.Context, portfolioID string, params SimulationParams) (*models.SimulationResult, error) {
	p, err := s.store.GetPortfolio(portfolioID)
	if err != nil {
		return nil, err
	}
	if !p.Trained {
		return nil, errors.InvalidInput("portfolio has not been trained: " + portfolioID)
	}

	var result *models.SimulationResult
	if s.config.Workers > 1 {
		result, err = s.engine.SimulateParallel(ctx, p, params, s.config.Workers)
	} else {
		result, err = s.engine.Simulate(p, params)
	}
	if err != nil {
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.RecordSimulation(
			result.ScenarioName,
			result.MeanExpectedLoss,
			result.ValueAtRisk99,
			result.ExpectedShortfall,
			time.Duration(result.ProcessingTimeMs*float64(time.Millisecond)),
		)
	}

	if s.results != nil {
		if err := s.results.SaveResult(result); err != nil {
			s.log.Warnf("Failed to store result for scenario %q: %v", result.ScenarioName, err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishResult(ctx, result); err != nil {
			s.log.Warnf("Failed to publish result for scenario %q: %v", result.ScenarioName, err)
		}
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastResult(result)
	}

	return result, nil
}

// RunScenarioSet runs the configured stress ladder against a portfolio and
// returns the results in ladder order
func (s *Service) RunScenarioSet(ctx context.Context, portfolioID string) ([]*models.SimulationResult, error) {
	results := make([]*models.SimulationResult, 0, len(s.config.StressFactors))

	for _, stress := range s.config.StressFactors {
		params := SimulationParams{
			Iterations:       s.config.Iterations,
			AssetCorrelation: s.config.AssetCorrelation,
			StressFactor:     stress,
			ScenarioName:     ScenarioName(stress),
		}

		result, err := s.RunSimulation(ctx, portfolioID, params)
		if err != nil {
			return nil, errors.Wrapf(err, "scenario %q failed", params.ScenarioName)
		}
		results = append(results, result)
	}

	return results, nil
}

// ScenarioName derives the canonical scenario label for a stress factor
func ScenarioName(stressFactor float64) string {
	if stressFactor == 1.0 {
		return "baseline"
	}
	return fmt.Sprintf("stress-%.1fx", stressFactor)
}
