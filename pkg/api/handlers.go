package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rzzdr/credit-risk-engine/internal/risk"
	"github.com/rzzdr/credit-risk-engine/pkg/models"
	"github.com/rzzdr/credit-risk-engine/pkg/utils/errors"
)

// generateRequest is the body for portfolio generation
type generateRequest struct {
	Count int    `json:"count"`
	Name  string `json:"name"`
}

// simulateRequest is the body for a single Monte Carlo run
type simulateRequest struct {
	Iterations       int     `json:"iterations"`
	AssetCorrelation float64 `json:"asset_correlation"`
	StressFactor     float64 `json:"stress_factor"`
	ScenarioName     string  `json:"scenario_name"`
	IncludeLosses    bool    `json:"include_losses"`
}

// portfolioSummary is the list-view projection of a portfolio
type portfolioSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Loans        int       `json:"loans"`
	Trained      bool      `json:"trained"`
	ExpectedLoss float64   `json:"expected_loss"`
	Created      time.Time `json:"created"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleGeneratePortfolio(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	p, err := s.service.GeneratePortfolio(req.Count)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if req.Name != "" {
		p.Name = req.Name
	}

	c.JSON(http.StatusCreated, summarize(p))
}

func (s *Server) handleListPortfolios(c *gin.Context) {
	portfolios, err := s.service.ListPortfolios()
	if err != nil {
		s.respondError(c, err)
		return
	}

	summaries := make([]portfolioSummary, 0, len(portfolios))
	for _, p := range portfolios {
		summaries = append(summaries, summarize(p))
	}

	c.JSON(http.StatusOK, gin.H{"portfolios": summaries})
}

func (s *Server) handleGetPortfolio(c *gin.Context) {
	p, err := s.service.GetPortfolio(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	if c.Query("include_loans") == "true" {
		c.JSON(http.StatusOK, p)
		return
	}
	c.JSON(http.StatusOK, summarize(p))
}

func (s *Server) handleTrainPortfolio(c *gin.Context) {
	coeffs, err := s.service.TrainPortfolio(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"intercept": coeffs.Intercept,
		"beta":      coeffs.Beta,
	})
}

func (s *Server) handleSimulate(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	params := risk.SimulationParams{
		Iterations:       req.Iterations,
		AssetCorrelation: req.AssetCorrelation,
		StressFactor:     req.StressFactor,
		ScenarioName:     req.ScenarioName,
	}
	if params.ScenarioName == "" {
		params.ScenarioName = risk.ScenarioName(params.StressFactor)
	}

	result, err := s.service.RunSimulation(c.Request.Context(), c.Param("id"), params)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, projectResult(result, req.IncludeLosses))
}

func (s *Server) handleRunScenarioSet(c *gin.Context) {
	results, err := s.service.RunScenarioSet(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	projected := make([]*models.SimulationResult, 0, len(results))
	for _, r := range results {
		projected = append(projected, projectResult(r, false))
	}

	c.JSON(http.StatusOK, gin.H{"results": projected})
}

func (s *Server) handleListResults(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"scenarios": s.results.ListScenarios()})
}

func (s *Server) handleGetResult(c *gin.Context) {
	result, err := s.results.GetResult(c.Param("scenario"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, projectResult(result, c.Query("include_losses") == "true"))
}

// respondError maps the error taxonomy onto HTTP status codes
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch errors.TypeOf(err) {
	case errors.ErrorTypeInvalidInput, errors.ErrorTypeInvalidParameter, errors.ErrorTypeNumericDomain:
		status = http.StatusBadRequest
	case errors.ErrorTypeNotFound:
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.log.Errorf("Request failed: %v", err)
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

func summarize(p *models.LoanPortfolio) portfolioSummary {
	return portfolioSummary{
		ID:           p.ID,
		Name:         p.Name,
		Loans:        len(p.Loans),
		Trained:      p.Trained,
		ExpectedLoss: p.ExpectedLoss(),
		Created:      p.Created,
	}
}

// projectResult strips the loss vector unless the caller asked for it
func projectResult(result *models.SimulationResult, includeLosses bool) *models.SimulationResult {
	if includeLosses {
		return result
	}
	projected := *result
	projected.Losses = nil
	return &projected
}
