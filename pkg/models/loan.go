package models

import (
	"time"
)

// Loan represents a single synthetic loan. All fields except
// BaseProbabilityOfDefault are fixed at generation time; the PD field is
// written exactly once by the trainer and read-only afterwards.
type Loan struct {
	ID                       int     `json:"id"`
	ExposureAtDefault        float64 `json:"exposure_at_default"`
	LossGivenDefault         float64 `json:"loss_given_default"`
	PriorLatePayments        int     `json:"prior_late_payments"`
	BaseProbabilityOfDefault float64 `json:"base_probability_of_default"`
	ObservedDefault          bool    `json:"observed_default"`
}

// LoanPortfolio represents an ordered collection of loans
type LoanPortfolio struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Loans   []Loan    `json:"loans"`
	Trained bool      `json:"trained"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// Size returns the number of loans in the portfolio
func (p *LoanPortfolio) Size() int {
	if p == nil {
		return 0
	}
	return len(p.Loans)
}

// ExpectedLoss returns the unconditional expected loss of the portfolio,
// the sum of EAD * LGD * PD over all loans
func (p *LoanPortfolio) ExpectedLoss() float64 {
	var total float64
	for i := range p.Loans {
		loan := &p.Loans[i]
		total += loan.ExposureAtDefault * loan.LossGivenDefault * loan.BaseProbabilityOfDefault
	}
	return total
}

// SimulationResult holds the distributional summaries of one Monte Carlo run.
// Losses is sorted ascending and has length equal to the iteration count.
type SimulationResult struct {
	ScenarioName      string    `json:"scenario_name"`
	PortfolioID       string    `json:"portfolio_id"`
	StressFactor      float64   `json:"stress_factor"`
	AssetCorrelation  float64   `json:"asset_correlation"`
	Iterations        int       `json:"iterations"`
	MeanExpectedLoss  float64   `json:"mean_expected_loss"`
	ValueAtRisk99     float64   `json:"value_at_risk_99"`
	ExpectedShortfall float64   `json:"expected_shortfall"`
	Losses            []float64 `json:"losses,omitempty"`
	ProcessingTimeMs  float64   `json:"processing_time_ms"`
	Timestamp         time.Time `json:"timestamp"`
}

// NewLoanPortfolio creates an empty portfolio with the given identity
func NewLoanPortfolio(id, name string, loans []Loan) *LoanPortfolio {
	now := time.Now()
	return &LoanPortfolio{
		ID:      id,
		Name:    name,
		Loans:   loans,
		Created: now,
		Updated: now,
	}
}
