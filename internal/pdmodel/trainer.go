// Package pdmodel fits the base probability of default for each loan with a
// univariate logistic regression on the prior-late-payments covariate.
package pdmodel

import (
	"math"
	"time"

	"github.com/rzzdr/credit-risk-engine/pkg/models"
	"github.com/rzzdr/credit-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/credit-risk-engine/pkg/utils/logger"
)

// TrainerConfig contains the gradient descent hyperparameters. The defaults
// are the reference values; the epoch count is the sole stopping criterion,
// which keeps training deterministic for a given portfolio.
type TrainerConfig struct {
	LearningRate     float64
	Epochs           int
	InitialIntercept float64
	InitialBeta      float64
}

// Coefficients holds a fitted logistic model
type Coefficients struct {
	Intercept float64
	Beta      float64
}

// Trainer fits PD models by full-batch gradient descent
type Trainer struct {
	config TrainerConfig
	log    *logger.Logger
}

// NewTrainer creates a new PD model trainer
func NewTrainer(config TrainerConfig) *Trainer {
	if config.LearningRate <= 0 {
		config.LearningRate = 0.01
	}
	if config.Epochs <= 0 {
		config.Epochs = 500
	}
	if config.InitialIntercept == 0 {
		config.InitialIntercept = -1.0
	}
	if config.InitialBeta == 0 {
		config.InitialBeta = 0.5
	}

	return &Trainer{
		config: config,
		log:    logger.GetLogger("pdmodel.trainer"),
	}
}

// Train fits the logistic regression over the whole portfolio and writes the
// resulting PD into every loan. The sigmoid never reaches exactly 0 or 1 for
// finite inputs, so every fitted PD lies strictly inside (0, 1), which the
// Vasicek probit transform depends on.
func (t *Trainer) Train(p *models.LoanPortfolio) (Coefficients, error) {
	if p == nil || len(p.Loans) == 0 {
		return Coefficients{}, errors.InvalidInput("cannot train PD model on empty portfolio")
	}

	start := time.Now()
	n := float64(len(p.Loans))

	intercept := t.config.InitialIntercept
	beta := t.config.InitialBeta

	for epoch := 0; epoch < t.config.Epochs; epoch++ {
		var gradIntercept, gradBeta float64

		for i := range p.Loans {
			loan := &p.Loans[i]
			x := float64(loan.PriorLatePayments)

			var y float64
			if loan.ObservedDefault {
				y = 1
			}

			pred := sigmoid(intercept + beta*x)
			gradIntercept += pred - y
			gradBeta += (pred - y) * x
		}

		intercept -= t.config.LearningRate * gradIntercept / n
		beta -= t.config.LearningRate * gradBeta / n
	}

	for i := range p.Loans {
		loan := &p.Loans[i]
		loan.BaseProbabilityOfDefault = sigmoid(intercept + beta*float64(loan.PriorLatePayments))
	}
	p.Trained = true
	p.Updated = time.Now()

	coeffs := Coefficients{Intercept: intercept, Beta: beta}
	t.log.Infof("Trained PD model on %d loans in %v: intercept=%.4f beta=%.4f",
		len(p.Loans), time.Since(start), coeffs.Intercept, coeffs.Beta)

	return coeffs, nil
}

// sigmoid is the logistic function
func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
