package pdmodel

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/credit-risk-engine/internal/portfolio"
	"github.com/rzzdr/credit-risk-engine/pkg/models"
	"github.com/rzzdr/credit-risk-engine/pkg/utils/errors"
)

func trainingPortfolio(t *testing.T, seed int64) *models.LoanPortfolio {
	t.Helper()
	g := portfolio.NewGenerator(portfolio.GeneratorConfig{}, rand.New(rand.NewSource(seed)))
	p, err := g.Generate(1000)
	require.NoError(t, err)
	return p
}

func TestTrainEmptyPortfolio(t *testing.T) {
	trainer := NewTrainer(TrainerConfig{})

	_, err := trainer.Train(nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidInput))

	_, err = trainer.Train(&models.LoanPortfolio{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidInput))
}

func TestTrainAssignsOpenIntervalPDs(t *testing.T) {
	p := trainingPortfolio(t, 42)
	trainer := NewTrainer(TrainerConfig{})

	_, err := trainer.Train(p)
	require.NoError(t, err)
	assert.True(t, p.Trained)

	for _, loan := range p.Loans {
		assert.Greater(t, loan.BaseProbabilityOfDefault, 0.0, "loan %d", loan.ID)
		assert.Less(t, loan.BaseProbabilityOfDefault, 1.0, "loan %d", loan.ID)
	}
}

func TestTrainRecoversPositiveSlope(t *testing.T) {
	p := trainingPortfolio(t, 7)
	trainer := NewTrainer(TrainerConfig{})

	coeffs, err := trainer.Train(p)
	require.NoError(t, err)

	// The generator ties defaults monotonically to late payments, so the
	// fitted slope has to come out positive and the PDs monotone in the
	// covariate.
	assert.Greater(t, coeffs.Beta, 0.0)

	pdByLate := make(map[int]float64)
	for _, loan := range p.Loans {
		pdByLate[loan.PriorLatePayments] = loan.BaseProbabilityOfDefault
	}

	prev := 0.0
	for late := 0; late <= 5; late++ {
		pd, seen := pdByLate[late]
		if !seen {
			continue
		}
		assert.Greater(t, pd, prev, "late=%d", late)
		prev = pd
	}
}

func TestTrainDeterministic(t *testing.T) {
	p1 := trainingPortfolio(t, 99)
	p2 := trainingPortfolio(t, 99)
	trainer := NewTrainer(TrainerConfig{})

	c1, err := trainer.Train(p1)
	require.NoError(t, err)
	c2, err := trainer.Train(p2)
	require.NoError(t, err)

	assert.Equal(t, c1, c2)
	assert.Equal(t, p1.Loans, p2.Loans)
}

func TestTrainerConfigDefaults(t *testing.T) {
	trainer := NewTrainer(TrainerConfig{})

	assert.Equal(t, 0.01, trainer.config.LearningRate)
	assert.Equal(t, 500, trainer.config.Epochs)
	assert.Equal(t, -1.0, trainer.config.InitialIntercept)
	assert.Equal(t, 0.5, trainer.config.InitialBeta)
}

func TestTrainLeavesOtherFieldsUntouched(t *testing.T) {
	p := trainingPortfolio(t, 13)

	type snapshot struct {
		id   int
		ead  float64
		lgd  float64
		late int
		def  bool
	}
	before := make([]snapshot, len(p.Loans))
	for i, loan := range p.Loans {
		before[i] = snapshot{loan.ID, loan.ExposureAtDefault, loan.LossGivenDefault, loan.PriorLatePayments, loan.ObservedDefault}
	}

	_, err := NewTrainer(TrainerConfig{}).Train(p)
	require.NoError(t, err)

	for i, loan := range p.Loans {
		assert.Equal(t, before[i], snapshot{loan.ID, loan.ExposureAtDefault, loan.LossGivenDefault, loan.PriorLatePayments, loan.ObservedDefault})
	}
}
