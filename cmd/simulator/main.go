// The simulator command runs the full pipeline from the terminal: generate a
// synthetic portfolio, fit the PD model, then run the configured stress
// ladder and print the summaries.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rzzdr/credit-risk-engine/config"
	"github.com/rzzdr/credit-risk-engine/internal/kafka"
	"github.com/rzzdr/credit-risk-engine/internal/pdmodel"
	"github.com/rzzdr/credit-risk-engine/internal/portfolio"
	"github.com/rzzdr/credit-risk-engine/internal/risk"
	"github.com/rzzdr/credit-risk-engine/internal/store"
	"github.com/rzzdr/credit-risk-engine/pkg/utils/logger"
)

const version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "simulator",
		Short: "Vasicek credit portfolio loss simulator",
		Long: `Simulator estimates credit-portfolio loss distributions under the Vasicek
single risk factor model: it generates a synthetic loan portfolio, fits a
logistic-regression PD model over it, and runs Monte Carlo stress scenarios.`,
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newRunCmd() *cobra.Command {
	var (
		loans      int
		iterations int
		rho        float64
		seed       int64
		publish    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate, train and simulate the configured stress ladder",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			logger.Init(cfg.App.LogLevel, cfg.App.Environment)

			if loans > 0 {
				cfg.Portfolio.Size = loans
			}
			if iterations > 0 {
				cfg.Simulation.Iterations = iterations
			}
			if cmd.Flags().Changed("rho") {
				cfg.Simulation.AssetCorrelation = rho
			}
			if seed != 0 {
				cfg.Portfolio.Seed = seed
			}

			return runPipeline(cmd.Context(), cfg, publish)
		},
	}

	cmd.Flags().IntVar(&loans, "loans", 0, "Portfolio size (overrides config)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "Monte Carlo iterations (overrides config)")
	cmd.Flags().Float64Var(&rho, "rho", 0.2, "Asset correlation in [0,1)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 uses wall clock)")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish results to Kafka")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("credit-risk-engine simulator v%s\n", version)
		},
	}
}

func runPipeline(ctx context.Context, cfg *config.Config, publish bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.GetLogger("simulator.main")

	seed := cfg.Portfolio.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	log.Infof("Using random seed %d", seed)

	generator := portfolio.NewGenerator(portfolio.GeneratorConfig{}, rng)
	trainer := pdmodel.NewTrainer(pdmodel.TrainerConfig{
		LearningRate:     cfg.Training.LearningRate,
		Epochs:           cfg.Training.Epochs,
		InitialIntercept: cfg.Training.InitialIntercept,
		InitialBeta:      cfg.Training.InitialBeta,
	})
	engine := risk.NewEngine(rng)

	portfolioStore := store.NewInMemoryPortfolioStore()
	resultStore := store.NewResultStore(nil)

	service := risk.NewService(
		risk.ServiceConfig{
			PortfolioSize:    cfg.Portfolio.Size,
			Iterations:       cfg.Simulation.Iterations,
			AssetCorrelation: cfg.Simulation.AssetCorrelation,
			StressFactors:    cfg.Simulation.StressFactors,
			Workers:          cfg.Simulation.Workers,
		},
		generator,
		trainer,
		engine,
		portfolioStore,
		resultStore,
		nil,
	)

	if publish {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:    cfg.Kafka.Brokers,
			Topic:      cfg.Kafka.ResultsTopic,
			MaxRetries: cfg.Kafka.MaxRetries,
		})
		if err != nil {
			return fmt.Errorf("failed to create Kafka producer: %w", err)
		}
		defer producer.Close()
		service.SetPublisher(producer)
	}

	p, err := service.GeneratePortfolio(cfg.Portfolio.Size)
	if err != nil {
		return err
	}

	coeffs, err := service.TrainPortfolio(p.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Fitted PD model: intercept=%.4f beta=%.4f\n", coeffs.Intercept, coeffs.Beta)
	fmt.Printf("Portfolio expected loss: %.2f\n\n", p.ExpectedLoss())

	results, err := service.RunScenarioSet(ctx, p.ID)
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Printf("Scenario %-14s stress=%.1f  mean=%12.2f  VaR99=%12.2f  ES97.5=%12.2f  (%.1fms)\n",
			r.ScenarioName, r.StressFactor, r.MeanExpectedLoss, r.ValueAtRisk99,
			r.ExpectedShortfall, r.ProcessingTimeMs)
	}

	return nil
}
