package main

import (
	"context"
	"flag"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rzzdr/credit-risk-engine/config"
	"github.com/rzzdr/credit-risk-engine/internal/kafka"
	"github.com/rzzdr/credit-risk-engine/internal/pdmodel"
	"github.com/rzzdr/credit-risk-engine/internal/portfolio"
	"github.com/rzzdr/credit-risk-engine/internal/risk"
	"github.com/rzzdr/credit-risk-engine/internal/store"
	"github.com/rzzdr/credit-risk-engine/internal/websocket"
	"github.com/rzzdr/credit-risk-engine/pkg/api"
	"github.com/rzzdr/credit-risk-engine/pkg/metrics"
	"github.com/rzzdr/credit-risk-engine/pkg/utils/logger"
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger("api.main").Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.App.LogLevel, cfg.App.Environment)
	log := logger.GetLogger("api.main")
	log.Info("Starting Credit Risk Engine API")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.NewRecorder()
	}

	rng := newRNG(cfg.Portfolio.Seed)

	generator := portfolio.NewGenerator(portfolio.GeneratorConfig{}, rng)
	trainer := pdmodel.NewTrainer(pdmodel.TrainerConfig{
		LearningRate:     cfg.Training.LearningRate,
		Epochs:           cfg.Training.Epochs,
		InitialIntercept: cfg.Training.InitialIntercept,
		InitialBeta:      cfg.Training.InitialBeta,
	})
	engine := risk.NewEngine(rng)

	portfolioStore := store.NewInMemoryPortfolioStore()

	var cache store.ResultCache
	if cfg.Redis.Enabled {
		redisCache := store.NewRedisCache(cfg.Redis.Addr, cfg.Redis.TTL)
		defer redisCache.Close()
		cache = redisCache
	}
	resultStore := store.NewResultStore(cache)

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
		recorder,
	)

	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:    cfg.Kafka.Brokers,
			Topic:      cfg.Kafka.ResultsTopic,
			MaxRetries: cfg.Kafka.MaxRetries,
		})
		if err != nil {
			log.Fatalf("Failed to create Kafka producer: %v", err)
		}
		defer producer.Close()
		service.SetPublisher(producer)
	}

	hub := websocket.NewHub(resultStore)
	go hub.Run(ctx)
	service.SetBroadcaster(hub)

	server := api.NewServer(
		api.Config{
			Host:            cfg.API.Host,
			Port:            cfg.API.Port,
			ReadTimeout:     cfg.API.ReadTimeout,
			WriteTimeout:    cfg.API.WriteTimeout,
			MetricsEnabled:  cfg.Metrics.Enabled,
			EnvironmentMode: cfg.App.Environment,
		},
		service,
		resultStore,
		hub,
		recorder,
	)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Infof("Received signal %v, initiating shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Errorf("API server shutdown error: %v", err)
	}

	log.Info("Shutdown complete")
}

// newRNG builds the process random source; seed 0 means time-seeded
func newRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
