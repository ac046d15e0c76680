// Package kafka publishes completed simulation results to a Kafka topic for
// downstream consumers (dashboards, archival).
package kafka

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/rzzdr/credit-risk-engine/pkg/models"
	"github.com/rzzdr/credit-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/credit-risk-engine/pkg/utils/logger"
)

// ProducerConfig contains the connection settings for the result producer
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	MaxRetries   int
}

// Producer publishes simulation results keyed by scenario name
type Producer struct {
	writer *kafkago.Writer
	log    *logger.Logger
}

// NewProducer creates a Kafka producer for the configured results topic
func NewProducer(config ProducerConfig) (*Producer, error) {
	if len(config.Brokers) == 0 {
		return nil, errors.InvalidInput("kafka producer requires at least one broker")
	}
	if config.Topic == "" {
		return nil, errors.InvalidInput("kafka producer requires a topic")
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = 10 * time.Millisecond
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}

	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: config.BatchTimeout,
		MaxAttempts:  config.MaxRetries,
		RequiredAcks: kafkago.RequireAll,
	}

	return &Producer{
		writer: writer,
		log:    logger.GetLogger("kafka.producer"),
	}, nil
}

// PublishResult serializes a simulation result and writes it to the topic.
// The loss vector is stripped before publishing; subscribers get summaries.
func (p *Producer) PublishResult(ctx context.Context, result *models.SimulationResult) error {
	if result == nil {
		return errors.InvalidInput("cannot publish nil simulation result")
	}

	summary := *result
	summary.Losses = nil

	payload, err := json.Marshal(&summary)
	if err != nil {
		return errors.Wrap(err, "failed to marshal simulation result")
	}

	msg := kafkago.Message{
		Key:   []byte(result.ScenarioName),
		Value: payload,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "failed to publish result for scenario %q", result.ScenarioName)
	}

	p.log.Debugf("Published result for scenario %q", result.ScenarioName)
	return nil
}

// Close flushes and closes the underlying writer
func (p *Producer) Close() error {
	return p.writer.Close()
}
