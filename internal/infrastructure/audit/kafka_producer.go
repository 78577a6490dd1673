// Package audit implements the EventPublisher interface using Kafka.
package audit

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/riskgraph/internal/config"
	"github.com/turtacn/riskgraph/internal/domain/models"
	"github.com/turtacn/riskgraph/internal/domain/service"
	"github.com/turtacn/riskgraph/pkg/logger"
)

// KafkaProducer is a Kafka-backed implementation of the EventPublisher.
type KafkaProducer struct {
	writer *kafka.Writer
	logger logger.Logger
}

// NewKafkaProducer creates a producer for the engine's event topic.
func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) (service.EventPublisher, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.EventTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
	}
	return &KafkaProducer{
		writer: writer,
		logger: log.WithComponent("KafkaProducer"),
	}, nil
}

// Publish sends one engine event to the topic, keyed by tenant so per-tenant
// ordering is preserved within a partition.
func (p *KafkaProducer) Publish(ctx context.Context, event *models.EngineEvent) error {
	bytes, err := json.Marshal(event)
	if err != nil {
		p.logger.Error(ctx, "failed to marshal engine event", err)
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TenantID),
		Value: bytes,
	})
	if err != nil {
		p.logger.Error(ctx, "failed to write event to Kafka", err,
			logger.String("event_type", string(event.Type)))
	}
	return err
}

// Close closes the underlying Kafka writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
