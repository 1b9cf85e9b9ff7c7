// Package publish hands compiled reports to downstream consumers over Kafka.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-report-service/internal/models"
)

// KafkaConfig configures the report topic producer.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaPublisher produces one message per report, keyed by point and unit system
// so consecutive reports for a point land on the same partition.
type KafkaPublisher struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

// NewKafkaPublisher creates a producer for cfg.Topic.
func NewKafkaPublisher(cfg KafkaConfig, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &KafkaPublisher{writer: w, logger: logger}
}

// Publish writes report to the topic.
func (p *KafkaPublisher) Publish(ctx context.Context, report models.Report) error {
	msg, err := reportMessage(report)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write report message: %w", err)
	}
	p.logger.Debug("report published", zap.String("key", report.Key()))
	return nil
}

// Close flushes pending writes and closes the producer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func reportMessage(report models.Report) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "metric", Value: []byte(strconv.FormatBool(report.Metric))},
			{Key: "generated_at", Value: []byte(report.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
