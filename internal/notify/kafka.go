package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/standupstack/pulse-engine/internal/models"
	"github.com/standupstack/pulse-engine/internal/utils"
)

// messageWriter is the slice of kafka.Writer this dispatcher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher publishes alerts to a Kafka topic, keyed by team so one
// team's alerts stay ordered within a partition.
type KafkaDispatcher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewKafkaDispatcher constructs a dispatcher over the given brokers and
// topic.
func NewKafkaDispatcher(brokers []string, topic string, logger *slog.Logger) *KafkaDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaDispatcher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: logger,
	}
}

// Dispatch publishes all alerts in one batch write.
func (d *KafkaDispatcher) Dispatch(ctx context.Context, alerts []models.WarningAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(alerts))
	for _, alert := range alerts {
		value, err := json.Marshal(alert)
		if err != nil {
			return utils.NewAppError("notify.kafka", "encode alert", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(alert.TeamID),
			Value: value,
		})
	}

	if err := d.writer.WriteMessages(ctx, msgs...); err != nil {
		return utils.NewAppError("notify.kafka", "publish alerts", err)
	}
	d.logger.Debug("alerts published", slog.Int("count", len(msgs)))
	return nil
}

// Close closes the underlying writer.
func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}
