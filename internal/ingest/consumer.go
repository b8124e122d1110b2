package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/standupstack/pulse-engine/internal/config"
	"github.com/standupstack/pulse-engine/internal/models"
)

// messageReader is the slice of kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Processor runs one submission through the pipeline and its side effects.
type Processor interface {
	Process(ctx context.Context, sub models.Submission) (*models.ProcessingResult, error)
}

// Consumer pulls submission messages off Kafka and feeds them into the
// processor. Malformed or unprocessable messages are logged and committed;
// the intake never wedges a partition on one bad submission, and retry
// policy stays with the producer side.
type Consumer struct {
	reader    messageReader
	processor Processor
	logger    *slog.Logger
}

// NewConsumer constructs a consumer for the configured topic and group.
func NewConsumer(cfg config.IngestConfig, processor Processor, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.GroupID,
	})
	return &Consumer{reader: reader, processor: processor, logger: logger}
}

// Run consumes until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("commit failed", slog.Any("error", err))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	var sub models.Submission
	if err := json.Unmarshal(msg.Value, &sub); err != nil {
		c.logger.Warn("skipping malformed submission message",
			slog.Int64("offset", msg.Offset),
			slog.Any("error", err))
		return
	}

	if _, err := c.processor.Process(ctx, sub); err != nil {
		c.logger.Error("submission processing failed",
			slog.String("submission_id", sub.ID),
			slog.String("team_id", sub.TeamID),
			slog.Any("error", err))
	}
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
