// internal/pipeline/consumer.go
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/wattlens/wattlens/internal/config"
)

// kafkaZapLogger adapts a zap logger to kafka-go's Printf-style interface.
type kafkaZapLogger struct {
	log   *zap.SugaredLogger
	error bool
}

func (l kafkaZapLogger) Printf(msg string, args ...interface{}) {
	if l.error {
		l.log.Errorf(msg, args...)
	} else {
		l.log.Infof(msg, args...)
	}
}

// Consumer reads chunk payloads from a Kafka topic using the kafka-go library.
type Consumer struct {
	reader *kafka.Reader
	output chan<- []byte
	cfg    config.KafkaConfig
	logger *zap.Logger
}

// NewConsumer creates and configures a new Kafka consumer instance.
func NewConsumer(cfg config.KafkaConfig, output chan<- []byte, logger *zap.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" || cfg.GroupID == "" {
		logger.Error("Kafka configuration validation failed",
			zap.Strings("brokers", cfg.Brokers),
			zap.String("topic", cfg.Topic),
			zap.String("group_id", cfg.GroupID),
		)
		return nil, ErrInvalidKafkaConfig
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		Logger:      kafkaZapLogger{log: logger.Named("kafka-reader").WithOptions(zap.AddCallerSkip(1)).Sugar()},
		ErrorLogger: kafkaZapLogger{log: logger.Named("kafka-reader-error").WithOptions(zap.AddCallerSkip(1)).Sugar(), error: true},
	}
	r := kafka.NewReader(readerCfg)

	logger.Info("Kafka consumer created",
		zap.String("topic", cfg.Topic),
		zap.String("group_id", cfg.GroupID),
		zap.Strings("brokers", cfg.Brokers),
		zap.Duration("commit_interval", readerCfg.CommitInterval),
		zap.Duration("max_wait", readerCfg.MaxWait),
		zap.Int("min_bytes", readerCfg.MinBytes),
		zap.Int("max_bytes", readerCfg.MaxBytes),
	)

	return &Consumer{
		reader: r,
		output: output,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Run starts the consumer message reading loop.
// It blocks until the context is cancelled or an unrecoverable error occurs.
// Offsets are committed only after the payload has been handed downstream.
func (c *Consumer) Run(ctx context.Context) error {
	sugar := c.logger.Sugar()
	sugar.Info("Starting Kafka consumer loop...")

	defer func() {
		sugar.Info("Closing Kafka consumer reader...")
		if err := c.reader.Close(); err != nil {
			sugar.Errorw("Failed to close Kafka reader cleanly", zap.Error(err))
		} else {
			sugar.Info("Kafka consumer reader closed successfully.")
		}
		sugar.Info("Kafka consumer loop stopped.")
	}()

	for {
		// FetchMessage blocks until a message is available or context is cancelled/deadline exceeded.
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Debug("Context cancelled or deadline exceeded, stopping consumer fetch loop.", zap.Error(err))
				return context.Canceled
			}
			c.logger.Error("Error fetching message from Kafka", zap.Error(err))
			return fmt.Errorf("%w: %w", ErrKafkaFetchFailed, err)
		}

		select {
		case c.output <- m.Value:

		case <-ctx.Done():
			c.logger.Debug("Context cancelled while sending payload downstream.", zap.Error(ctx.Err()))
			return context.Canceled
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if errors.Is(err, context.Canceled) {
				return context.Canceled
			}
			c.logger.Warn("Failed to commit Kafka offset", zap.Error(err))
		}
	}
}
