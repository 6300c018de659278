package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes audit entries to a Kafka topic so delivery outcomes
// can be inspected outside this process. Publish failures are logged and
// swallowed: the audit channel must never take the pipeline down with it.
type KafkaSink struct {
	writer *kafka.Writer
	logger *slog.Logger
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func NewKafkaSink(cfg KafkaConfig, logger *slog.Logger) *KafkaSink {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            5,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}

	return &KafkaSink{writer: w, logger: logger}
}

// record is the wire shape of one published audit entry.
type record struct {
	ID string `json:"id"`
	Entry
}

func (s *KafkaSink) Record(ctx context.Context, e Entry) {
	value, err := json.Marshal(record{ID: uuid.New().String(), Entry: e})
	if err != nil {
		s.logger.Error("failed to marshal audit entry", "error", err)
		return
	}

	key := []byte(e.OrderID)
	if len(key) == 0 {
		key = []byte(e.Event)
	}

	sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.writer.WriteMessages(sendCtx, kafka.Message{Key: key, Value: value}); err != nil {
		s.logger.Error("failed to publish audit entry", "error", err)
	}
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
