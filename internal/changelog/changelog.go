// Package changelog mirrors inventory history entries to an external log.
package changelog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"beerzone-pos/internal/metrics"
	"beerzone-pos/internal/model"
)

// Sink receives every appended history entry.
type Sink interface {
	Publish(ctx context.Context, e model.HistoryEntry) error
	Close() error
}

// NopSink discards entries. Used when no brokers are configured.
type NopSink struct{}

func (NopSink) Publish(context.Context, model.HistoryEntry) error { return nil }
func (NopSink) Close() error                                      { return nil }

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes history entries to a Kafka topic keyed by product id,
// so entries for one product land in one partition.
type KafkaSink struct {
	writer  kafkaMessageWriter
	timeout time.Duration
	metrics *metrics.Registry
	logger  *zap.Logger
}

// NewKafkaSink creates an asynchronous Kafka writer for topic. Publish only
// enqueues; delivery failures are reported from the writer's completion
// callback. reg may be nil.
func NewKafkaSink(brokers []string, topic string, reg *metrics.Registry, logger *zap.Logger) *KafkaSink {
	var addrs []string
	for _, b := range brokers {
		b = strings.TrimSpace(b)
		if b != "" {
			addrs = append(addrs, b)
		}
	}
	k := newKafkaSinkWith(nil, reg, logger)
	k.timeout = 5 * time.Second
	k.writer = &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion:   k.complete,
	}
	return k
}

func newKafkaSinkWith(w kafkaMessageWriter, reg *metrics.Registry, logger *zap.Logger) *KafkaSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSink{writer: w, timeout: time.Second, metrics: reg, logger: logger.Named("changelog")}
}

// complete runs after each async batch.
func (k *KafkaSink) complete(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	if k.metrics != nil {
		k.metrics.ChangelogErrors.Add(float64(len(msgs)))
	}
	keys := make([]string, len(msgs))
	for i, m := range msgs {
		keys[i] = string(m.Key)
	}
	k.logger.Warn("changelog delivery failed",
		zap.Int("messages", len(msgs)),
		zap.Strings("product_ids", keys),
		zap.Error(err),
	)
}

// Publish writes e as JSON.
func (k *KafkaSink) Publish(ctx context.Context, e model.HistoryEntry) error {
	b, err := json.Marshal(&e)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.ProductID),
		Value: b,
		Time:  e.Timestamp,
	}); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

var (
	_ Sink = NopSink{}
	_ Sink = (*KafkaSink)(nil)
)
