// Package stream publishes ride lifecycle events to kafka for downstream
// consumers (analytics, audit). Publishing is best effort; a broker outage
// never fails the ride operation that produced the event.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/aubus-project/aubus/internal/coordinator"
)

type KafkaSink struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafkaSink(brokers []string, topic string, logger *slog.Logger) *KafkaSink {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &KafkaSink{writer: w, logger: logger}
}

func (k *KafkaSink) Publish(ev coordinator.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, _ := json.Marshal(ev)
	key := []byte(strconv.FormatUint(uint64(ev.RideID), 10))
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: b}); err != nil {
		k.logger.Warn("kafka publish failed", "type", ev.Type, "ride_id", ev.RideID, "error", err)
	}
}

func (k *KafkaSink) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
