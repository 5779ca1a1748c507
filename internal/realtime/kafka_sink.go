package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"linkcamp/internal/common"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type sinkRecord struct {
	Event   string      `json:"event"`
	Key     string      `json:"key"`
	Rooms   []string    `json:"rooms"`
	Payload interface{} `json:"payload"`
	At      time.Time   `json:"at"`
}

// KafkaSink mirrors every dispatched event onto a topic for offline consumers.
type KafkaSink struct {
	writer  messageWriter
	timeout time.Duration
	log     *slog.Logger
}

func NewKafkaSink(brokers []string, topic string, log *slog.Logger) *KafkaSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaSink(w, log)
}

func newKafkaSink(w messageWriter, log *slog.Logger) *KafkaSink {
	return &KafkaSink{writer: w, timeout: 5 * time.Second, log: log}
}

func (k *KafkaSink) Name() string {
	return "kafka_sink"
}

func (k *KafkaSink) Update(event common.Event) error {
	value, err := json.Marshal(sinkRecord{
		Event:   event.Name,
		Key:     event.Key,
		Rooms:   event.Rooms,
		Payload: event.Payload,
		At:      event.At,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()

	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key),
		Value: value,
		Time:  event.At,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.Name)},
		},
	})
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
