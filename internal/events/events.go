package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"sipelan-service/internal/config"
	"sipelan-service/internal/model"
)

const (
	ActionComplaintCreated  = "PENGADUAN_DIBUAT"
	ActionStatusChanged     = "STATUS_DIUBAH"
	ActionComplaintDisposed = "PENGADUAN_DIDISPOSISI"
	ActionResponseAdded     = "TANGGAPAN_DITAMBAHKAN"
)

// Publisher ships lifecycle events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event model.EventPayload) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Publish writes the event keyed by ticket code so events of one complaint stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, event model.EventPayload) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Code),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(event.Action)},
		},
	})
	if err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
