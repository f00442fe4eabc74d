package kafka

import (
	"context"
	"encoding/json"

	"PRelay/module/message"

	"github.com/Shopify/sarama"
)

const (
	HeaderEventID   = "relay-event-id"
	HeaderEventType = "relay-event-type"
)

// EventSink 按接收方 userId 选 Topic，并以其为 Key，保证同一用户的事件有序
type EventSink struct {
	prod   sarama.SyncProducer
	topics []string
}

func NewEventSink(prod sarama.SyncProducer, topics []string) *EventSink {
	return &EventSink{prod: prod, topics: topics}
}

// Publish SyncProducer 不感知 ctx，已取消的事件直接放弃
func (s *EventSink) Publish(ctx context.Context, ev message.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: SelectTopicByUser(ev.Key, s.topics),
		Key:   sarama.StringEncoder(ev.Key),
		Value: sarama.ByteEncoder(val),
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderEventID), Value: []byte(ev.ID)},
			{Key: []byte(HeaderEventType), Value: []byte(ev.Type)},
		},
	}
	_, _, err = s.prod.SendMessage(msg)
	return err
}
