package message

import (
	"context"
	"time"
)

// 下游事件类型
const (
	SinkMessageSent = "message.sent"
	SinkMessageRead = "message.read"
)

// Event 交给下游（持久化/审计）的中继事件
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Key  string    `json:"key"` // 分区键：接收方 userId
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}

// Sink 中继事件的下游出口；投递尽力而为，失败不影响 ack
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

type NopSink struct{}

func (NopSink) Publish(context.Context, Event) error { return nil }
