package natsx

import (
	"PRelay/module/message"
	"context"
	"encoding/json"
	"strings"
	"time"
)

// HeaderKey 事件分区键（接收方 userId），方便下游按用户做顺序处理
const HeaderKey = "Relay-Key"

// EventSink 把中继事件发布到 <prefix>.<event type>
type EventSink struct {
	pub    Publisher
	prefix string
}

// SubjectFor message.sent -> <prefix>.message.sent
func SubjectFor(prefix, eventType string) string {
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}

// NewEventSink 为每种中继事件注册路由，发布失败时重试
func NewEventSink(m *NatsManager, prefix string, mode NatsxMode, retries int) (*EventSink, error) {
	for _, t := range []string{message.SinkMessageSent, message.SinkMessageRead} {
		if err := m.RegisterRoute(NatsxRoute{Biz: t, Subject: SubjectFor(prefix, t), Mode: mode}); err != nil {
			return nil, err
		}
	}
	return newEventSink(&NatsxSyncPublisher{P: m, Retries: retries, Backoff: 200 * time.Millisecond}, prefix), nil
}

func newEventSink(pub Publisher, prefix string) *EventSink {
	return &EventSink{pub: pub, prefix: prefix}
}

func (s *EventSink) Publish(ctx context.Context, ev message.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.pub.PublishOnce(ctx, ev.Type, data, map[string]string{HeaderKey: ev.Key}, ev.ID)
}
