package message

import (
	"PRelay/logger"
	"PRelay/module/relation"
	"PRelay/service/registry"
	"PRelay/tools/errs"
	"PRelay/tools/ids"
	"PRelay/tools/safe"
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultMaxTextLen  = 4000
	DefaultSinkTimeout = 3 * time.Second
)

// PeerScoper 发送前的授权检查
type PeerScoper interface {
	PeersOf(ctx context.Context, userID string) (relation.PeerSet, error)
}

type Option func(*Relay)

func WithSink(s Sink) Option {
	return func(r *Relay) { r.sink = s }
}

func WithClock(now func() time.Time) Option {
	return func(r *Relay) { r.now = now }
}

func WithIDFunc(f func() string) Option {
	return func(r *Relay) { r.newID = f }
}

func WithMaxTextLen(n int) Option {
	return func(r *Relay) { r.maxTextLen = n }
}

func WithValidator(v ids.IdentifierValidator) Option {
	return func(r *Relay) { r.ids = v }
}

func WithSinkTimeout(d time.Duration) Option {
	return func(r *Relay) { r.sinkTimeout = d }
}

// Relay 一对一消息中继：校验、授权、扇出到接收方所有连接。
// 消息不落库；接收方离线时直接丢弃，只在 ack 里标记未送达。
type Relay struct {
	reg         *registry.Registry
	scoper      PeerScoper
	ids         ids.IdentifierValidator
	validate    *validator.Validate
	sink        Sink
	sinkTimeout time.Duration
	maxTextLen  int
	now         func() time.Time
	newID       func() string
}

func NewRelay(reg *registry.Registry, scoper PeerScoper, opts ...Option) *Relay {
	safe.MustNotNil(reg, "registry")
	safe.MustNotNil(scoper, "scoper")
	r := &Relay{
		reg:         reg,
		scoper:      scoper,
		ids:         ids.ObjectIDValidator{},
		validate:    validator.New(),
		sink:        NopSink{},
		sinkTimeout: DefaultSinkTimeout,
		maxTextLen:  DefaultMaxTextLen,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	if r.sink == nil {
		r.sink = NopSink{}
	}
	return r
}

func (r *Relay) check(sender string, req *SendRequest) error {
	if req.ReceiverID == "" || !r.ids.IsValidIdentifier(req.ReceiverID) {
		return errs.ErrInvalidMessageData.WithDetail("bad receiverId")
	}
	if req.ReceiverID == sender {
		return errs.ErrInvalidMessageData.WithDetail("cannot message yourself")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" && req.SharedContent == nil {
		return errs.ErrInvalidMessageData.WithDetail("empty message")
	}
	if utf8.RuneCountInString(req.Text) > r.maxTextLen {
		return errs.ErrInvalidMessageData.WithDetail("text too long")
	}
	if req.SharedContent != nil {
		if err := r.validate.Struct(req.SharedContent); err != nil {
			return errs.ErrInvalidMessageData.WithDetail(err.Error())
		}
	}
	return nil
}

// Send 处理 send_message。from 为发送方连接，sender 身份取自连接本身
func (r *Relay) Send(ctx context.Context, from registry.Conn, req SendRequest) Ack {
	sender := from.UserID()
	if err := r.check(sender, &req); err != nil {
		logger.Debug("[Relay] rejected", zap.String("sender", sender), zap.Error(err))
		return FailAck(err, errs.ErrInvalidMessageData.Msg)
	}

	peers, err := r.scoper.PeersOf(ctx, sender)
	if err != nil {
		logger.Warn("[Relay] scope lookup failed", zap.String("sender", sender), zap.Error(err))
		return FailAck(err, "Failed to send message")
	}
	if !peers.Has(req.ReceiverID) {
		return FailAck(errs.ErrNotAuthorized, errs.ErrNotAuthorized.Msg)
	}

	targets := r.reg.ConnectionsFor(req.ReceiverID)
	msg := &RelayMessage{
		ID:            r.newID(),
		SenderID:      sender,
		ReceiverID:    req.ReceiverID,
		Text:          req.Text,
		SharedContent: req.SharedContent,
		IsDelivered:   len(targets) > 0,
		CreatedAt:     r.now().UTC(),
	}

	if msg.IsDelivered {
		r.fanout(targets, EventNewMessage, msg)
		// 回显到发起连接，客户端据此落到本地会话
		if err := from.Emit(EventNewMessage, msg); err != nil {
			logger.Debug("[Relay] echo failed", zap.String("conn", from.ID()), zap.Error(err))
		}
	}

	r.publish(Event{ID: msg.ID, Type: SinkMessageSent, Key: msg.ReceiverID, At: msg.CreatedAt, Data: msg})
	return MessageAck(msg)
}

// Typing 转发输入状态；接收方离线或目标非法时静默丢弃
func (r *Relay) Typing(from registry.Conn, req TypingRequest) bool {
	sender := from.UserID()
	if req.ReceiverID == "" || req.ReceiverID == sender || !r.ids.IsValidIdentifier(req.ReceiverID) {
		return false
	}
	targets := r.reg.ConnectionsFor(req.ReceiverID)
	if len(targets) == 0 {
		return false
	}
	r.fanout(targets, EventUserTyping, TypingSignal{
		UserID:         sender,
		ConversationID: req.ConversationID,
		Timestamp:      r.now().UnixMilli(),
	})
	return true
}

// Read 通知原发送方消息已读。返回是否有连接收到
func (r *Relay) Read(from registry.Conn, req ReadRequest) (bool, error) {
	if strings.TrimSpace(req.MessageID) == "" || req.SenderID == "" {
		return false, errs.ErrInvalidMessageData.WithDetail("messageId and senderId required")
	}
	receipt := ReadReceipt{
		MessageID: req.MessageID,
		ReaderID:  from.UserID(),
		Timestamp: r.now().UnixMilli(),
	}
	targets := r.reg.ConnectionsFor(req.SenderID)
	r.fanout(targets, EventMessageRead, receipt)
	r.publish(Event{ID: r.newID(), Type: SinkMessageRead, Key: req.SenderID, At: r.now().UTC(), Data: receipt})
	return len(targets) > 0, nil
}

func (r *Relay) fanout(targets []registry.Conn, event string, payload any) {
	for _, c := range targets {
		if err := c.Emit(event, payload); err != nil {
			logger.Debug("[Relay] emit failed", zap.String("event", event), zap.String("conn", c.ID()), zap.Error(err))
		}
	}
}

func (r *Relay) publish(ev Event) {
	if _, nop := r.sink.(NopSink); nop {
		return
	}
	safe.Go("relay.sink", func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.sinkTimeout)
		defer cancel()
		if err := r.sink.Publish(ctx, ev); err != nil {
			logger.Warn("[Relay] sink publish failed", zap.String("type", ev.Type), zap.String("id", ev.ID), zap.Error(err))
		}
	})
}
