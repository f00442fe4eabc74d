package handlers

import (
	"PRelay/logger"
	"PRelay/module/message"
	"PRelay/service/chat"
	"PRelay/tools/decode"
	"PRelay/tools/errs"
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

const (
	EventSendMessage = "send_message"
	EventTyping      = "typing"
	EventReadMessage = "read_message"
)

// 事件负载允许多余字段，但类型必须吻合
var payloadOpts = decode.Options{}

// SendHandler send_message -> {status, message}
type SendHandler struct{}

func NewSendHandler() chat.Handler { return SendHandler{} }

func (SendHandler) Event() string { return EventSendMessage }

func (SendHandler) Handle(ctx context.Context, cc *chat.ChatContext, c *chat.WsConn, data json.RawMessage) *message.Ack {
	req, err := decode.JSON[message.SendRequest](data, payloadOpts)
	if err != nil {
		ack := message.FailAck(errs.ErrInvalidMessageData.WithDetail(err.Error()), errs.ErrInvalidMessageData.Msg)
		return &ack
	}
	ack := cc.S.Relay().Send(ctx, c, *req)
	if !ack.OK() {
		logger.Debug("[WS] send_message rejected", zap.String("user", c.UserID()), zap.String("code", ack.Code))
	}
	return &ack
}

// TypingHandler typing，无应答；目标离线直接丢弃
type TypingHandler struct{}

func NewTypingHandler() chat.Handler { return TypingHandler{} }

func (TypingHandler) Event() string { return EventTyping }

func (TypingHandler) Handle(_ context.Context, cc *chat.ChatContext, c *chat.WsConn, data json.RawMessage) *message.Ack {
	req, err := decode.JSON[message.TypingRequest](data, payloadOpts)
	if err != nil {
		return nil
	}
	cc.S.Relay().Typing(c, *req)
	return nil
}

// ReadHandler read_message，无应答；失败时给请求方推 error 事件
type ReadHandler struct{}

func NewReadHandler() chat.Handler { return ReadHandler{} }

func (ReadHandler) Event() string { return EventReadMessage }

func (ReadHandler) Handle(_ context.Context, cc *chat.ChatContext, c *chat.WsConn, data json.RawMessage) *message.Ack {
	req, err := decode.JSON[message.ReadRequest](data, payloadOpts)
	if err == nil {
		_, err = cc.S.Relay().Read(c, *req)
	}
	if err != nil {
		logFail(EventReadMessage, c, err)
		_ = c.Emit(message.EventError, message.ErrorEvent{Message: "Failed to mark message as read"})
	}
	return nil
}

// RegisterAll 注册全部中继事件
func RegisterAll(d *chat.Dispatcher) {
	d.Register(
		NewFriendsHandler(),
		NewUsersToChatHandler(),
		NewOnlinePeersHandler(),
		NewSendHandler(),
		NewTypingHandler(),
		NewReadHandler(),
	)
}

func logFail(event string, c *chat.WsConn, err error) {
	logger.Warn("[WS] op failed", zap.String("event", event), zap.String("conn", c.ID()), zap.String("user", c.UserID()), zap.Error(err))
}
