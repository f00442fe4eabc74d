package chat

import (
	"PRelay/module/message"
	"context"
	"encoding/json"
)

// Handler 处理一种上行事件。返回 nil 表示该事件没有应答
type Handler interface {
	Event() string
	Handle(ctx context.Context, cc *ChatContext, c *WsConn, data json.RawMessage) *message.Ack
}

type ChatContext struct {
	S *Server
}
