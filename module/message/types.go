package message

import (
	"time"
)

// 服务端推送的事件名
const (
	EventNewMessage  = "new_message"
	EventUserTyping  = "user_typing"
	EventMessageRead = "message_read"
	EventError       = "error"
)

// SharedContent 结构化分享（歌曲/专辑/歌手/歌单/资料卡）
type SharedContent struct {
	Kind  string `json:"kind" validate:"required,oneof=song album artist playlist profile"`
	RefID string `json:"refId" validate:"required,max=128"`
	Title string `json:"title,omitempty" validate:"max=256"`
	URL   string `json:"url,omitempty" validate:"omitempty,url,max=2048"`
}

// SendRequest send_message 负载
type SendRequest struct {
	ReceiverID    string         `json:"receiverId"`
	Text          string         `json:"text"`
	SharedContent *SharedContent `json:"sharedContent"`
}

// RelayMessage 在途消息；发出后即丢弃，不落库
type RelayMessage struct {
	ID            string         `json:"id"`
	SenderID      string         `json:"senderId"`
	ReceiverID    string         `json:"receiverId"`
	Text          string         `json:"text,omitempty"`
	SharedContent *SharedContent `json:"sharedContent,omitempty"`
	IsDelivered   bool           `json:"isDelivered"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// TypingRequest typing 负载
type TypingRequest struct {
	ConversationID string `json:"conversationId"`
	ReceiverID     string `json:"receiverId"`
}

// TypingSignal 推给接收方的 user_typing
type TypingSignal struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
	Timestamp      int64  `json:"timestamp"` // 毫秒
}

// ReadRequest read_message 负载；SenderID 是原消息的发送者
type ReadRequest struct {
	MessageID string `json:"messageId"`
	SenderID  string `json:"senderId"`
}

// ReadReceipt 推给原发送者的 message_read
type ReadReceipt struct {
	MessageID string `json:"messageId"`
	ReaderID  string `json:"readerId"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorEvent 无 ack 的操作失败时推送
type ErrorEvent struct {
	Message string `json:"message"`
}
