package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// EventAck 应答帧的事件名
const EventAck = "ack"

// InFrame 客户端上行帧 {"event", "data", "ackId"}
type InFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	AckID json.RawMessage `json:"ackId,omitempty"` // 原样回带
}

// WantsAck 客户端是否在等应答
func (f *InFrame) WantsAck() bool { return len(f.AckID) > 0 }

// OutFrame 服务端下行帧
type OutFrame struct {
	Event string          `json:"event"`
	Data  any             `json:"data"`
	AckID json.RawMessage `json:"ackId,omitempty"`
}

var null = []byte("null")

func ParseFrameJSON(raw []byte) (*InFrame, error) {
	f := &InFrame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("unmarshal frame failed: %w", err)
	}
	if f.Event == "" {
		return nil, errors.New("frame has no event")
	}
	if bytes.Equal(bytes.TrimSpace(f.AckID), null) {
		f.AckID = nil
	}
	if bytes.Equal(bytes.TrimSpace(f.Data), null) {
		f.Data = nil
	}
	return f, nil
}

func encodeFrame(f OutFrame) ([]byte, error) {
	return json.Marshal(f)
}
