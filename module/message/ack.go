package message

import (
	usermodel "PRelay/module/user/model"
	"PRelay/tools/errs"
	"encoding/json"
)

const (
	AckOK    = "ok"
	AckError = "error"
)

// Ack 一次操作的结果，经由应答帧回给请求方
type Ack struct {
	Status  string
	Code    string // 失败时的错误类别，如 InvalidMessageData
	Error   string // 失败时给客户端看的文案
	Message *RelayMessage
	Friends []usermodel.Profile
	Users   []usermodel.Profile
}

func (a Ack) OK() bool { return a.Status == AckOK }

func MessageAck(m *RelayMessage) Ack {
	return Ack{Status: AckOK, Message: m}
}

func FriendsAck(list []usermodel.Profile) Ack {
	if list == nil {
		list = []usermodel.Profile{}
	}
	return Ack{Status: AckOK, Friends: list}
}

func UsersAck(list []usermodel.Profile) Ack {
	if list == nil {
		list = []usermodel.Profile{}
	}
	return Ack{Status: AckOK, Users: list}
}

// FailAck 业务错误照实返回；其它错误用 fallback 文案，不把内部细节给客户端
func FailAck(err error, fallback string) Ack {
	ce, ok := errs.AsCodeError(err)
	if !ok || ce.Code == errs.ServerInternalError {
		return Ack{Status: AckError, Code: errs.ErrServerInternal.Reason, Error: fallback}
	}
	return Ack{Status: AckError, Code: ce.Reason, Error: ce.Msg}
}

// MarshalJSON {status, message|friends|users} 或 {status:"error", code, message}
func (a Ack) MarshalJSON() ([]byte, error) {
	m := map[string]any{"status": a.Status}
	if a.Status == AckError {
		m["code"] = a.Code
		m["message"] = a.Error
		return json.Marshal(m)
	}
	if a.Message != nil {
		m["message"] = a.Message
	}
	if a.Friends != nil {
		m["friends"] = a.Friends
	}
	if a.Users != nil {
		m["users"] = a.Users
	}
	return json.Marshal(m)
}
