package errs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// 业务错误码
const (
	InvalidIdentifierCode       = 1001
	MalformedHandshakeValueCode = 1002
	UserNotFoundCode            = 1003
	InvalidMessageDataCode      = 1004
	NotAuthorizedCode           = 1005
	AuthenticationCode          = 1006
	ServerInternalError         = 1500
)

// 握手阶段（连接被拒绝）
var (
	ErrInvalidIdentifier       = NewCodeError(InvalidIdentifierCode, "InvalidIdentifier", "Invalid user ID format")
	ErrMalformedHandshakeValue = NewCodeError(MalformedHandshakeValueCode, "MalformedHandshakeValue", "Invalid user ID: malformed handshake value")
	ErrAuthentication          = NewCodeError(AuthenticationCode, "Authentication", "Authentication error")
)

// 操作阶段（只通过 ack 返回，连接保持）
var (
	ErrUserNotFound       = NewCodeError(UserNotFoundCode, "UserNotFound", "User not found")
	ErrInvalidMessageData = NewCodeError(InvalidMessageDataCode, "InvalidMessageData", "Invalid message data")
	ErrNotAuthorized      = NewCodeError(NotAuthorizedCode, "NotAuthorized", "Not authorized to message this user")
	ErrServerInternal     = NewCodeError(ServerInternalError, "ServerInternal", "Server internal error")
)

type CodeErrorI interface {
	ECode() int
	EMsg() string
	DDetail() string
	error
}

type CodeError struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, reason, msg string) *CodeError {
	return &CodeError{
		Code:   code,
		Reason: reason,
		Msg:    msg,
	}
}

func (e *CodeError) ECode() int      { return e.Code }
func (e *CodeError) EMsg() string    { return e.Msg }
func (e *CodeError) DDetail() string { return e.Detail }

func (e *CodeError) clone() *CodeError {
	return &CodeError{
		Code:   e.Code,
		Reason: e.Reason,
		Msg:    e.Msg,
		Detail: e.Detail,
	}
}

// WithDetail 返回附带 detail 的副本，不修改哨兵本身
func (e *CodeError) WithDetail(detail string) *CodeError {
	c := e.clone()
	if c.Detail == "" {
		c.Detail = detail
	} else {
		c.Detail += ", " + detail
	}
	return c
}

// Wrap 附带调用栈
func (e *CodeError) Wrap() error {
	return pkgerrors.WithStack(e.clone())
}

func (e *CodeError) WrapMsg(msg string, kv ...any) error {
	retErr := e.clone()
	if msg != "" || len(kv) > 0 {
		retErr = retErr.WithDetail(toString(msg, kv))
	}
	return pkgerrors.WithStack(retErr)
}

// Is 按错误码匹配，errors.Is(err, ErrUserNotFound) 对副本同样成立
func (e *CodeError) Is(target error) bool {
	var t *CodeError
	if !errors.As(target, &t) {
		return false
	}
	if e == nil || t == nil {
		return e == t
	}
	return e.Code == t.Code
}

const initialCapacity = 3

func (e *CodeError) Error() string {
	v := make([]string, 0, initialCapacity)
	v = append(v, strconv.Itoa(e.Code), e.Msg)

	if e.Detail != "" {
		v = append(v, e.Detail)
	}

	return strings.Join(v, " ")
}

// AsCodeError 取出链上的 CodeError；不是业务错误时返回 ErrServerInternal
func AsCodeError(err error) (*CodeError, bool) {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce, true
	}
	return ErrServerInternal, false
}

// New 普通错误（带栈）
func New(msg string, kv ...any) error {
	return pkgerrors.New(toString(msg, kv))
}

func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.WithStack(err)
}

func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, toString(msg, kv))
}

func toString(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprint(kv[i]))
		sb.WriteString("=")
		if i+1 < len(kv) {
			sb.WriteString(fmt.Sprint(kv[i+1]))
		} else {
			sb.WriteString("MISSING")
		}
	}
	return sb.String()
}
