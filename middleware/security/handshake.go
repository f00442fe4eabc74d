package security

import (
	"PRelay/tools/decode"
	"PRelay/tools/errs"
	"PRelay/tools/ids"
	jwtx "PRelay/tools/security"
	"net/http"
	"net/url"
	"strings"
)

// Identity 握手通过后绑定到连接的身份，整个连接期间不变
type Identity struct {
	UserID string
	Token  string // 原始令牌（可能为空）
}

// handshakeParams 握手查询参数。严格解码：多值或非字符串都会失败
type handshakeParams struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// 客户端把函数/对象直接塞进查询串时的常见渲染结果
var renderedForms = []string{"String", "[object Function]", "[object Object]"}

func looksRendered(v string) bool {
	if strings.Contains(v, "function String()") {
		return true
	}
	for _, f := range renderedForms {
		if v == f {
			return true
		}
	}
	return false
}

// Authenticator 升级前校验握手参数
type Authenticator struct {
	ids          ids.IdentifierValidator
	jwt          jwtx.Options
	requireToken bool
}

func NewAuthenticator(v ids.IdentifierValidator, jwt jwtx.Options, requireToken bool) *Authenticator {
	if v == nil {
		v = ids.ObjectIDValidator{}
	}
	return &Authenticator{ids: v, jwt: jwt, requireToken: requireToken}
}

// Authenticate 按顺序：类型解码 -> 渲染值黑名单 -> 标识符格式 -> 令牌（启用时）
func (a *Authenticator) Authenticate(query url.Values, header http.Header) (Identity, error) {
	p, err := decode.Map[handshakeParams](decode.Values(query))
	if err != nil {
		return Identity{}, errs.ErrMalformedHandshakeValue.WithDetail(err.Error())
	}
	if looksRendered(p.UserID) {
		return Identity{}, errs.ErrMalformedHandshakeValue
	}

	uid := strings.TrimSpace(p.UserID)
	if uid == "" || !a.ids.IsValidIdentifier(uid) {
		return Identity{}, errs.ErrInvalidIdentifier
	}

	token := p.Token
	if token == "" && header != nil {
		token = jwtx.BearerToken(header.Get("Authorization"))
	}
	if a.requireToken && a.jwt.Enabled() {
		if token == "" {
			return Identity{}, errs.ErrAuthentication.WithDetail("token missing")
		}
		sub, err := jwtx.Verify(a.jwt, token)
		if err != nil {
			return Identity{}, errs.ErrAuthentication.WithDetail(err.Error())
		}
		if sub != uid {
			return Identity{}, errs.ErrAuthentication.WithDetail("subject mismatch")
		}
	}
	return Identity{UserID: uid, Token: token}, nil
}
