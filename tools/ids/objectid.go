package ids

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IdentifierValidator 判断一个字符串是否是合法的用户主键
type IdentifierValidator interface {
	IsValidIdentifier(v string) bool
}

// ObjectIDValidator 用户主键是 24 位十六进制的 Mongo ObjectID
type ObjectIDValidator struct{}

func (ObjectIDValidator) IsValidIdentifier(v string) bool {
	return primitive.IsValidObjectID(v)
}

// ValidatorFunc 便于测试注入
type ValidatorFunc func(string) bool

func (f ValidatorFunc) IsValidIdentifier(v string) bool { return f(v) }

// FilterValid 过滤掉不合法的主键，保持原顺序
func FilterValid(v IdentifierValidator, in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v.IsValidIdentifier(s) {
			out = append(out, s)
		}
	}
	return out
}
