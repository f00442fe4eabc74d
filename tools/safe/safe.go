package safe

import (
	"PRelay/logger"
	"PRelay/tools/errs"
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// MustNotNil panics if the given value is nil.
// Useful for enforcing required dependencies during construction.
func MustNotNil(v any, name string) {
	if v == nil {
		panic(fmt.Sprintf("%s must not be nil", name))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			panic(fmt.Sprintf("%s must not be nil", name))
		}
	}
}

// Go starts a goroutine that recovers from panic and logs it under name,
// so a bad event never takes the whole gateway down.
func Go(name string, f func()) {
	go func() {
		defer Recover(name)
		f()
	}()
}

// Recover 用于 defer；吞掉 panic 并记录
func Recover(name string) {
	if r := recover(); r != nil {
		logger.Error("[Safe] panic recovered", zap.String("where", name), zap.Error(errs.ErrPanic(r)))
	}
}
