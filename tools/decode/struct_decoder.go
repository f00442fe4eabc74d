package decode

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Options 用于定制 Decode 行为。
type Options struct {
	// 宽松解码：例如 "123" -> int、1.0 -> int64。
	// 握手参数与事件负载都要求严格解码（默认 false），类型不符直接失败。
	WeaklyTypedInput bool
	// 出现结构体里没有的字段时是否报错
	ErrorUnused bool
}

// DefaultOptions 返回默认选项（严格）。
func DefaultOptions() Options {
	return Options{}
}

// Map 将 map[string]any 解码到结构体 T，读取 `json` tag。
func Map[T any](m map[string]any, opts ...Options) (*T, error) {
	if m == nil {
		return nil, fmt.Errorf("input is nil")
	}

	cfg := DefaultOptions()
	if len(opts) > 0 {
		cfg = opts[0]
	}

	var out T
	decCfg := &mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: cfg.WeaklyTypedInput,
		ErrorUnused:      cfg.ErrorUnused,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			floatToIntHook(),
			singleStringSliceHook(),
		),
	}

	dec, err := mapstructure.NewDecoder(decCfg)
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}

	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("decode struct: %w", err)
	}
	return &out, nil
}

// JSON 先把原始 JSON 解到 map 再严格解码；非对象负载直接失败
func JSON[T any](raw []byte, opts ...Options) (*T, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	return Map[T](m, opts...)
}

// Values 把 url.Values 转为 map：单值 -> string，多值 -> []string。
// 多值参数解码到 string 字段时会失败，这正是握手阶段需要的。
func Values(v url.Values) map[string]any {
	out := make(map[string]any, len(v))
	for k, vs := range v {
		switch len(vs) {
		case 0:
			continue
		case 1:
			out[k] = vs[0]
		default:
			cp := make([]string, len(vs))
			copy(cp, vs)
			out[k] = cp
		}
	}
	return out
}

// -----------------------------
// decode hooks
// -----------------------------

// JSON 数字都是 float64；只有整数值才允许落到整型字段
func floatToIntHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.Float64 {
			return data, nil
		}
		switch to.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			f := data.(float64)
			if f != float64(int64(f)) {
				return nil, fmt.Errorf("number %v is not an integer", f)
			}
			return int64(f), nil
		}
		return data, nil
	}
}

// []string 只有一个元素且目标是 []string 时原样通过；目标是 string 时保持失败
func singleStringSliceHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() == reflect.String && to.Kind() == reflect.Slice && to.Elem().Kind() == reflect.String {
			return []string{data.(string)}, nil
		}
		return data, nil
	}
}
