// Package cctx carries request-scoped log fields (trace_id, segment_id, ...)
// through a context. Every write copies the bag, parents are never mutated.
package cctx

import "context"

type bagKeyType struct{}

var bagKey bagKeyType

type bag map[string]any

func bagFrom(ctx context.Context) bag {
	if ctx == nil {
		return nil
	}
	if b, ok := ctx.Value(bagKey).(bag); ok {
		return b
	}
	return nil
}

// 深拷贝：只递归 map[string]any 与 []any，其它类型按值赋
func deepCopy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return deepCopyMap(x)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = deepCopy(x[i])
		}
		return out
	default:
		return v
	}
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out
}

// With 写入一条字段，返回新 ctx
func With(ctx context.Context, key string, val any) context.Context {
	return WithMany(ctx, map[string]any{key: val})
}

// WithMany 一次写入多条字段
func WithMany(ctx context.Context, kv map[string]any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	old := bagFrom(ctx)
	next := make(bag, len(old)+len(kv))
	for k, v := range old {
		next[k] = v
	}
	for k, v := range kv {
		next[k] = deepCopy(v)
	}
	return context.WithValue(ctx, bagKey, next)
}

// Get 读取一个字段
func Get(ctx context.Context, key string) (any, bool) {
	v, ok := bagFrom(ctx)[key]
	return v, ok
}

// GetAs 读取并断言为 T
func GetAs[T any](ctx context.Context, key string) (T, bool) {
	var zero T
	v, ok := Get(ctx, key)
	if !ok {
		return zero, false
	}
	tv, ok := v.(T)
	if !ok {
		return zero, false
	}
	return tv, true
}

// All 返回所有字段的深拷贝，没有时返回空 map
func All(ctx context.Context) map[string]any {
	if b := bagFrom(ctx); b != nil {
		return deepCopyMap(b)
	}
	return map[string]any{}
}
