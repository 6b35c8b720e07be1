package clog

import "io"

// Option 函数式选项，用于配置 Logger 实例
type Option func(*options)

type options struct {
	namespaceParts []string
	writer         io.Writer
	contextKeys    []contextKey
}

type contextKey struct {
	key   any
	field string
}

// WithNamespace 设置日志命名空间，多级以 "." 连接
//
//	clog.WithNamespace("flaked", "http") // namespace=flaked.http
func WithNamespace(parts ...string) Option {
	return func(o *options) {
		o.namespaceParts = append(o.namespaceParts, parts...)
	}
}

// WithWriter 将日志写入指定 Writer，覆盖 Config.Output，主要用于测试
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// WithContextField 在 *Context 方法中从 ctx 提取 key 对应的值，以 field 为字段名输出
//
//	clog.WithContextField(requestIDKey{}, "request_id")
func WithContextField(key any, field string) Option {
	return func(o *options) {
		o.contextKeys = append(o.contextKeys, contextKey{key: key, field: field})
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
