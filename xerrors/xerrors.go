// Package xerrors 为 flake 提供统一的错误处理工具。
//
// 约定：
//   - 组件在 errors.go 中用 xerrors.New 定义哨兵错误
//   - 返回时用 WithCode 附加机器可读的错误码，调用方通过 Is 判断类别、GetCode 取得错误码
//   - 跨层传递时用 Wrap / Wrapf 补充上下文，保持错误链可被 errors.Is / errors.As 解析
//
// 示例：
//
//	var ErrClockMovedBackwards = xerrors.New("snowflake: clock moved backwards")
//
//	return 0, xerrors.WithCode(xerrors.Wrapf(ErrClockMovedBackwards, "drift %v", d), "clock_moved_backwards")
//
//	if xerrors.Is(err, snowflake.ErrClockMovedBackwards) { ... }
//	code := xerrors.GetCode(err) // "clock_moved_backwards"
package xerrors

import (
	"errors"
	"fmt"
)

// 通用哨兵错误，各组件可在其上包装具体原因
var (
	// ErrInvalidInput 输入或配置非法
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound 目标不存在
	ErrNotFound = errors.New("not found")

	// ErrUnavailable 依赖暂不可用，稍后可重试
	ErrUnavailable = errors.New("unavailable")
)

// 标准库函数再导出
var (
	New    = errors.New
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Wrap 用上下文信息包装错误，保留错误链。err 为 nil 时返回 nil。
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 用格式化的上下文信息包装错误。
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// CodedError 携带机器可读错误码的错误
type CodedError struct {
	Code  string
	Cause error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %v", e.Code, e.Cause)
	}
	return fmt.Sprintf("[%s]", e.Code)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WithCode 为错误附加错误码。err 为 nil 时返回 nil。
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Cause: err}
}

// GetCode 返回错误链中最外层的错误码，不存在时返回空字符串。
func GetCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// Must 在 err 不为 nil 时 panic，仅用于初始化阶段。
func Must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("must: %v", err))
	}
	return v
}

// MultiError 合并多个错误
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	switch len(m.Errors) {
	case 0:
		return "no errors"
	case 1:
		return m.Errors[0].Error()
	default:
		return fmt.Sprintf("%v (and %d more errors)", m.Errors[0], len(m.Errors)-1)
	}
}

func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Combine 将多个错误合并为一个，忽略 nil。
//
// 关闭多个资源时使用：
//
//	return xerrors.Combine(srv.Close(), alloc.Close(), conn.Close())
func Combine(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return &MultiError{Errors: nonNil}
	}
}
