// Package clog 为 flake 提供基于 slog 的结构化日志组件。
//
// 特性：
//   - 抽象接口，不暴露底层实现（slog）
//   - 层级命名空间，组件通过 WithNamespace 派生子 Logger
//   - 运行时调整级别（SetLevel），配合 config.Watch 实现热更新
//   - 错误字段自动携带 xerrors 错误码
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{Level: "info", Format: "json"},
//	    clog.WithNamespace("flaked"),
//	)
//	logger.Info("generator ready", clog.Uint64("machine_id", 15))
//
// 组件内部：
//
//	g.logger = logger.WithNamespace("snowflake")
//	g.logger.Warn("clock moved backwards", clog.Duration("drift", d))
package clog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/ceyewan/flake/xerrors"
)

// Logger 日志接口
//
// 派生子 Logger：
//
//	child := logger.With(clog.String("driver", "redis"))
//	ns := logger.WithNamespace("allocator") // namespace=flaked.allocator
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// *Context 版本会额外输出 WithContextField 注册的字段
	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)

	With(fields ...Field) Logger
	WithNamespace(parts ...string) Logger

	// SetLevel 动态调整级别，对所有派生的子 Logger 同时生效
	SetLevel(level Level) error

	// Flush 同步文件输出，stdout/stderr 为空操作
	Flush()
}

type loggerImpl struct {
	handler   slog.Handler
	level     *slog.LevelVar
	namespace string
	opts      *options
	file      *os.File
}

func newLogger(config *Config, o *options) (Logger, error) {
	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	var (
		w    io.Writer
		file *os.File
	)
	switch {
	case o.writer != nil:
		w = o.writer
	case config.Output == "stdout":
		w = os.Stdout
	case config.Output == "stderr":
		w = os.Stderr
	default:
		if err := os.MkdirAll(filepath.Dir(config.Output), 0o755); err != nil {
			return nil, xerrors.Wrap(err, "create log dir")
		}
		file, err = os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, xerrors.Wrap(err, "open log file")
		}
		w = file
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(level.slogLevel())

	handlerOpts := &slog.HandlerOptions{
		Level:       levelVar,
		AddSource:   config.AddSource,
		ReplaceAttr: replaceAttr(config.SourceRoot),
	}

	var handler slog.Handler
	if strings.ToLower(config.Format) == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return &loggerImpl{
		handler:   handler,
		level:     levelVar,
		namespace: strings.Join(o.namespaceParts, "."),
		opts:      o,
		file:      file,
	}, nil
}

func replaceAttr(sourceRoot string) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) > 0 {
			return a
		}
		switch a.Key {
		case slog.TimeKey:
			return slog.String(slog.TimeKey, a.Value.Time().Format(timeFormat))
		case slog.LevelKey:
			lvl, _ := a.Value.Any().(slog.Level)
			return slog.String(slog.LevelKey, strings.ToLower(lvl.String()))
		case slog.SourceKey:
			src, ok := a.Value.Any().(*slog.Source)
			if !ok || src == nil {
				return a
			}
			file := src.File
			if sourceRoot != "" {
				if rel, err := filepath.Rel(sourceRoot, file); err == nil {
					file = rel
				}
			} else {
				file = filepath.Base(file)
			}
			return slog.String(slog.SourceKey, file+":"+strconv.Itoa(src.Line))
		}
		return a
	}
}

func (l *loggerImpl) log(ctx context.Context, level slog.Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level) {
		return
	}

	var pcs [1]uintptr
	// 跳过 runtime.Callers、log 与级别方法本身
	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	if l.namespace != "" {
		r.AddAttrs(slog.String("namespace", l.namespace))
	}
	for _, ck := range l.opts.contextKeys {
		if v := ctx.Value(ck.key); v != nil {
			r.AddAttrs(slog.Any(ck.field, v))
		}
	}
	r.AddAttrs(fields...)
	_ = l.handler.Handle(ctx, r)
}

func (l *loggerImpl) Debug(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelDebug, msg, fields)
}

func (l *loggerImpl) Info(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelInfo, msg, fields)
}

func (l *loggerImpl) Warn(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelWarn, msg, fields)
}

func (l *loggerImpl) Error(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelError, msg, fields)
}

func (l *loggerImpl) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelDebug, msg, fields)
}

func (l *loggerImpl) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelInfo, msg, fields)
}

func (l *loggerImpl) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelWarn, msg, fields)
}

func (l *loggerImpl) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelError, msg, fields)
}

func (l *loggerImpl) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	child := *l
	child.handler = l.handler.WithAttrs(fields)
	return &child
}

func (l *loggerImpl) WithNamespace(parts ...string) Logger {
	if len(parts) == 0 {
		return l
	}
	child := *l
	ns := strings.Join(parts, ".")
	if l.namespace != "" {
		ns = l.namespace + "." + ns
	}
	child.namespace = ns
	return &child
}

func (l *loggerImpl) SetLevel(level Level) error {
	switch level {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
	default:
		return xerrors.WithCode(xerrors.Wrapf(xerrors.ErrInvalidInput, "log level %d", int(level)), "invalid_log_level")
	}
	l.level.Set(level.slogLevel())
	return nil
}

func (l *loggerImpl) Flush() {
	if l.file != nil {
		_ = l.file.Sync()
	}
}
