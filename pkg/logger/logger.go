package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"reflect"
	"runtime"
	"strings"
	"time"

	multi "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

type Logger interface {
	SetLogLevel(levelStr string)
	GetLogLevel() string

	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, err error, args ...any)
	Fatal(msg string, err error, args ...any)
}

// Options controls where log records go. Stdout always receives text records;
// File, when set, additionally receives JSON records through a rotating writer.
type Options struct {
	Stdout io.Writer
	File   string
}

// SlogLogger writes through a slog handler. It builds records itself so the
// reported source is the first caller outside this package, however many
// wrappers (PrefixedLogger) sit in between.
type SlogLogger struct {
	handler slog.Handler
	level   *slog.LevelVar
	exit    func(code int)
}

// levels maps the names accepted by SetLogLevel to slog levels.
var levels = map[string]slog.Level{
	"trace": LevelTrace,
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
	"fatal": LevelFatal,
}

func New(o Options) *SlogLogger {
	l := &SlogLogger{
		level: &slog.LevelVar{},
		exit:  os.Exit,
	}
	l.level.Set(slog.LevelInfo)

	opts := &slog.HandlerOptions{
		AddSource:   true,
		Level:       l.level,
		ReplaceAttr: renameLevel,
	}

	stdout := o.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	handlers := []slog.Handler{slog.NewTextHandler(stdout, opts)}
	if o.File != "" {
		handlers = append(handlers, slog.NewJSONHandler(&lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    64,
			MaxBackups: 32,
			MaxAge:     30,
			Compress:   true,
		}, opts))
	}
	l.handler = multi.Fanout(handlers...)

	return l
}

// Nop returns a logger that discards everything. Handy in tests.
func Nop() *SlogLogger {
	return New(Options{Stdout: io.Discard})
}

func renameLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	switch a.Value.Any() {
	case LevelTrace:
		a.Value = slog.StringValue("TRACE")
	case LevelFatal:
		a.Value = slog.StringValue("FATAL")
	}
	return a
}

// SetLogLevel falls back to info for unknown names.
func (l *SlogLogger) SetLogLevel(levelStr string) {
	lvl, ok := levels[levelStr]
	if !ok {
		lvl = slog.LevelInfo
	}
	l.level.Set(lvl)
}

func (l *SlogLogger) GetLogLevel() string {
	current := l.level.Level()
	for name, lvl := range levels {
		if lvl == current {
			return name
		}
	}
	return "info"
}

func (l *SlogLogger) Trace(msg string, args ...any) { l.emit(LevelTrace, msg, nil, args) }
func (l *SlogLogger) Debug(msg string, args ...any) { l.emit(slog.LevelDebug, msg, nil, args) }
func (l *SlogLogger) Info(msg string, args ...any)  { l.emit(slog.LevelInfo, msg, nil, args) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.emit(slog.LevelWarn, msg, nil, args) }

func (l *SlogLogger) Error(msg string, err error, args ...any) {
	l.emit(slog.LevelError, msg, err, args)
}

func (l *SlogLogger) Fatal(msg string, err error, args ...any) {
	l.emit(LevelFatal, msg, err, args)
	l.exit(1)
}

func (l *SlogLogger) emit(level slog.Level, msg string, err error, args []any) {
	ctx := context.Background()
	if !l.handler.Enabled(ctx, level) {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, callerPC())
	if err != nil {
		r.AddAttrs(slog.String("error", err.Error()))
	}
	r.Add(args...)
	_ = l.handler.Handle(ctx, r)
}

var pkgPath = reflect.TypeOf(SlogLogger{}).PkgPath()

// callerPC returns the pc of the first frame whose function lives outside
// this package, resolved the way slog resolves a record's source so inlined
// wrappers are seen too. Test files of this package count as callers.
func callerPC() uintptr {
	var pcs [16]uintptr
	n := runtime.Callers(3, pcs[:])
	for _, pc := range pcs[:n] {
		f, _ := runtime.CallersFrames([]uintptr{pc}).Next()
		if !inPackage(f.Function) || strings.HasSuffix(f.File, "_test.go") {
			return pc
		}
	}
	return 0
}

// inPackage reports whether a runtime function name such as
// "example.com/x/pkg/logger.(*SlogLogger).Info" belongs to pkgPath.
// Subpackages ("pkg/logger/sub.F") do not.
func inPackage(funcName string) bool {
	rest, ok := strings.CutPrefix(funcName, pkgPath)
	return ok && strings.HasPrefix(rest, ".")
}
