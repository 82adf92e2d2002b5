package logger

import (
	"os"

	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Info(msg string, values ...any)
	Warn(msg string, values ...any)
	Error(msg string, values ...any)
	Debug(msg string, values ...any)
	Panic(message string, values ...any)
	Printf(format string, args ...interface{})
}

func init() {
	if _, err := NewLogger(os.Getenv("LOG_ENV")); err != nil {
		panic(err)
	}
}

// SetLevel changes the minimum level of the global logger at runtime.
// Unknown levels fall back to info.
func SetLevel(level string) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	GetLogger().level.SetLevel(lvl)
}

func Info(msg string, values ...any) {
	GetLogger().Info(msg, values...)
}

func Warn(msg string, values ...any) {
	GetLogger().Warn(msg, values...)
}

func Error(msg string, values ...any) {
	GetLogger().Error(msg, values...)
}

func Debug(msg string, values ...any) {
	GetLogger().Debug(msg, values...)
}

func Panic(msg string, values ...any) {
	GetLogger().Panic(msg, values...)
}

func Sync() {
	_ = GetLogger().log.Sync()
}
