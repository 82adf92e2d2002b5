package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "lead-crm"

type ZapLogger struct {
	log   *zap.SugaredLogger
	level zap.AtomicLevel
}

var zapLogger *ZapLogger

var _ Logger = (*ZapLogger)(nil)

// configFor picks the preset for LOG_ENV: JSON in production, console
// everywhere else. Every entry is tagged with the service name.
func configFor(env string) zap.Config {
	cfg := zap.NewDevelopmentConfig()
	if env == "production" {
		cfg = zap.NewProductionConfig()
	}
	cfg.InitialFields = map[string]interface{}{"service": serviceName}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// NewLogger builds the global logger for env and returns it.
func NewLogger(env string) (*ZapLogger, error) {
	cfg := configFor(env)
	// skip the package helper and the ZapLogger method
	built, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}
	zapLogger = &ZapLogger{log: built.Sugar(), level: cfg.Level}
	return zapLogger, nil
}

func GetLogger() *ZapLogger {
	if zapLogger == nil {
		panic("logger not initialized")
	}
	return zapLogger
}

func (l *ZapLogger) Panic(message string, values ...any) {
	l.log.Panicw(message, values...)
}

func (l *ZapLogger) Info(message string, values ...any) {
	l.log.Infow(message, values...)
}

func (l *ZapLogger) Warn(message string, values ...any) {
	l.log.Warnw(message, values...)
}

func (l *ZapLogger) Error(message string, values ...any) {
	l.log.Errorw(message, values...)
}

func (l *ZapLogger) Debug(message string, values ...any) {
	l.log.Debugw(message, values...)
}

// Printf receives the fasthttp server's own error reports.
func (l *ZapLogger) Printf(format string, args ...interface{}) {
	l.log.Warnf("[http-server] "+format, args...)
}
