package log

import (
	"io"
	"os"

	"qrious/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger warn 以下寫 stdout，warn 以上寫 stderr；每筆都帶服務名稱與版本
func NewLogger(conf *config.Configuration) (*zap.Logger, error) {
	return newLogger(conf, os.Stdout, os.Stderr)
}

func newLogger(conf *config.Configuration, stdout, stderr io.Writer) (*zap.Logger, error) {
	level := parseLevel(conf.Log.Level)
	enabled := zap.NewAtomicLevelAt(level)
	encoder := newEncoder(conf.Log.Format)

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(stdout), zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return enabled.Enabled(l) && l < zapcore.WarnLevel
		})),
		zapcore.NewCore(encoder, zapcore.AddSync(stderr), zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return enabled.Enabled(l) && l >= zapcore.WarnLevel
		})),
	)

	logger := zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if conf.App.Name != "" {
		logger = logger.With(zap.String("service", conf.App.Name))
	}
	if conf.App.Version != "" {
		logger = logger.With(zap.String("version", conf.App.Version))
	}
	logger.Info("zap logger ready",
		zap.String("level", level.String()),
		zap.String("format", encoderName(conf.Log.Format)),
	)
	return logger, nil
}

// 無法辨識的層級一律視為 info
func parseLevel(s string) zapcore.Level {
	level, err := zapcore.ParseLevel(s)
	if err != nil || s == "" {
		return zapcore.InfoLevel
	}
	return level
}

func newEncoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.MessageKey = "message"
	cfg.LevelKey = "level"
	cfg.TimeKey = "ts"
	cfg.CallerKey = "caller"
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if encoderName(format) == "console" {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewJSONEncoder(cfg)
}

func encoderName(format string) string {
	if format == "console" {
		return format
	}
	return "json"
}
