package logging

import (
	"fmt"
	"io"

	"github.com/pario-ai/llmemo/pkg/config"
	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the Logger selected by cfg, writing to w.
func New(cfg config.LogConfig, w io.Writer) (Logger, error) {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	switch cfg.Backend {
	case "", "zap":
		return newZap(level, cfg.Format, w)
	case "logrus":
		return newLogrus(level, cfg.Format, w)
	case "zerolog":
		return newZerolog(level, cfg.Format, w)
	default:
		return nil, fmt.Errorf("logging: unknown backend %q", cfg.Backend)
	}
}

func newZap(level, format string, w io.Writer) (Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if format == "console" {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}
	return Zap{L: zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lvl))}, nil
}

func newLogrus(level, format string, w io.Writer) (Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)
	if format == "console" {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return Logrus{E: logrus.NewEntry(l)}, nil
}

func newZerolog(level, format string, w io.Writer) (Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	out := w
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: w}
	}
	return Zerolog{L: zerolog.New(out).Level(lvl).With().Timestamp().Logger()}, nil
}
