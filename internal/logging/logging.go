// Package logging builds the process logger from configuration.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gmsas95/medreminder/internal/config"
)

// New returns a zap logger writing to stderr and, when log.file is set, to a
// rotating file. The console encoder is used unless log.format is json.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	return build(cfg, true)
}

// Quiet returns a logger for the terminal UI: nothing goes to the terminal,
// only to log.file when one is configured.
func Quiet(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.File == "" {
		return zap.NewNop(), nil
	}
	return build(cfg, false)
}

func build(cfg config.LogConfig, console bool) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, err
	}

	var cores []zapcore.Core
	if console {
		cores = append(cores, zapcore.NewCore(consoleEncoder(cfg.Format), zapcore.Lock(os.Stderr), level))
	}
	if cfg.File != "" {
		cores = append(cores, zapcore.NewCore(jsonEncoder(), zapcore.AddSync(rotator(cfg)), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

func consoleEncoder(format string) zapcore.Encoder {
	if strings.EqualFold(format, "json") {
		return jsonEncoder()
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(encCfg)
}

func jsonEncoder() zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(encCfg)
}

func rotator(cfg config.LogConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}
