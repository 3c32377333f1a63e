package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds a logger that writes JSON to a rotated file and tees to stdout.
// Development mode logs to stdout with the console encoder at debug level.
func New(logFilePath string, isProd bool) *zap.Logger {
	rotator := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)

	fileCore := zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), zap.InfoLevel)

	consoleEncoder := jsonEncoder
	consoleLevel := zap.InfoLevel
	if !isProd {
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		consoleLevel = zap.DebugLevel
	}
	consoleCore := zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), consoleLevel)

	return zap.New(zapcore.NewTee(fileCore, consoleCore), zap.AddCaller())
}

// Console builds a stderr-only logger for the CLI. Quiet suppresses
// everything below warnings.
func Console(quiet bool) *zap.Logger {
	level := zap.DebugLevel
	if quiet {
		level = zap.WarnLevel
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core)
}
