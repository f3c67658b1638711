package logger

import (
	"io"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"cineverse/internal/core/config"
)

// FromConfig 控制台 + 可选的切割文件；返回的 cleanup 在退出前调用
func FromConfig(c config.Log) (*zap.Logger, func()) {
	return build(c, os.Stdout)
}

func build(c config.Log, out zapcore.WriteSyncer) (*zap.Logger, func()) {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(c.Level); err != nil {
		lvl = zapcore.InfoLevel
	}
	enc := encoder(c.JSON)

	cores := []zapcore.Core{zapcore.NewCore(enc, out, lvl)}
	var file *lumberjack.Logger
	if c.File.Enable && c.File.Filename != "" {
		file = &lumberjack.Logger{
			Filename:   c.File.Filename,
			MaxSize:    max(1, c.File.MaxSizeMB),
			MaxBackups: max(0, c.File.MaxBackups),
			MaxAge:     max(0, c.File.MaxAgeDays),
			Compress:   c.File.Compress,
		}
		cores = append(cores, zapcore.NewCore(encoder(true), zapcore.AddSync(file), lvl))
	}

	core := zapcore.NewSamplerWithOptions(zapcore.NewTee(cores...), time.Second, 100, 100)
	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if !c.JSON {
		opts = append(opts, zap.Development())
	}
	l := zap.New(core, opts...)
	return l, func() {
		_ = l.Sync()
		if file != nil {
			_ = file.Close()
		}
	}
}

// encoder 文件总是 JSON；控制台按配置
func encoder(json bool) zapcore.Encoder {
	if json {
		ec := zap.NewProductionEncoderConfig()
		ec.TimeKey = "ts"
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeCaller = zapcore.ShortCallerEncoder
		return zapcore.NewJSONEncoder(ec)
	}
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	ec.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewConsoleEncoder(ec)
}

type lineWriter struct {
	l     *zap.Logger
	level zapcore.Level
}

func (w lineWriter) Write(p []byte) (int, error) {
	if ce := w.l.Check(w.level, strings.TrimRight(string(p), "\r\n")); ce != nil {
		ce.Write()
	}
	return len(p), nil
}

// ToWriter 把按行写入的第三方输出（gin 等）转成日志
func ToWriter(l *zap.Logger, level zapcore.Level) io.Writer {
	return lineWriter{l: l, level: level}
}

// ToStdLogger gorm 的 SQL 日志
func ToStdLogger(l *zap.Logger, level zapcore.Level) (*log.Logger, error) {
	return zap.NewStdLogAt(l, level)
}

func RedirectStdLog(l *zap.Logger, level zapcore.Level) func() {
	undo, err := zap.RedirectStdLogAt(l, level)
	if err != nil {
		return func() {}
	}
	return undo
}
