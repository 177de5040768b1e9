// Package execlog is the executor's structured logger: it tees every
// log line to stderr (for container logs) and to an in-memory buffer,
// because the final result bundle ships a copy of the run's logs home
// alongside the task results (spec.md §4.6 step 5, "attach captured
// stdout+stderr lines as a log bundle"). Grounded on
// l54808821-yqhp-server/common/logger/logger.go's zapcore.NewTee setup;
// the teacher's own gommon/log is kept for the echo-hosted servers,
// where it's already wired into request middleware, but it has no
// capture-to-buffer mode, so this boundary borrows from the rest of
// the pack instead.
package execlog

import (
	"bytes"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Buffer is a concurrency-safe zapcore.WriteSyncer backed by a
// bytes.Buffer, so the same writer can be both logged to and read from
// while the pipeline is still running.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *Buffer) Sync() error { return nil }

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// New builds a logger that tees to stderr and to the returned Buffer.
func New(level zapcore.Level) (*zap.Logger, *Buffer) {
	buf := &Buffer{}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), level),
		zapcore.NewCore(encoder, buf, level),
	)

	return zap.New(core, zap.AddCaller()), buf
}
