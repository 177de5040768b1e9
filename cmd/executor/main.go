// Command executor is the in-environment agent the connector starts
// inside each deployment (spec.md §4.6). It is a bare binary, not an
// echo server: configuration comes entirely from the NETUNICORN_*
// environment variables the connector injects, and it logs with
// go.uber.org/zap rather than the server processes' gommon/log.
package main

import (
	"context"
	"os"
	"os/signal"

	"go.uber.org/zap/zapcore"

	execconfig "github.com/netunicorn/netunicorn/pkg/executor/config"
	"github.com/netunicorn/netunicorn/pkg/executor/execlog"
	"github.com/netunicorn/netunicorn/pkg/executor/tasklib"

	"github.com/netunicorn/netunicorn/pkg/executor"
)

func main() {
	logger, buf := execlog.New(zapcore.InfoLevel)
	defer logger.Sync()

	cfg, err := execconfig.Load()
	if err != nil {
		logger.Fatal(err.Error())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()

	registry := tasklib.Registry()

	if err := executor.Run(ctx, cfg, registry, logger, buf); err != nil {
		logger.Fatal(err.Error())
	}
}
