package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/netunicorn/netunicorn/pkg/compiler"
	config "github.com/netunicorn/netunicorn/pkg/config/compiler"
	"github.com/netunicorn/netunicorn/pkg/store/postgres"
)

func main() {
	pconfig := flag.String("config", os.Getenv("NETUNICORN_COMPILER_CONFIG"), "path to config file")
	schemaRepo := flag.String("schema-repo", os.Getenv("NETUNICORN_SCHEMA"), "schema repository path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()

	conf, err := config.Load(*pconfig)
	if err != nil {
		panic(err)
	}

	db, err := postgres.New(ctx, conf.DBURI, postgres.WithSchemaRepository(*schemaRepo))
	if err != nil {
		panic(err)
	}
	defer db.Close()

	pollInterval := 2 * time.Second
	if conf.PollInterval != "" {
		if d, err := time.ParseDuration(conf.PollInterval); err == nil {
			pollInterval = d
		}
	}
	maxBuilds := conf.MaxConcurrentBuilds
	if maxBuilds <= 0 {
		maxBuilds = 1
	}

	builder := &compiler.Builder{
		Registry:           conf.Registry,
		ExecutorBinaryPath: conf.ExecutorBinaryPath,
		DefaultBaseImage:   conf.DefaultBaseImage,
	}
	svc := compiler.New(db, builder, maxBuilds, maxBuilds, pollInterval)

	if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
		panic(err)
	}
}
