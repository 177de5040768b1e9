package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	director "github.com/netunicorn/netunicorn/pkg/config/director"
	config "github.com/netunicorn/netunicorn/pkg/config/processor"
	"github.com/netunicorn/netunicorn/pkg/connector"
	"github.com/netunicorn/netunicorn/pkg/processor"
	"github.com/netunicorn/netunicorn/pkg/store/postgres"
)

func main() {
	pconfig := flag.String("config", os.Getenv("NETUNICORN_PROCESSOR_CONFIG"), "path to config file")
	schemaRepo := flag.String("schema-repo", os.Getenv("NETUNICORN_SCHEMA"), "schema repository path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()

	conf, err := config.Load(*pconfig)
	if err != nil {
		panic(err)
	}

	connCfg, err := director.Load(conf.ConnectorConfigPath)
	if err != nil {
		panic(err)
	}
	registry, err := connector.Build(connCfg)
	if err != nil {
		panic(err)
	}

	db, err := postgres.New(ctx, conf.DBURI, postgres.WithSchemaRepository(*schemaRepo))
	if err != nil {
		panic(err)
	}
	defer db.Close()

	tickInterval := 3 * time.Second
	if conf.TickInterval != "" {
		if d, err := time.ParseDuration(conf.TickInterval); err == nil {
			tickInterval = d
		}
	}
	heartbeatInterval := 30 * time.Second
	if conf.HeartbeatInterval != "" {
		if d, err := time.ParseDuration(conf.HeartbeatInterval); err == nil {
			heartbeatInterval = d
		}
	}

	svc := processor.New(db, registry, heartbeatInterval, tickInterval)
	if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
		panic(err)
	}
}
