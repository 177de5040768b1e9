package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	config "github.com/netunicorn/netunicorn/pkg/config/gateway"
	"github.com/netunicorn/netunicorn/pkg/gateway"
	"github.com/netunicorn/netunicorn/pkg/gateway/token"
	"github.com/netunicorn/netunicorn/pkg/store/postgres"
)

func main() {
	pconfig := flag.String(
		"config", os.Getenv("NETUNICORN_GATEWAY_CONFIG"), "path to config file",
	)
	schemaRepo := flag.String("schema-repo", os.Getenv("NETUNICORN_SCHEMA"), "schema repository path")
	loglevel := flag.String("loglevel", "warn", "log level. debug|info|warn|error|off")

	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()

	conf, err := config.Load(*pconfig)
	if err != nil {
		panic(err)
	}

	secret := os.Getenv(conf.TokenSigningKeyEnv)
	if secret == "" {
		panic(fmt.Sprintf("gateway: signing secret env %q is empty", conf.TokenSigningKeyEnv))
	}
	ttl := 24 * time.Hour
	if conf.TokenTTL != "" {
		if d, err := time.ParseDuration(conf.TokenTTL); err == nil {
			ttl = d
		}
	}
	kc := token.New([]byte(secret), ttl)

	db, err := postgres.New(ctx, conf.DBURI, postgres.WithSchemaRepository(*schemaRepo))
	if err != nil {
		panic(err)
	}
	defer db.Close()

	server := gateway.BuildServer(db, kc, *loglevel)
	for _, r := range server.Routes() {
		server.Logger.Debugf("- mount handler: %s %s", strings.ToUpper(r.Method), r.Path)
	}

	ch := make(chan error, 1)
	go func() {
		defer close(ch)
		if err := server.Start(fmt.Sprintf(":%s", conf.ServerPort)); err != nil && err != http.ErrServerClosed {
			ch <- err
		}
	}()

	exit := 0
	select {
	case <-ctx.Done():
		server.Logger.Infof("context done: %s", ctx.Err())
		exit = 1
	case err := <-ch:
		if err != nil {
			server.Logger.Error("server stopped with error:", err)
			exit = 1
		}
	}

	server.Logger.Info("shutting down...")
	qctx, qcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer qcancel()
	if err := server.Shutdown(qctx); err != nil {
		server.Logger.Fatalf("shutdown with error: %+v", err)
		os.Exit(1)
	}
	os.Exit(exit)
}
