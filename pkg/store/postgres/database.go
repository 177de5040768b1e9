// Package postgres is the only store.Interface implementation this
// repository ships: per-entity packages doing raw pgx SQL under
// transactions and row locks, composed here into the store.Interface
// facade. Modeled on the teacher's pkg/db/postgres/database.go.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/netunicorn/netunicorn/pkg/store"
	"github.com/netunicorn/netunicorn/pkg/store/postgres/compilation"
	"github.com/netunicorn/netunicorn/pkg/store/postgres/deployment"
	"github.com/netunicorn/netunicorn/pkg/store/postgres/executor"
	"github.com/netunicorn/netunicorn/pkg/store/postgres/experiment"
	"github.com/netunicorn/netunicorn/pkg/store/postgres/flag"
	"github.com/netunicorn/netunicorn/pkg/store/postgres/lock"
	"github.com/netunicorn/netunicorn/pkg/store/postgres/pool"
	"github.com/netunicorn/netunicorn/pkg/store/postgres/schema"
)

type Config struct {
	// SchemaRepository, if set, is a directory of numbered .sql files
	// applied at startup (pkg/store/postgres/schema). Leave empty when
	// migrations are run out-of-band.
	SchemaRepository string
}

type Option func(*Config)

func WithSchemaRepository(path string) Option {
	return func(c *Config) { c.SchemaRepository = path }
}

type database struct {
	pool pool.Pool
	pgx  *pgxpool.Pool

	experiments  store.ExperimentInterface
	deployments  store.DeploymentInterface
	compilations store.CompilationInterface
	executors    store.ExecutorInterface
	locks        store.LockInterface
	flags        store.FlagInterface
}

// New connects to url, optionally applies pending schema migrations, and
// returns a store.Interface backed by the connection pool.
func New(ctx context.Context, url string, options ...Option) (store.Interface, error) {
	cfg := Config{}
	for _, o := range options {
		o(&cfg)
	}

	pgxPool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	p := pool.Wrap(pgxPool)

	s := schema.New(p, cfg.SchemaRepository)
	if err := s.Upgrade(ctx); err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &database{
		pool:         p,
		pgx:          pgxPool,
		experiments:  experiment.New(p),
		deployments:  deployment.New(p),
		compilations: compilation.New(p),
		executors:    executor.New(p),
		locks:        lock.New(p),
		flags:        flag.New(p),
	}, nil
}

func (d *database) Experiments() store.ExperimentInterface   { return d.experiments }
func (d *database) Deployments() store.DeploymentInterface   { return d.deployments }
func (d *database) Compilations() store.CompilationInterface { return d.compilations }
func (d *database) Executors() store.ExecutorInterface       { return d.executors }
func (d *database) Locks() store.LockInterface                { return d.locks }
func (d *database) Flags() store.FlagInterface                 { return d.flags }

func (d *database) Ping(ctx context.Context) error {
	return d.pgx.Ping(ctx)
}

func (d *database) Close() error {
	d.pgx.Close()
	return nil
}
