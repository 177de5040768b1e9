// Package schema applies numbered .sql files from a schema repository
// directory in order, recording progress in a schema_history table.
// Modeled on the teacher's pkg/db/postgres/schema.
package schema

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/netunicorn/netunicorn/pkg/store/postgres/pool"
)

type Schema struct {
	pool       pool.Pool
	repository string
}

func New(p pool.Pool, repository string) *Schema {
	return &Schema{pool: p, repository: repository}
}

// Null returns a Schema that never upgrades anything, for deployments
// where migrations are applied out-of-band.
func Null() *Schema {
	return &Schema{}
}

type version struct {
	n    int
	path string
}

func (s *Schema) versions() ([]version, error) {
	if s.repository == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.repository)
	if err != nil {
		return nil, err
	}
	var versions []version
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		numPart := strings.SplitN(e.Name(), "_", 2)[0]
		n, err := strconv.Atoi(numPart)
		if err != nil {
			continue
		}
		versions = append(versions, version{n: n, path: filepath.Join(s.repository, e.Name())})
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].n < versions[j].n })
	return versions, nil
}

func (s *Schema) currentVersion(ctx context.Context) (int, error) {
	var v int
	err := s.pool.QueryRow(
		ctx, `select coalesce(max("version"), 0) from "schema_history"`,
	).Scan(&v)
	if err != nil {
		if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) && pgerr.Code == pgerrcode.UndefinedTable {
			return 0, nil
		}
		return -1, err
	}
	return v, nil
}

// Upgrade applies every version newer than the current one, in order,
// each inside its own transaction.
func (s *Schema) Upgrade(ctx context.Context) error {
	if s.repository == "" {
		return nil
	}
	versions, err := s.versions()
	if err != nil {
		return err
	}
	current, err := s.currentVersion(ctx)
	if err != nil {
		current = 0
	}
	for _, v := range versions {
		if v.n <= current {
			continue
		}
		body, err := os.ReadFile(v.path)
		if err != nil {
			return err
		}
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, string(body)); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("applying schema version %d: %w", v.n, err)
		}
		if _, err := tx.Exec(
			ctx, `insert into "schema_history" ("version") values ($1)`, v.n,
		); err != nil {
			tx.Rollback(ctx)
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}
	return nil
}
