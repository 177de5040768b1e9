// Package connector is spec.md §4.2's pluggable fleet boundary: each
// connector owns a set of nodes and knows how to deploy, start and stop
// executors on them. pkg/infra fronts a Registry of named connectors;
// this repository ships pkg/connector/k8s (real) and
// pkg/connector/mock (in-memory, for tests and local development).
package connector

import (
	"context"

	"github.com/netunicorn/netunicorn/pkg/domain"
)

// Connector is the interface every fleet backend implements
// (spec.md §4.2).
type Connector interface {
	// Name is this connector's registry key, matching NodeRef.Connector.
	Name() string

	// ListNodes returns every node this connector currently knows
	// about, properties populated (architecture, os_family,
	// access_tags, and any connector-specific hints).
	ListNodes(ctx context.Context) ([]domain.Node, error)

	// Deploy prepares node for the given pipeline/environment — for
	// pkg/connector/k8s this is a no-op that returns nil without
	// contacting the cluster, since the real work (building the image) is
	// the compilation service's job; deploy is where a connector could
	// pre-stage a volume or secret if it needed to.
	Deploy(ctx context.Context, node domain.NodeRef, dep domain.Deployment) error

	// StartExecutors launches the executor process on node with the
	// given image and environment variables (spec.md §6, NETUNICORN_*).
	StartExecutors(ctx context.Context, node domain.NodeRef, image string, env map[string]string) (executorID string, err error)

	// StopExecutors tears down a single running executor.
	StopExecutors(ctx context.Context, node domain.NodeRef, executorID string) error

	// StopExperiment tears down every executor and staged resource this
	// connector holds for experimentID.
	StopExperiment(ctx context.Context, experimentID string) error

	// Cleanup removes any leftover resources (Pods, ConfigMaps, ...) for
	// experimentID, called once at the end of the processor's finish
	// task regardless of whether the experiment succeeded.
	Cleanup(ctx context.Context, experimentID string) error
}
