// Package mock is an in-memory Connector for tests and local
// development without a real cluster, the same role the teacher's
// pkg/domain/run/k8s/mock plays for run workers.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/netunicorn/netunicorn/pkg/domain"
)

type running struct {
	node         domain.NodeRef
	experimentID string
	image        string
	env          map[string]string
}

type Connector struct {
	name string

	mu       sync.Mutex
	nodes    []domain.Node
	executors map[string]running // by executor id
}

func New(name string) *Connector {
	return &Connector{
		name: name,
		nodes: []domain.Node{
			{
				NodeRef:    domain.NodeRef{Name: "mock-node-1", Connector: name},
				Properties: map[string]string{domain.PropertyArchitecture: "amd64", domain.PropertyOSFamily: "linux"},
			},
			{
				NodeRef:    domain.NodeRef{Name: "mock-node-2", Connector: name},
				Properties: map[string]string{domain.PropertyArchitecture: "arm64", domain.PropertyOSFamily: "linux"},
			},
		},
		executors: map[string]running{},
	}
}

func (c *Connector) Name() string { return c.name }

func (c *Connector) ListNodes(ctx context.Context) ([]domain.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Node(nil), c.nodes...), nil
}

func (c *Connector) Deploy(ctx context.Context, node domain.NodeRef, dep domain.Deployment) error {
	return nil
}

func (c *Connector) StartExecutors(ctx context.Context, node domain.NodeRef, image string, env map[string]string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := env["NETUNICORN_EXECUTOR_ID"]
	if id == "" {
		id = uuid.NewString()
	}
	c.executors[id] = running{
		node:         node,
		experimentID: env["NETUNICORN_EXPERIMENT_ID"],
		image:        image,
		env:          env,
	}
	return id, nil
}

func (c *Connector) StopExecutors(ctx context.Context, node domain.NodeRef, executorID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.executors[executorID]; !ok {
		return fmt.Errorf("mock connector %s: unknown executor %s", c.name, executorID)
	}
	delete(c.executors, executorID)
	return nil
}

func (c *Connector) StopExperiment(ctx context.Context, experimentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, r := range c.executors {
		if r.experimentID == experimentID {
			delete(c.executors, id)
		}
	}
	return nil
}

func (c *Connector) Cleanup(ctx context.Context, experimentID string) error {
	return c.StopExperiment(ctx, experimentID)
}
