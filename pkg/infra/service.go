// Package infra fronts the connector registry with node locking
// (spec.md §4.4): node enumeration filtered by access tags, all-or-
// nothing lock acquisition, and parallel per-connector dispatch for
// deploy/start/stop. Grounded on the teacher's per-connector dispatch
// in pkg/workloads/k8s, generalized from one backend to N.
package infra

import (
	"context"
	"fmt"
	"sync"

	"github.com/netunicorn/netunicorn/pkg/connector"
	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/internal/semaphore"
	"github.com/netunicorn/netunicorn/pkg/store"
)

// Service is the infrastructure service: spec.md §4.4's list_nodes,
// deploy, start and stop operations.
type Service struct {
	registry *connector.Registry
	locks    store.LockInterface

	// maxParallel bounds how many connectors are dispatched to at
	// once; 0 means unbounded (one goroutine per owning connector).
	maxParallel int
}

func New(registry *connector.Registry, locks store.LockInterface, maxParallel int) *Service {
	return &Service{registry: registry, locks: locks, maxParallel: maxParallel}
}

// ListNodes enumerates every connector's fleet and keeps only the nodes
// visible to userTags (spec.md §4.4).
func (s *Service) ListNodes(ctx context.Context, userTags []string) ([]domain.Node, error) {
	var out []domain.Node
	for _, c := range s.registry.All() {
		nodes, err := c.ListNodes(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing nodes from connector %q: %w", c.Name(), err)
		}
		for _, n := range nodes {
			if n.VisibleTo(userTags) {
				out = append(out, n)
			}
		}
	}
	return out, nil
}

// DeployResult is one node's outcome from Deploy.
type DeployResult struct {
	Node  domain.NodeRef
	Error error
}

// Deploy claims locks for every node referenced by deployments and, iff
// the whole batch claims cleanly, fans out to each owning connector in
// parallel. On partial lock failure it claims nothing and returns the
// conflicts; on partial per-node deploy failure it still returns
// wholesale (spec.md §4.4: "no half-deployed experiments" refers to
// locking, not to individual connector errors, which are recorded per
// deployment by the caller).
func (s *Service) Deploy(ctx context.Context, username, experimentID string, deployments []domain.Deployment) ([]DeployResult, []domain.LockConflict, error) {
	nodes := make([]domain.NodeRef, 0, len(deployments))
	byNode := make(map[domain.NodeRef]domain.Deployment, len(deployments))
	for _, d := range deployments {
		nodes = append(nodes, d.Node)
		byNode[d.Node] = d
	}

	conflicts, err := s.locks.ClaimLocks(ctx, username, experimentID, nodes)
	if err != nil {
		return nil, nil, fmt.Errorf("claiming locks: %w", err)
	}
	if len(conflicts) > 0 {
		return nil, conflicts, nil
	}

	byConnector := make(map[string][]domain.Deployment)
	for _, d := range deployments {
		byConnector[d.Node.Connector] = append(byConnector[d.Node.Connector], d)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []DeployResult
	)
	sem := (*semaphore.Semaphore)(nil)
	if s.maxParallel > 0 {
		sem = semaphore.New(s.maxParallel)
	}

	for name, deps := range byConnector {
		c, ok := s.registry.Get(name)
		if !ok {
			mu.Lock()
			for _, d := range deps {
				results = append(results, DeployResult{Node: d.Node, Error: fmt.Errorf("unknown connector %q", name)})
			}
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(c connector.Connector, deps []domain.Deployment) {
			defer wg.Done()
			if sem != nil {
				if err := sem.Acquire(ctx); err != nil {
					mu.Lock()
					for _, d := range deps {
						results = append(results, DeployResult{Node: d.Node, Error: err})
					}
					mu.Unlock()
					return
				}
				defer sem.Release()
			}

			for _, d := range deps {
				err := c.Deploy(ctx, d.Node, d)
				mu.Lock()
				results = append(results, DeployResult{Node: d.Node, Error: err})
				mu.Unlock()
			}
		}(c, deps)
	}
	wg.Wait()

	return results, nil, nil
}

// Start instructs each deployment's owning connector to spin up an
// executor, provided the deployment is prepared (spec.md §4.4). imageFor
// resolves the tagged image to run -- a per-deployment lookup, not a
// single shared value, since two deployments in the same experiment can
// land on different architectures and therefore different compiled
// images (spec.md §3, "Compilation idempotence"). Returns one executor
// id per successfully started node.
func (s *Service) Start(
	ctx context.Context,
	deployments []domain.Deployment,
	imageFor func(domain.Deployment) (string, error),
	envFor func(domain.Deployment) map[string]string,
) (map[domain.NodeRef]string, map[domain.NodeRef]error) {
	ids := make(map[domain.NodeRef]string)
	errs := make(map[domain.NodeRef]error)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, d := range deployments {
		if !d.Prepared {
			mu.Lock()
			errs[d.Node] = fmt.Errorf("deployment for node %s is not prepared", d.Node.Name)
			mu.Unlock()
			continue
		}
		c, ok := s.registry.Get(d.Node.Connector)
		if !ok {
			mu.Lock()
			errs[d.Node] = fmt.Errorf("unknown connector %q", d.Node.Connector)
			mu.Unlock()
			continue
		}
		image, err := imageFor(d)
		if err != nil {
			mu.Lock()
			errs[d.Node] = err
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(c connector.Connector, d domain.Deployment, image string) {
			defer wg.Done()
			id, err := c.StartExecutors(ctx, d.Node, image, envFor(d))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[d.Node] = err
				return
			}
			ids[d.Node] = id
		}(c, d, image)
	}
	wg.Wait()
	return ids, errs
}

// Stop fans out StopExperiment to every connector referenced by
// deployments; locks are released separately by the processor once it
// observes terminal state (spec.md §4.4, §4.7).
func (s *Service) Stop(ctx context.Context, experimentID string, deployments []domain.Deployment) map[string]error {
	connectors := make(map[string]struct{})
	for _, d := range deployments {
		connectors[d.Node.Connector] = struct{}{}
	}

	errs := make(map[string]error)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for name := range connectors {
		c, ok := s.registry.Get(name)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(c connector.Connector) {
			defer wg.Done()
			if err := c.StopExperiment(ctx, experimentID); err != nil {
				mu.Lock()
				errs[c.Name()] = err
				mu.Unlock()
			}
		}(c)
	}
	wg.Wait()
	return errs
}
