// Package domain holds the entity types shared by every component of the
// director and the executor: tasks, pipelines, nodes, deployments,
// experiments, compilations, executor records, locks and flags.
//
// Types in this package carry no storage or transport concerns; those
// live in pkg/store, pkg/connector, pkg/gateway and pkg/mediator.
package domain
