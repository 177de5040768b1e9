package k8s

import (
	"context"
	"fmt"

	kubecore "k8s.io/api/core/v1"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/google/uuid"
	"github.com/netunicorn/netunicorn/pkg/domain"
)

// Options is this connector's YAML options block
// (pkg/config/director.ConnectorConfig.Options).
type Options struct {
	Namespace      string `yaml:"namespace"`
	KubeconfigPath string `yaml:"kubeconfig_path"`
}

const experimentLabel = "netunicorn.io/experiment-id"
const executorLabel = "netunicorn.io/executor-id"

type Connector struct {
	name      string
	namespace string
	client    client
}

func New(name string, opts Options) (*Connector, error) {
	cs, err := connect(opts.KubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to cluster: %w", err)
	}
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "default"
	}
	return &Connector{name: name, namespace: namespace, client: &clientset{c: cs}}, nil
}

func (c *Connector) Name() string { return c.name }

// ListNodes maps each Kubernetes Node object onto domain.Node: standard
// labels become architecture/os_family, and a netunicorn.io/access-tags
// label (comma-separated) becomes the node's access tags (spec.md §4.4).
func (c *Connector) ListNodes(ctx context.Context) ([]domain.Node, error) {
	nodes, err := c.client.ListNodes(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Node, 0, len(nodes))
	for _, n := range nodes {
		props := map[string]string{}
		if arch, ok := n.Labels["kubernetes.io/arch"]; ok {
			props[domain.PropertyArchitecture] = arch
		}
		if os, ok := n.Labels["kubernetes.io/os"]; ok {
			props[domain.PropertyOSFamily] = os
		}
		if tags, ok := n.Labels["netunicorn.io/access-tags"]; ok {
			props[domain.PropertyAccessTags] = tags
		}
		out = append(out, domain.Node{
			NodeRef:    domain.NodeRef{Name: n.Name, Connector: c.name},
			Properties: props,
		})
	}
	return out, nil
}

func (c *Connector) Deploy(ctx context.Context, node domain.NodeRef, dep domain.Deployment) error {
	return nil
}

// StartExecutors creates a single-container Pod running image, pinned
// to node via nodeName, with env injected as the NETUNICORN_* contract
// (spec.md §6). The pod's own name is the executor id; the caller (the
// mediator, which mints the executor's gateway token before this call)
// decides that id up front via env["NETUNICORN_EXECUTOR_ID"], since the
// token and the id it authenticates must agree.
func (c *Connector) StartExecutors(ctx context.Context, node domain.NodeRef, image string, env map[string]string) (string, error) {
	executorID := env["NETUNICORN_EXECUTOR_ID"]
	if executorID == "" {
		executorID = fmt.Sprintf("exec-%s", uuid.NewString())
		env["NETUNICORN_EXECUTOR_ID"] = executorID
	}

	var envVars []kubecore.EnvVar
	for k, v := range env {
		envVars = append(envVars, kubecore.EnvVar{Name: k, Value: v})
	}

	pod := &kubecore.Pod{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name: executorID,
			Labels: map[string]string{
				experimentLabel: env["NETUNICORN_EXPERIMENT_ID"],
				executorLabel:   executorID,
			},
		},
		Spec: kubecore.PodSpec{
			NodeName:      node.Name,
			RestartPolicy: kubecore.RestartPolicyNever,
			Containers: []kubecore.Container{
				{
					Name:  "executor",
					Image: image,
					Env:   envVars,
				},
			},
		},
	}

	if _, err := c.client.CreatePod(ctx, c.namespace, pod); err != nil {
		return "", err
	}
	return executorID, nil
}

func (c *Connector) StopExecutors(ctx context.Context, node domain.NodeRef, executorID string) error {
	return c.client.DeletePod(ctx, c.namespace, executorID)
}

func (c *Connector) StopExperiment(ctx context.Context, experimentID string) error {
	pods, err := c.client.ListPodsByLabel(ctx, c.namespace, fmt.Sprintf("%s=%s", experimentLabel, experimentID))
	if err != nil {
		return err
	}
	for _, p := range pods {
		if err := c.client.DeletePod(ctx, c.namespace, p.Name); err != nil {
			return err
		}
	}
	return nil
}

// Cleanup removes leftover Pods and ConfigMaps for experimentID, the
// supplemented behavior from original_source/ (SPEC_FULL.md §10).
func (c *Connector) Cleanup(ctx context.Context, experimentID string) error {
	if err := c.StopExperiment(ctx, experimentID); err != nil {
		return err
	}
	cms, err := c.client.ListConfigMapsByLabel(ctx, c.namespace, fmt.Sprintf("%s=%s", experimentLabel, experimentID))
	if err != nil {
		return err
	}
	for _, cm := range cms {
		if err := c.client.DeleteConfigMap(ctx, c.namespace, cm.Name); err != nil {
			return err
		}
	}
	return nil
}
