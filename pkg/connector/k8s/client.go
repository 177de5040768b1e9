// Package k8s is the real Connector implementation (spec.md §4.2),
// grounded directly on the teacher's pkg/workloads/k8s wrapper idiom
// (a narrow interface over *kubernetes.Clientset, easier to fake than
// the method-chained client) and pkg/utils/kubeutil's kubeconfig
// discovery order.
package k8s

import (
	"context"
	"os"
	"path/filepath"

	kubecore "k8s.io/api/core/v1"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// client is the subset of *kubernetes.Clientset this connector needs.
type client interface {
	ListNodes(ctx context.Context) ([]kubecore.Node, error)
	CreatePod(ctx context.Context, namespace string, pod *kubecore.Pod) (*kubecore.Pod, error)
	GetPod(ctx context.Context, namespace, name string) (*kubecore.Pod, error)
	DeletePod(ctx context.Context, namespace, name string) error
	ListPodsByLabel(ctx context.Context, namespace, label string) ([]kubecore.Pod, error)
	CreateConfigMap(ctx context.Context, namespace string, cm *kubecore.ConfigMap) (*kubecore.ConfigMap, error)
	DeleteConfigMap(ctx context.Context, namespace, name string) error
	ListConfigMapsByLabel(ctx context.Context, namespace, label string) ([]kubecore.ConfigMap, error)
}

type clientset struct {
	c *kubernetes.Clientset
}

var _ client = &clientset{}

func (k *clientset) ListNodes(ctx context.Context) ([]kubecore.Node, error) {
	resp, err := k.c.CoreV1().Nodes().List(ctx, kubeapimeta.ListOptions{})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (k *clientset) CreatePod(ctx context.Context, namespace string, pod *kubecore.Pod) (*kubecore.Pod, error) {
	return k.c.CoreV1().Pods(namespace).Create(ctx, pod, kubeapimeta.CreateOptions{})
}

func (k *clientset) GetPod(ctx context.Context, namespace, name string) (*kubecore.Pod, error) {
	return k.c.CoreV1().Pods(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *clientset) DeletePod(ctx context.Context, namespace, name string) error {
	return k.c.CoreV1().Pods(namespace).Delete(ctx, name, *kubeapimeta.NewDeleteOptions(0))
}

func (k *clientset) ListPodsByLabel(ctx context.Context, namespace, label string) ([]kubecore.Pod, error) {
	resp, err := k.c.CoreV1().Pods(namespace).List(ctx, kubeapimeta.ListOptions{LabelSelector: label})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (k *clientset) CreateConfigMap(ctx context.Context, namespace string, cm *kubecore.ConfigMap) (*kubecore.ConfigMap, error) {
	return k.c.CoreV1().ConfigMaps(namespace).Create(ctx, cm, kubeapimeta.CreateOptions{})
}

func (k *clientset) DeleteConfigMap(ctx context.Context, namespace, name string) error {
	return k.c.CoreV1().ConfigMaps(namespace).Delete(ctx, name, *kubeapimeta.NewDeleteOptions(0))
}

func (k *clientset) ListConfigMapsByLabel(ctx context.Context, namespace, label string) ([]kubecore.ConfigMap, error) {
	resp, err := k.c.CoreV1().ConfigMaps(namespace).List(ctx, kubeapimeta.ListOptions{LabelSelector: label})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// connect discovers a kubeconfig the same way the teacher's
// kubeutil.ConnectToK8s does: explicit path, else ~/.kube/config if it
// exists; a non-empty KUBECONFIG env var overrides either of those; with
// no path at all, in-cluster config is the last resort.
func connect(kubeconfigPath string) (*kubernetes.Clientset, error) {
	path := kubeconfigPath
	if path == "" {
		if home := homedir.HomeDir(); home != "" {
			candidate := filepath.Join(home, ".kube", "config")
			if s, err := os.Stat(candidate); err == nil && !s.IsDir() {
				path = candidate
			}
		}
	}
	if k := os.Getenv("KUBECONFIG"); k != "" {
		path = k
	}

	var config *rest.Config
	var err error
	if path == "" {
		config, err = rest.InClusterConfig()
	} else {
		config, err = clientcmd.BuildConfigFromFlags("", path)
	}
	if err != nil {
		return nil, err
	}

	return kubernetes.NewForConfig(config)
}
