// ABOUTME: Kubernetes inventory provider for container discovery and log retrieval.
// ABOUTME: Lists running pod containers and fetches their logs using the Kubernetes API.

package kubernetes

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/logwarden/logwarden/internal/types"
	"github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// logTarget locates a container's logs inside the cluster
type logTarget struct {
	Namespace string
	Pod       string
	Container string
}

// Provider implements InventoryProvider for Kubernetes clusters
type Provider struct {
	clientset kubernetes.Interface
	namespace string // empty means all namespaces
	logger    *logrus.Logger

	// container id -> pod coordinates, rebuilt on every ListRunning
	mu      sync.Mutex
	targets map[string]logTarget
}

// NewProvider creates a Kubernetes inventory provider
func NewProvider(namespace string, logger *logrus.Logger) (*Provider, error) {
	var config *rest.Config
	var err error

	// Try in-cluster config first (for pod deployment)
	config, err = rest.InClusterConfig()
	if err != nil {
		// Fallback to kubeconfig (for local development)
		logger.Info("In-cluster config not available, trying kubeconfig")
		config, err = clientcmd.BuildConfigFromFlags("", clientcmd.RecommendedHomeFile)
		if err != nil {
			return nil, fmt.Errorf("failed to build kubernetes config: %w", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	logger.Info("Successfully connected to Kubernetes cluster")
	return &Provider{
		clientset: clientset,
		namespace: namespace,
		logger:    logger,
		targets:   make(map[string]logTarget),
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "kubernetes"
}

// ListRunning discovers running containers from pods and remembers how to
// reach their logs.
func (p *Provider) ListRunning(ctx context.Context) ([]types.ContainerRef, error) {
	logger := p.logger.WithField("operation", "list_running")

	pods, err := p.clientset.CoreV1().Pods(p.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	var refs []types.ContainerRef
	targets := make(map[string]logTarget)

	for _, pod := range pods.Items {
		if pod.Status.Phase != corev1.PodRunning {
			continue
		}
		for _, cs := range pod.Status.ContainerStatuses {
			if cs.State.Running == nil {
				continue
			}
			id := containerID(cs.ContainerID, pod.Namespace, pod.Name, cs.Name)
			refs = append(refs, types.ContainerRef{
				ID:   id,
				Name: pod.Name + "/" + cs.Name,
			})
			targets[id] = logTarget{
				Namespace: pod.Namespace,
				Pod:       pod.Name,
				Container: cs.Name,
			}
		}
	}

	p.mu.Lock()
	p.targets = targets
	p.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"pod_count":       len(pods.Items),
		"container_count": len(refs),
	}).Debug("Listed running pod containers")

	return refs, nil
}

// FetchLogs returns the last tailLines of a container's logs. The container
// must have appeared in the most recent ListRunning call.
func (p *Provider) FetchLogs(ctx context.Context, id string, tailLines int) (string, error) {
	p.mu.Lock()
	target, ok := p.targets[id]
	p.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown container id %q: not present in the last inventory", id)
	}

	tail := int64(tailLines)
	req := p.clientset.CoreV1().Pods(target.Namespace).GetLogs(target.Pod, &corev1.PodLogOptions{
		Container: target.Container,
		TailLines: &tail,
	})

	data, err := req.Do(ctx).Raw()
	if err != nil {
		return "", fmt.Errorf("fetch logs for %s/%s container %s: %w", target.Namespace, target.Pod, target.Container, err)
	}
	return string(data), nil
}

// containerID strips the runtime prefix ("containerd://...", "docker://...")
// from a Kubernetes container id, falling back to pod coordinates when the
// status carries no id yet.
func containerID(raw, namespace, pod, container string) string {
	if raw != "" {
		if idx := strings.Index(raw, "://"); idx >= 0 {
			return raw[idx+3:]
		}
		return raw
	}
	return namespace + "/" + pod + "/" + container
}
