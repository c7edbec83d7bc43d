// ABOUTME: Tests for the Kubernetes inventory provider.
// ABOUTME: Uses the fake clientset to verify discovery and log fetching.

package kubernetes

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func runningPod(namespace, name string, containers ...corev1.ContainerStatus) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
		Status: corev1.PodStatus{
			Phase:             corev1.PodRunning,
			ContainerStatuses: containers,
		},
	}
}

func runningContainer(name, id string) corev1.ContainerStatus {
	return corev1.ContainerStatus{
		Name:        name,
		ContainerID: id,
		State: corev1.ContainerState{
			Running: &corev1.ContainerStateRunning{},
		},
	}
}

func TestProviderName(t *testing.T) {
	provider := &Provider{logger: testLogger(), targets: make(map[string]logTarget)}
	assert.Equal(t, "kubernetes", provider.Name())
}

func TestListRunning(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		runningPod("default", "web-7f9b",
			runningContainer("app", "containerd://abc123def456"),
			runningContainer("sidecar", "containerd://feedbeef0001"),
		),
		runningPod("monitoring", "agent-x2k",
			runningContainer("agent", "docker://cafe00112233"),
		),
		&corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{Name: "done-pod", Namespace: "default"},
			Status: corev1.PodStatus{
				Phase: corev1.PodSucceeded,
				ContainerStatuses: []corev1.ContainerStatus{
					runningContainer("finished", "containerd://dead00000000"),
				},
			},
		},
	)

	provider := &Provider{
		clientset: clientset,
		namespace: "",
		logger:    testLogger(),
		targets:   make(map[string]logTarget),
	}

	refs, err := provider.ListRunning(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 3)

	byID := make(map[string]string)
	for _, ref := range refs {
		byID[ref.ID] = ref.Name
	}
	assert.Equal(t, "web-7f9b/app", byID["abc123def456"])
	assert.Equal(t, "web-7f9b/sidecar", byID["feedbeef0001"])
	assert.Equal(t, "agent-x2k/agent", byID["cafe00112233"])
}

func TestListRunningSkipsStoppedContainers(t *testing.T) {
	waiting := corev1.ContainerStatus{
		Name:        "init-ish",
		ContainerID: "containerd://0123456789ab",
		State: corev1.ContainerState{
			Waiting: &corev1.ContainerStateWaiting{Reason: "CrashLoopBackOff"},
		},
	}
	clientset := fake.NewSimpleClientset(
		runningPod("default", "mixed-pod",
			runningContainer("app", "containerd://abc123def456"),
			waiting,
		),
	)

	provider := &Provider{
		clientset: clientset,
		logger:    testLogger(),
		targets:   make(map[string]logTarget),
	}

	refs, err := provider.ListRunning(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "abc123def456", refs[0].ID)
}

func TestListRunningFallbackID(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		runningPod("default", "fresh-pod", runningContainer("app", "")),
	)

	provider := &Provider{
		clientset: clientset,
		logger:    testLogger(),
		targets:   make(map[string]logTarget),
	}

	refs, err := provider.ListRunning(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "default/fresh-pod/app", refs[0].ID)
}

func TestFetchLogs(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		runningPod("default", "web-7f9b", runningContainer("app", "containerd://abc123def456")),
	)

	provider := &Provider{
		clientset: clientset,
		logger:    testLogger(),
		targets:   make(map[string]logTarget),
	}

	_, err := provider.ListRunning(context.Background())
	require.NoError(t, err)

	// The fake clientset serves a canned body for pod log requests.
	logs, err := provider.FetchLogs(context.Background(), "abc123def456", 50)
	require.NoError(t, err)
	assert.Equal(t, "fake logs", logs)
}

func TestFetchLogsUnknownContainer(t *testing.T) {
	provider := &Provider{
		clientset: fake.NewSimpleClientset(),
		logger:    testLogger(),
		targets:   make(map[string]logTarget),
	}

	_, err := provider.FetchLogs(context.Background(), "no-such-id", 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown container id")
}

func TestContainerID(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"containerd prefix", "containerd://abc123", "abc123"},
		{"docker prefix", "docker://def456", "def456"},
		{"no prefix", "bare-id", "bare-id"},
		{"empty falls back to coordinates", "", "ns/pod/ctr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, containerID(tt.raw, "ns", "pod", "ctr"))
		})
	}
}
