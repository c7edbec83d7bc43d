// ABOUTME: Provider interfaces for container inventories and log classifiers.
// ABOUTME: Defines contracts for supporting multiple runtimes and classification backends.

package providers

import (
	"context"

	"github.com/logwarden/logwarden/internal/classify"
	"github.com/logwarden/logwarden/internal/types"
)

// InventoryProvider interface abstracts sources of running containers (Docker, Kubernetes, static files)
type InventoryProvider interface {
	Name() string
	ListRunning(ctx context.Context) ([]types.ContainerRef, error)
	FetchLogs(ctx context.Context, containerID string, tailLines int) (string, error)
}

// LogClassifier interface abstracts the text-classification backend
type LogClassifier interface {
	Name() string
	Classify(ctx context.Context, endpoint, model, promptTemplate, logs string) (classify.Result, error)
	Summarize(ctx context.Context, endpoint, model, prompt string) (string, error)
	ListModels(ctx context.Context, endpoint string) ([]string, error)
}
