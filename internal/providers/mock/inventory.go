// ABOUTME: Mock inventory provider for local testing and development.
// ABOUTME: Serves a fixed fleet of containers with deterministic logs.

package mock

import (
	"context"
	"fmt"
	"strings"

	"github.com/logwarden/logwarden/internal/types"
	"github.com/sirupsen/logrus"
)

// Inventory implements InventoryProvider with canned data
type Inventory struct {
	logger *logrus.Logger
}

// NewInventory creates a new mock inventory provider
func NewInventory(logger *logrus.Logger) *Inventory {
	return &Inventory{
		logger: logger,
	}
}

// Name returns the name of this inventory provider
func (m *Inventory) Name() string {
	return "mock"
}

// mockContainers simulates a small mixed fleet: mostly healthy workloads,
// one with database errors and one with upstream timeouts.
var mockContainers = []struct {
	ref  types.ContainerRef
	logs string
}{
	{
		ref: types.ContainerRef{ID: "mock-web-0001", Name: "web-frontend"},
		logs: `INFO: Server listening on :8080
INFO: Loaded 42 routes
INFO: Health check passed
INFO: GET /index.html 200 3ms`,
	},
	{
		ref: types.ContainerRef{ID: "mock-api-0002", Name: "api-backend"},
		logs: `INFO: Connecting to database at postgres-db:5432
ERROR: Database connection refused: postgres-db:5432
INFO: Retrying in 5s
ERROR: Database connection refused: postgres-db:5432`,
	},
	{
		ref: types.ContainerRef{ID: "mock-db-0003", Name: "postgres-db"},
		logs: `LOG: database system is ready to accept connections
WARNING: checkpoints are occurring too frequently (25 seconds apart)
WARNING: checkpoints are occurring too frequently (19 seconds apart)`,
	},
	{
		ref: types.ContainerRef{ID: "mock-worker-0004", Name: "worker-service"},
		logs: `INFO: Worker pool started with 4 workers
INFO: Processed batch of 128 jobs
INFO: Queue depth: 0`,
	},
	{
		ref: types.ContainerRef{ID: "mock-proxy-0005", Name: "nginx-proxy"},
		logs: `10.0.0.7 - - "GET /api/v1/users HTTP/1.1" 200 512
upstream timed out (110: Connection timed out) while reading response header from upstream
10.0.0.9 - - "GET /api/v1/orders HTTP/1.1" 504 0`,
	},
}

// ListRunning returns the fixed mock fleet
func (m *Inventory) ListRunning(ctx context.Context) ([]types.ContainerRef, error) {
	refs := make([]types.ContainerRef, 0, len(mockContainers))
	for _, c := range mockContainers {
		refs = append(refs, c.ref)
	}

	m.logger.WithField("container_count", len(refs)).Info("Mock container discovery completed")
	return refs, nil
}

// FetchLogs returns the last tailLines of a mock container's canned logs
func (m *Inventory) FetchLogs(ctx context.Context, id string, tailLines int) (string, error) {
	for _, c := range mockContainers {
		if c.ref.ID != id {
			continue
		}
		lines := strings.Split(c.logs, "\n")
		if tailLines > 0 && len(lines) > tailLines {
			lines = lines[len(lines)-tailLines:]
		}
		return strings.Join(lines, "\n"), nil
	}
	return "", fmt.Errorf("unknown mock container id %q", id)
}
