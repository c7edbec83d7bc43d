// ABOUTME: Docker Engine inventory provider for container discovery and log retrieval.
// ABOUTME: Talks to the local Docker daemon through the official client.

package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/logwarden/logwarden/internal/types"
	"github.com/sirupsen/logrus"
)

// dockerAPI is the slice of the Docker client this provider needs
type dockerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
}

// Provider implements InventoryProvider against the Docker Engine API
type Provider struct {
	cli    dockerAPI
	logger *logrus.Logger
}

// NewProvider creates a Docker provider from the environment (DOCKER_HOST etc.)
func NewProvider(logger *logrus.Logger) (*Provider, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	logger.Info("Connected to Docker daemon")
	return &Provider{
		cli:    cli,
		logger: logger,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "docker"
}

// ListRunning returns the currently running containers
func (p *Provider) ListRunning(ctx context.Context) ([]types.ContainerRef, error) {
	logger := p.logger.WithField("operation", "list_running")

	containers, err := p.cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	refs := make([]types.ContainerRef, 0, len(containers))
	for _, c := range containers {
		refs = append(refs, types.ContainerRef{
			ID:   c.ID,
			Name: displayName(c.Names, c.ID),
		})
	}

	logger.WithField("container_count", len(refs)).Debug("Listed running containers")
	return refs, nil
}

// FetchLogs returns the last tailLines of a container's stdout and stderr
func (p *Provider) FetchLogs(ctx context.Context, containerID string, tailLines int) (string, error) {
	opts := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tailLines),
	}
	rc, err := p.cli.ContainerLogs(ctx, containerID, opts)
	if err != nil {
		return "", fmt.Errorf("container logs %q: %w", containerID, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read container logs %q: %w", containerID, err)
	}

	return string(bytes.TrimSpace(demultiplexLogs(data))), nil
}

func displayName(names []string, id string) string {
	if len(names) > 0 && names[0] != "" {
		return strings.TrimPrefix(names[0], "/")
	}
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// demultiplexLogs strips docker stream framing (8-byte header per chunk).
// Containers started with a TTY emit an unframed stream and pass through.
func demultiplexLogs(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	// Frame headers start with the stream byte 0 (stdin), 1 (stdout), or 2 (stderr).
	if data[0] > 2 {
		return data
	}

	var clean []byte
	for len(data) >= 8 {
		size := int(data[4])<<24 | int(data[5])<<16 | int(data[6])<<8 | int(data[7])
		data = data[8:]
		if size > len(data) {
			size = len(data)
		}
		clean = append(clean, data[:size]...)
		data = data[size:]
	}
	return clean
}
