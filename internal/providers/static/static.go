// ABOUTME: Static file-based inventory provider for development and testing purposes.
// ABOUTME: Reads container lists from a JSON file and tails their logs from local files.

package static

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/logwarden/logwarden/internal/types"
	"github.com/sirupsen/logrus"
)

// containerEntry is one element of the container list file
type containerEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	LogFile string `json:"log_file"`
}

// Provider implements InventoryProvider using a JSON container list file
type Provider struct {
	containerListFile string
	logger            *logrus.Logger

	// container id -> log file path, rebuilt on every ListRunning
	mu       sync.Mutex
	logFiles map[string]string
}

// NewProvider creates a new static file-based provider
func NewProvider(containerListFile string, logger *logrus.Logger) *Provider {
	return &Provider{
		containerListFile: containerListFile,
		logger:            logger,
		logFiles:          make(map[string]string),
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "static"
}

// ListRunning reads the container inventory from the JSON list file
func (p *Provider) ListRunning(ctx context.Context) ([]types.ContainerRef, error) {
	logger := p.logger.WithField("operation", "list_running_static")

	data, err := os.ReadFile(p.containerListFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read container list file '%s': %w", p.containerListFile, err)
	}

	var entries []containerEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse container list JSON: %w", err)
	}

	var refs []types.ContainerRef
	logFiles := make(map[string]string)
	for _, entry := range entries {
		if entry.ID == "" {
			continue
		}
		name := entry.Name
		if name == "" {
			name = entry.ID
		}
		refs = append(refs, types.ContainerRef{ID: entry.ID, Name: name})
		logFiles[entry.ID] = entry.LogFile
	}

	p.mu.Lock()
	p.logFiles = logFiles
	p.mu.Unlock()

	logger.WithField("container_count", len(refs)).Info("Read container list from file")
	return refs, nil
}

// FetchLogs returns the last tailLines lines of the container's log file.
// Containers listed without a log file yield empty logs.
func (p *Provider) FetchLogs(ctx context.Context, id string, tailLines int) (string, error) {
	p.mu.Lock()
	logFile, ok := p.logFiles[id]
	p.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown container id %q: not present in the last inventory", id)
	}
	if logFile == "" {
		return "", nil
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		return "", fmt.Errorf("failed to read log file '%s': %w", logFile, err)
	}

	return tail(string(data), tailLines), nil
}

// tail returns the last n lines of text
func tail(text string, n int) string {
	text = strings.TrimRight(text, "\n")
	if text == "" || n <= 0 {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
