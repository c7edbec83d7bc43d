// ABOUTME: Factory for creating inventory providers and log classifiers.
// ABOUTME: Centralizes provider instantiation and configuration logic.

package providers

import (
	"fmt"

	"github.com/logwarden/logwarden/internal/providers/docker"
	"github.com/logwarden/logwarden/internal/providers/kubernetes"
	"github.com/logwarden/logwarden/internal/providers/mock"
	"github.com/logwarden/logwarden/internal/providers/ollama"
	"github.com/logwarden/logwarden/internal/providers/static"
	"github.com/sirupsen/logrus"
)

// ProviderConfig holds configuration for creating providers
type ProviderConfig struct {
	Mode              string
	ContainerListFile string
	KubeNamespace     string
	MockMode          bool // Enable mock providers for local testing
}

// CreateInventoryProvider creates an inventory provider based on configuration
func CreateInventoryProvider(config *ProviderConfig, logger *logrus.Logger) (InventoryProvider, error) {
	// Check for mock mode first
	if config.MockMode {
		logger.Info("Using mock inventory provider for testing")
		return mock.NewInventory(logger), nil
	}

	switch config.Mode {
	case "docker":
		return docker.NewProvider(logger)
	case "kubernetes":
		return kubernetes.NewProvider(config.KubeNamespace, logger)
	case "static":
		return static.NewProvider(config.ContainerListFile, logger), nil
	default:
		return nil, fmt.Errorf("unsupported mode: %s", config.Mode)
	}
}

// CreateLogClassifier creates a log classifier based on configuration
func CreateLogClassifier(config *ProviderConfig, logger *logrus.Logger) (LogClassifier, error) {
	// Check for mock mode first
	if config.MockMode {
		logger.Info("Using mock classifier for testing")
		return mock.NewClassifier(logger), nil
	}

	return ollama.NewClient(logger), nil
}
