// ABOUTME: Static process configuration for the logwarden service.
// ABOUTME: Built-in defaults merged with an optional YAML file, flags, and env vars.

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the static process configuration. Runtime-tunable settings
// (classifier endpoint, intervals, prompt) live in the store instead.
type Config struct {
	Mode              string        // docker, kubernetes, or static
	Port              int           // HTTP API port
	DBPath            string        // SQLite database file
	ContainerListFile string        // static mode container list
	KubeNamespace     string        // kubernetes mode namespace, empty for all
	InitialDelay      time.Duration // delay before the first scheduled scan
	MockMode          bool          // substitute in-memory providers
}

// fileConfig mirrors Config for the YAML file. Pointer and string fields
// distinguish "absent" from zero values so the file only overrides what it
// sets.
type fileConfig struct {
	Mode              string `yaml:"mode"`
	Port              int    `yaml:"port"`
	DBPath            string `yaml:"db_path"`
	ContainerListFile string `yaml:"container_list_file"`
	KubeNamespace     string `yaml:"kube_namespace"`
	InitialDelay      string `yaml:"initial_delay"`
	Mock              *bool  `yaml:"mock"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Mode:         "docker",
		Port:         8080,
		DBPath:       "logwarden.db",
		InitialDelay: 15 * time.Second,
	}
}

// ApplyFile overlays the YAML file at path onto cfg. Fields absent from the
// file keep their current values.
func ApplyFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if file.Mode != "" {
		cfg.Mode = file.Mode
	}
	if file.Port != 0 {
		cfg.Port = file.Port
	}
	if file.DBPath != "" {
		cfg.DBPath = file.DBPath
	}
	if file.ContainerListFile != "" {
		cfg.ContainerListFile = file.ContainerListFile
	}
	if file.KubeNamespace != "" {
		cfg.KubeNamespace = file.KubeNamespace
	}
	if file.InitialDelay != "" {
		delay, err := time.ParseDuration(file.InitialDelay)
		if err != nil {
			return fmt.Errorf("parse initial_delay: %w", err)
		}
		cfg.InitialDelay = delay
	}
	if file.Mock != nil {
		cfg.MockMode = *file.Mock
	}

	return nil
}

// Validate checks configuration correctness. It does not mutate cfg.
func Validate(cfg *Config) error {
	if !cfg.MockMode {
		switch cfg.Mode {
		case "docker", "kubernetes":
		case "static":
			if cfg.ContainerListFile == "" {
				return errors.New("container_list_file is required for static mode")
			}
		default:
			return fmt.Errorf("unsupported mode %q (expected docker, kubernetes, or static)", cfg.Mode)
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port %d is out of range (1-65535)", cfg.Port)
	}
	if cfg.DBPath == "" {
		return errors.New("db_path cannot be empty")
	}
	if cfg.InitialDelay < 0 {
		return errors.New("initial_delay cannot be negative")
	}

	return nil
}
