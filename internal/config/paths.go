// Package config manages studyplan configuration and filesystem paths.
//
// Settings are resolved once at startup from, in increasing priority:
// built-in defaults, config.yaml in the studyplan root or the working
// directory, and STUDYPLAN_* environment variables. The default root is
// ~/.studyplan containing config.yaml and exports/.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths contains all the filesystem paths used by studyplan.
type Paths struct {
	// Root is the base directory for studyplan data (default: ~/.studyplan)
	Root string

	// Config is the path to the global config file
	Config string

	// Exports is the fallback directory for exported plans
	Exports string
}

// DefaultPaths returns the default paths for studyplan.
// Paths can be overridden with environment variables:
// - STUDYPLAN_ROOT: Override the root directory
func DefaultPaths() (*Paths, error) {
	root := os.Getenv("STUDYPLAN_ROOT")
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		root = filepath.Join(home, ".studyplan")
	}

	return &Paths{
		Root:    root,
		Config:  filepath.Join(root, "config.yaml"),
		Exports: filepath.Join(root, "exports"),
	}, nil
}

// EnsureDirectories creates all necessary directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.Root, p.Exports} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
