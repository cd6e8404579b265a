package source

import (
	"context"

	"github.com/pizzafeed/importer/internal/models"
)

// Item is one raw upstream item in its platform's own shape. Normalize maps
// it to the canonical content record and must be pure and deterministic: no
// I/O, same input gives the same output. A nil result means "skip" (no
// usable media URL, off topic, or marked removed/adult/text-only) and is
// never an error.
type Item interface {
	Normalize() *models.Content
}

// Source defines the interface for content import sources
type Source interface {
	// Name returns the unique name of this source (e.g. "reddit/Pizza")
	Name() string

	// Platform returns the platform tag stamped on every record
	Platform() models.Platform

	// Fetch retrieves raw items from the platform in upstream order
	Fetch(ctx context.Context) ([]Item, error)

	// HealthCheck verifies the source is accessible
	HealthCheck(ctx context.Context) error
}

// Manager manages the registered import sources
type Manager struct {
	sources []Source
}

// NewManager creates a new source manager
func NewManager() *Manager {
	return &Manager{
		sources: make([]Source, 0),
	}
}

// Register adds a source to the manager
func (m *Manager) Register(source Source) {
	m.sources = append(m.sources, source)
}

// GetSources returns all registered sources in registration order
func (m *Manager) GetSources() []Source {
	return m.sources
}

// GetSourceByName returns a source by name
func (m *Manager) GetSourceByName(name string) Source {
	for _, s := range m.sources {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// GetSourcesByPlatform returns all sources for a given platform
func (m *Manager) GetSourcesByPlatform(platform models.Platform) []Source {
	var result []Source
	for _, s := range m.sources {
		if s.Platform() == platform {
			result = append(result, s)
		}
	}
	return result
}
