package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pizzafeed/importer/internal/models"
)

// Repository defines the interface for data persistence. It is the only
// component that talks to the backing store.
type Repository interface {
	// Content operations
	CreateContent(ctx context.Context, content *models.Content) error
	ContentExists(ctx context.Context, url, sourceURL string) (bool, error)
	ListContent(ctx context.Context, filter ContentFilter) ([]*models.Content, error)
	ContentStats(ctx context.Context) (*ContentStats, error)

	// Import run log operations
	CreateRunLog(ctx context.Context, run *models.ImportRunLog) error
	UpdateRunLog(ctx context.Context, run *models.ImportRunLog) error
	ListRunLogs(ctx context.Context, filter RunLogFilter) ([]*models.ImportRunLog, error)
	FailStaleRuns(ctx context.Context, sourceName string, olderThan time.Duration) (int64, error)

	// Import source operations
	GetImportSources(ctx context.Context) ([]*models.ImportSource, error)
	GetImportSourceByName(ctx context.Context, name string) (*models.ImportSource, error)
	SaveImportSource(ctx context.Context, source *models.ImportSource) error
	TouchImportSource(ctx context.Context, name string, at time.Time) error
	SetImportSourceActive(ctx context.Context, name string, active bool) error

	// Maintenance
	Migrate() error
	Close() error
}

// ContentFilter defines filtering options for content listings
type ContentFilter struct {
	Type      *models.ContentType
	Platform  *models.Platform
	Status    *models.ContentStatus
	Limit     int
	Offset    int
	OrderBy   string // "created_at"
	OrderDesc bool
}

// RunLogFilter defines filtering options for import run logs
type RunLogFilter struct {
	SourceName *string
	Platform   *models.Platform
	Status     *models.RunStatus
	Limit      int
}

// ContentStats aggregates stored content for operator reporting
type ContentStats struct {
	Total      int64
	ByType     map[models.ContentType]int64
	ByPlatform map[models.Platform]int64
	ByStatus   map[models.ContentStatus]int64
	ViralCount int64
}

// DefaultContentFilter returns a filter with sensible defaults
func DefaultContentFilter() ContentFilter {
	return ContentFilter{
		Limit:     50,
		OrderBy:   "created_at",
		OrderDesc: true,
	}
}

// IsConflict reports whether err is a uniqueness-constraint violation. The
// importer classifies these as "skipped (duplicate)", never as errors, so
// that re-running an import is idempotent.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// The pure-Go sqlite driver surfaces constraint failures as plain errors.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
