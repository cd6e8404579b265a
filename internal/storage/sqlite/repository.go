package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pizzafeed/importer/internal/models"
	"github.com/pizzafeed/importer/internal/storage"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db *gorm.DB
}

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" && dsn != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.Content{},
		&models.ImportSource{},
		&models.ImportRunLog{},
	)
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Content operations

func (r *Repository) CreateContent(ctx context.Context, content *models.Content) error {
	return r.db.WithContext(ctx).Create(content).Error
}

// ContentExists checks for an existing record by exact media URL or, when
// sourceURL is non-empty, by the canonical source link. Intentionally a cheap
// equality lookup, not fuzzy matching.
func (r *Repository) ContentExists(ctx context.Context, url, sourceURL string) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Content{})
	if sourceURL != "" {
		query = query.Where("url = ? OR source_url = ?", url, sourceURL)
	} else {
		query = query.Where("url = ?", url)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) ListContent(ctx context.Context, filter storage.ContentFilter) ([]*models.Content, error) {
	var items []*models.Content
	query := r.db.WithContext(ctx).Model(&models.Content{})

	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Platform != nil {
		query = query.Where("platform = ?", *filter.Platform)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	// Ordering
	orderCol := "created_at"
	if filter.OrderBy != "" {
		orderCol = filter.OrderBy
	}
	if filter.OrderDesc {
		query = query.Order(orderCol + " DESC")
	} else {
		query = query.Order(orderCol + " ASC")
	}

	// Pagination
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Repository) ContentStats(ctx context.Context) (*storage.ContentStats, error) {
	stats := &storage.ContentStats{
		ByType:     make(map[models.ContentType]int64),
		ByPlatform: make(map[models.Platform]int64),
		ByStatus:   make(map[models.ContentStatus]int64),
	}

	db := r.db.WithContext(ctx).Model(&models.Content{})
	if err := db.Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Content{}).
		Where("is_viral = ?", true).Count(&stats.ViralCount).Error; err != nil {
		return nil, err
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var byType []bucket
	if err := r.db.WithContext(ctx).Model(&models.Content{}).
		Select("type as key, count(*) as count").Group("type").Scan(&byType).Error; err != nil {
		return nil, err
	}
	for _, b := range byType {
		stats.ByType[models.ContentType(b.Key)] = b.Count
	}

	var byPlatform []bucket
	if err := r.db.WithContext(ctx).Model(&models.Content{}).
		Select("platform as key, count(*) as count").Group("platform").Scan(&byPlatform).Error; err != nil {
		return nil, err
	}
	for _, b := range byPlatform {
		stats.ByPlatform[models.Platform(b.Key)] = b.Count
	}

	var byStatus []bucket
	if err := r.db.WithContext(ctx).Model(&models.Content{}).
		Select("status as key, count(*) as count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, b := range byStatus {
		stats.ByStatus[models.ContentStatus(b.Key)] = b.Count
	}

	return stats, nil
}

// Import run log operations

func (r *Repository) CreateRunLog(ctx context.Context, run *models.ImportRunLog) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *Repository) UpdateRunLog(ctx context.Context, run *models.ImportRunLog) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *Repository) ListRunLogs(ctx context.Context, filter storage.RunLogFilter) ([]*models.ImportRunLog, error) {
	var runs []*models.ImportRunLog
	query := r.db.WithContext(ctx).Model(&models.ImportRunLog{})

	if filter.SourceName != nil {
		query = query.Where("source_name = ?", *filter.SourceName)
	}
	if filter.Platform != nil {
		query = query.Where("platform = ?", *filter.Platform)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	query = query.Order("started_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// FailStaleRuns marks run logs left in the running state longer than
// olderThan as failed. A process killed mid-run leaves its log running
// forever; the next run for the same source takes it over here.
func (r *Repository) FailStaleRuns(ctx context.Context, sourceName string, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.ImportRunLog{}).
		Where("source_name = ? AND status = ? AND started_at < ?", sourceName, models.RunStatusRunning, cutoff).
		Updates(map[string]interface{}{
			"status":        models.RunStatusFailed,
			"error_message": "superseded: run never finalized",
			"completed_at":  now,
		})
	return result.RowsAffected, result.Error
}

// Import source operations

func (r *Repository) GetImportSources(ctx context.Context) ([]*models.ImportSource, error) {
	var sources []*models.ImportSource
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

func (r *Repository) GetImportSourceByName(ctx context.Context, name string) (*models.ImportSource, error) {
	var source models.ImportSource
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&source).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &source, nil
}

func (r *Repository) SaveImportSource(ctx context.Context, source *models.ImportSource) error {
	// Upsert - update if exists, create if not
	var existing models.ImportSource
	if err := r.db.WithContext(ctx).Where("name = ?", source.Name).First(&existing).Error; err == nil {
		source.ID = existing.ID
	}
	return r.db.WithContext(ctx).Save(source).Error
}

func (r *Repository) TouchImportSource(ctx context.Context, name string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ImportSource{}).
		Where("name = ?", name).
		Update("last_fetch_at", at).Error
}

func (r *Repository) SetImportSourceActive(ctx context.Context, name string, active bool) error {
	result := r.db.WithContext(ctx).Model(&models.ImportSource{}).
		Where("name = ?", name).
		Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("import source not found: %s", name)
	}
	return nil
}
