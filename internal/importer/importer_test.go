package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pizzafeed/importer/internal/models"
	"github.com/pizzafeed/importer/internal/source"
	"github.com/pizzafeed/importer/internal/storage"
	"github.com/pizzafeed/importer/pkg/logger"
)

// fakeItem is a prebuilt normalization result. A nil record models an item
// the normalizer filters out.
type fakeItem struct {
	record *models.Content
}

func (f *fakeItem) Normalize() *models.Content {
	if f.record == nil {
		return nil
	}
	clone := *f.record
	return &clone
}

type fakeSource struct {
	name     string
	platform models.Platform
	items    []source.Item
	fetchErr error
}

func (f *fakeSource) Name() string                          { return f.name }
func (f *fakeSource) Platform() models.Platform             { return f.platform }
func (f *fakeSource) HealthCheck(ctx context.Context) error { return f.fetchErr }
func (f *fakeSource) Fetch(ctx context.Context) ([]source.Item, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.items, nil
}

// fakeRepo is an in-memory storage.Repository with injectable failures
type fakeRepo struct {
	contents  []*models.Content
	runLogs   []*models.ImportRunLog
	touched   map[string]time.Time
	staleArgs []string

	existsErr    error
	createErrFor map[string]error
	nextRunID    uint
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		touched:      make(map[string]time.Time),
		createErrFor: make(map[string]error),
	}
}

func (r *fakeRepo) CreateContent(ctx context.Context, content *models.Content) error {
	if err := r.createErrFor[content.URL]; err != nil {
		return err
	}
	for _, c := range r.contents {
		if c.URL == content.URL {
			return errors.New("UNIQUE constraint failed: contents.url")
		}
	}
	r.contents = append(r.contents, content)
	return nil
}

func (r *fakeRepo) ContentExists(ctx context.Context, url, sourceURL string) (bool, error) {
	if r.existsErr != nil {
		return false, r.existsErr
	}
	for _, c := range r.contents {
		if c.URL == url || c.SourceURL == sourceURL {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) ListContent(ctx context.Context, filter storage.ContentFilter) ([]*models.Content, error) {
	return r.contents, nil
}

func (r *fakeRepo) ContentStats(ctx context.Context) (*storage.ContentStats, error) {
	return &storage.ContentStats{Total: int64(len(r.contents))}, nil
}

func (r *fakeRepo) CreateRunLog(ctx context.Context, run *models.ImportRunLog) error {
	r.nextRunID++
	run.ID = r.nextRunID
	clone := *run
	r.runLogs = append(r.runLogs, &clone)
	return nil
}

func (r *fakeRepo) UpdateRunLog(ctx context.Context, run *models.ImportRunLog) error {
	for i, existing := range r.runLogs {
		if existing.ID == run.ID {
			clone := *run
			r.runLogs[i] = &clone
			return nil
		}
	}
	return errors.New("run log not found")
}

func (r *fakeRepo) ListRunLogs(ctx context.Context, filter storage.RunLogFilter) ([]*models.ImportRunLog, error) {
	return r.runLogs, nil
}

func (r *fakeRepo) FailStaleRuns(ctx context.Context, sourceName string, olderThan time.Duration) (int64, error) {
	r.staleArgs = append(r.staleArgs, sourceName)
	return 0, nil
}

func (r *fakeRepo) GetImportSources(ctx context.Context) ([]*models.ImportSource, error) {
	return nil, nil
}

func (r *fakeRepo) GetImportSourceByName(ctx context.Context, name string) (*models.ImportSource, error) {
	return nil, nil
}

func (r *fakeRepo) SaveImportSource(ctx context.Context, source *models.ImportSource) error {
	return nil
}

func (r *fakeRepo) TouchImportSource(ctx context.Context, name string, at time.Time) error {
	r.touched[name] = at
	return nil
}

func (r *fakeRepo) SetImportSourceActive(ctx context.Context, name string, active bool) error {
	return nil
}

func (r *fakeRepo) Migrate() error { return nil }
func (r *fakeRepo) Close() error   { return nil }

var _ storage.Repository = (*fakeRepo)(nil)

func record(url string) *models.Content {
	return &models.Content{
		Type:      models.ContentTypeMeme,
		Title:     "Pizza " + url,
		URL:       url,
		SourceURL: url + "/page",
		Platform:  models.PlatformReddit,
	}
}

func newTestImporter(repo *fakeRepo, opts Options) *Importer {
	return New(repo, opts, logger.Nop())
}

func TestRunCountersReconcile(t *testing.T) {
	repo := newFakeRepo()
	repo.contents = append(repo.contents, record("https://x/dup.jpg"))
	repo.createErrFor["https://x/broken.jpg"] = errors.New("disk full")

	src := &fakeSource{
		name:     "reddit/food",
		platform: models.PlatformReddit,
		items: []source.Item{
			&fakeItem{record: record("https://x/a.jpg")},
			&fakeItem{record: record("https://x/b.jpg")},
			&fakeItem{record: nil},
			&fakeItem{record: record("https://x/dup.jpg")},
			&fakeItem{record: record("https://x/broken.jpg")},
		},
	}

	summary, err := newTestImporter(repo, Options{}).Run(context.Background(), src)
	require.NoError(t, err, "item-level problems never fail the run")

	assert.Equal(t, models.RunStatusCompleted, summary.Status)
	assert.Equal(t, 5, summary.ItemsFound)
	assert.Equal(t, 2, summary.ItemsImported)
	assert.Equal(t, 1, summary.SkippedFiltered)
	assert.Equal(t, 1, summary.SkippedDuplicate)
	assert.Equal(t, 1, summary.ItemsErrored)
	assert.Equal(t, summary.ItemsFound, summary.ItemsImported+summary.ItemsSkipped()+summary.ItemsErrored)

	require.Len(t, repo.runLogs, 1)
	run := repo.runLogs[0]
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 5, run.ItemsFound)
	assert.Equal(t, 2, run.ItemsImported)
	assert.Equal(t, 2, run.ItemsSkipped)
	assert.Equal(t, 1, run.ItemsErrored)
	assert.Empty(t, run.ErrorMessage)
	require.NotNil(t, run.CompletedAt)

	assert.Equal(t, []string{"reddit/food"}, repo.staleArgs, "stale runs are reaped before a new run starts")
	assert.Contains(t, repo.touched, "reddit/food")
}

func TestRunIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	src := &fakeSource{
		name:     "reddit/food",
		platform: models.PlatformReddit,
		items: []source.Item{
			&fakeItem{record: record("https://x/a.jpg")},
			&fakeItem{record: record("https://x/b.jpg")},
		},
	}
	imp := newTestImporter(repo, Options{})

	first, err := imp.Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, first.ItemsImported)

	second, err := imp.Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ItemsImported)
	assert.Equal(t, 2, second.SkippedDuplicate)
	assert.Len(t, repo.contents, 2)
}

func TestRunFetchFailure(t *testing.T) {
	repo := newFakeRepo()
	src := &fakeSource{
		name:     "imgur/pizza",
		platform: models.PlatformImgur,
		fetchErr: errors.New("connection refused"),
	}

	summary, err := newTestImporter(repo, Options{}).Run(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "imgur/pizza")
	assert.Equal(t, models.RunStatusFailed, summary.Status)
	assert.Equal(t, 0, summary.ItemsFound)

	require.Len(t, repo.runLogs, 1)
	run := repo.runLogs[0]
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "connection refused")
	require.NotNil(t, run.CompletedAt)

	assert.NotContains(t, repo.touched, "imgur/pizza", "failed runs do not advance the fetch cursor")
}

func TestRunUniquenessRaceCountsAsDuplicate(t *testing.T) {
	repo := newFakeRepo()
	repo.createErrFor["https://x/raced.jpg"] = errors.New("UNIQUE constraint failed: contents.url")

	src := &fakeSource{
		name:     "reddit/food",
		platform: models.PlatformReddit,
		items:    []source.Item{&fakeItem{record: record("https://x/raced.jpg")}},
	}

	summary, err := newTestImporter(repo, Options{}).Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SkippedDuplicate)
	assert.Equal(t, 0, summary.ItemsErrored)
}

func TestRunExistenceCheckFailureCountsAsError(t *testing.T) {
	repo := newFakeRepo()
	repo.existsErr = errors.New("database locked")

	src := &fakeSource{
		name:     "reddit/food",
		platform: models.PlatformReddit,
		items:    []source.Item{&fakeItem{record: record("https://x/a.jpg")}},
	}

	summary, err := newTestImporter(repo, Options{}).Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, summary.Status)
	assert.Equal(t, 1, summary.ItemsErrored)
	assert.Empty(t, repo.contents)
}

func TestDryRunWritesNothing(t *testing.T) {
	repo := newFakeRepo()
	repo.contents = append(repo.contents, record("https://x/dup.jpg"))

	src := &fakeSource{
		name:     "reddit/food",
		platform: models.PlatformReddit,
		items: []source.Item{
			&fakeItem{record: record("https://x/a.jpg")},
			&fakeItem{record: record("https://x/dup.jpg")},
			&fakeItem{record: nil},
		},
	}

	summary, err := newTestImporter(repo, Options{DryRun: true}).Run(context.Background(), src)
	require.NoError(t, err)

	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.ItemsImported, "would-import is still counted")
	assert.Equal(t, 1, summary.SkippedDuplicate)
	assert.Equal(t, 1, summary.SkippedFiltered)

	assert.Len(t, repo.contents, 1, "no new content rows")
	assert.Empty(t, repo.runLogs, "dry runs leave no run log")
	assert.Empty(t, repo.touched)
	assert.Empty(t, repo.staleArgs)
}

func TestRunAppliesDefaultStatus(t *testing.T) {
	repo := newFakeRepo()
	preApproved := record("https://x/approved.jpg")
	preApproved.Status = models.ContentStatusApproved

	src := &fakeSource{
		name:     "reddit/food",
		platform: models.PlatformReddit,
		items: []source.Item{
			&fakeItem{record: record("https://x/plain.jpg")},
			&fakeItem{record: preApproved},
		},
	}

	_, err := newTestImporter(repo, Options{}).Run(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, repo.contents, 2)
	byURL := map[string]models.ContentStatus{}
	for _, c := range repo.contents {
		byURL[c.URL] = c.Status
	}
	assert.Equal(t, models.ContentStatusPending, byURL["https://x/plain.jpg"])
	assert.Equal(t, models.ContentStatusApproved, byURL["https://x/approved.jpg"], "a normalizer-chosen status is kept")
}

func TestRunAllIsolatesFailures(t *testing.T) {
	repo := newFakeRepo()
	bad := &fakeSource{
		name:     "imgur/pizza",
		platform: models.PlatformImgur,
		fetchErr: errors.New("rate limited"),
	}
	good := &fakeSource{
		name:     "reddit/food",
		platform: models.PlatformReddit,
		items:    []source.Item{&fakeItem{record: record("https://x/a.jpg")}},
	}

	summaries, err := newTestImporter(repo, Options{}).RunAll(context.Background(), []source.Source{bad, good})
	require.Error(t, err, "the first failure is surfaced after all sources ran")
	assert.Contains(t, err.Error(), "imgur/pizza")

	require.Len(t, summaries, 2)
	assert.Equal(t, models.RunStatusFailed, summaries[0].Status)
	assert.Equal(t, models.RunStatusCompleted, summaries[1].Status)
	assert.Len(t, repo.contents, 1)
}

func TestRunAllHonorsCancellation(t *testing.T) {
	repo := newFakeRepo()
	sources := []source.Source{
		&fakeSource{name: "a", platform: models.PlatformReddit},
		&fakeSource{name: "b", platform: models.PlatformReddit},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	imp := newTestImporter(repo, Options{DryRun: true, SourcePause: time.Minute})
	summaries, err := imp.RunAll(ctx, sources)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, summaries, 1, "cancellation stops before the pause, not mid-run")
}
