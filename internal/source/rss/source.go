package rss

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/pizzafeed/importer/internal/config"
	"github.com/pizzafeed/importer/internal/models"
	"github.com/pizzafeed/importer/internal/source"
	"github.com/pizzafeed/importer/pkg/logger"
)

// Item wraps one feed entry with its feed context. Feeds are operator
// curated (pizza blogs), so the source context is topic-scoped and no
// keyword filter applies.
type Item struct {
	Entry    *gofeed.Item
	FeedName string
}

// Normalize maps a feed entry to the canonical record. Entries without a
// media enclosure or image are dropped; feeds expose no popularity metric,
// so IsViral stays false.
func (it *Item) Normalize() *models.Content {
	entry := it.Entry
	if entry == nil {
		return nil
	}

	var mediaURL, mime string
	for _, enc := range entry.Enclosures {
		if enc != nil && enc.URL != "" {
			mediaURL, mime = enc.URL, enc.Type
			break
		}
	}
	if mediaURL == "" && entry.Image != nil {
		mediaURL = entry.Image.URL
	}
	if !source.ValidURL(mediaURL) {
		return nil
	}

	categories := make([]string, 0, len(entry.Categories))
	for _, c := range entry.Categories {
		categories = append(categories, strings.ToLower(c))
	}

	return &models.Content{
		Type: source.InferType(source.TypeHint{
			URL:     mediaURL,
			MIME:    mime,
			Default: models.ContentTypePhoto,
		}),
		Title:        source.Truncate(source.CleanText(entry.Title), models.MaxTitleLen),
		URL:          mediaURL,
		ThumbnailURL: mediaURL,
		SourceURL:    entry.Link,
		Platform:     models.PlatformRSS,
		Description:  source.Truncate(source.CleanText(entry.Description), models.MaxDescriptionLen),
		Tags:         source.BuildTags(source.BaseTags, []string{strings.ToLower(it.FeedName)}, categories),
	}
}

// Source implements source.Source for a single RSS feed
type Source struct {
	name   string
	url    string
	client *source.Client
	parser *gofeed.Parser
	log    *logger.Logger
}

// New creates a new RSS source for a single feed. Feed requests go through
// the shared fetch client so they carry its timeout and rate limit.
func New(feed config.RSSFeed, client *source.Client, log *logger.Logger) *Source {
	parser := gofeed.NewParser()
	parser.Client = client.HTTP
	return &Source{
		name:   feed.Name,
		url:    feed.URL,
		client: client,
		parser: parser,
		log:    log.WithSource("rss", feed.Name),
	}
}

// NewMultiple creates multiple RSS sources from config
func NewMultiple(cfg config.RSSConfig, client *source.Client, log *logger.Logger) []*Source {
	sources := make([]*Source, 0, len(cfg.Feeds))
	for _, feed := range cfg.Feeds {
		sources = append(sources, New(feed, client, log))
	}
	return sources
}

// Name returns the source name
func (s *Source) Name() string {
	return "rss/" + s.name
}

// Platform returns the platform tag
func (s *Source) Platform() models.Platform {
	return models.PlatformRSS
}

// Fetch retrieves the feed entries in feed order
func (s *Source) Fetch(ctx context.Context) ([]source.Item, error) {
	s.log.Debug().Str("url", s.url).Msg("Fetching RSS feed")

	if err := s.client.Limiter.Wait(ctx, string(models.PlatformRSS)); err != nil {
		return nil, err
	}

	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed %s: %w", s.name, err)
	}

	items := make([]source.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		items = append(items, &Item{Entry: entry, FeedName: s.name})
	}

	s.log.Info().Int("count", len(items)).Msg("Fetched RSS entries")
	return items, nil
}

// HealthCheck verifies the RSS feed is accessible
func (s *Source) HealthCheck(ctx context.Context) error {
	if err := s.client.Limiter.Wait(ctx, string(models.PlatformRSS)); err != nil {
		return err
	}
	_, err := s.parser.ParseURLWithContext(s.url, ctx)
	return err
}

// Ensure Source implements source.Source
var _ source.Source = (*Source)(nil)
