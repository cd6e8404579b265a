package youtube

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/pizzafeed/importer/internal/config"
	"github.com/pizzafeed/importer/internal/models"
	"github.com/pizzafeed/importer/internal/source"
	"github.com/pizzafeed/importer/pkg/logger"
	"github.com/pizzafeed/importer/pkg/ratelimit"
)

const musicCategoryID = "10"

// Video is the raw item assembled from the search + videos endpoints
type Video struct {
	ID             string
	Title          string
	Description    string
	ChannelTitle   string
	ThumbnailURL   string
	CategoryID     string
	Tags           []string
	ViewCount      uint64
	ViralThreshold int
}

// Normalize maps a YouTube video to the canonical record. Search matching
// is loose, so the keyword filter applies even though the query is
// topic-scoped.
func (v *Video) Normalize() *models.Content {
	if v.ID == "" {
		return nil
	}
	if !source.IsPizzaRelated(append([]string{v.Title, v.Description}, v.Tags...)...) {
		return nil
	}

	// The category is the platform's explicit hint: music category means
	// a music record, everything else is a plain video.
	contentType := models.ContentTypeVideo
	if v.CategoryID == musicCategoryID {
		contentType = models.ContentTypeMusic
	}

	watchURL := "https://www.youtube.com/watch?v=" + v.ID
	thumbnail := v.ThumbnailURL
	if thumbnail == "" {
		thumbnail = watchURL
	}

	tags := make([]string, 0, len(v.Tags))
	for _, t := range v.Tags {
		tags = append(tags, strings.ToLower(t))
	}

	return &models.Content{
		Type:         contentType,
		Title:        source.Truncate(source.CleanText(v.Title), models.MaxTitleLen),
		URL:          watchURL,
		ThumbnailURL: thumbnail,
		SourceURL:    watchURL,
		Platform:     models.PlatformYouTube,
		Description:  source.Truncate(source.CleanText(v.Description), models.MaxDescriptionLen),
		Tags:         source.BuildTags(source.BaseTags, tags),
		IsViral:      v.ViralThreshold > 0 && v.ViewCount >= uint64(v.ViralThreshold),
	}
}

// Source implements source.Source using the YouTube Data API v3
type Source struct {
	cfg     config.YouTubeConfig
	limiter *ratelimit.MultiLimiter
	log     *logger.Logger
	service *youtube.Service
}

// New creates a new YouTube source. API calls go through an HTTP client
// carrying the shared fetch timeout, with the API key applied per request.
func New(ctx context.Context, cfg config.YouTubeConfig, client *source.Client, log *logger.Logger) (*Source, error) {
	api := &http.Client{
		Timeout:   client.HTTP.Timeout,
		Transport: &transport.APIKey{Key: cfg.APIKey},
	}
	service, err := youtube.NewService(ctx, option.WithHTTPClient(api))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	return &Source{
		cfg:     cfg,
		limiter: client.Limiter,
		log:     log.WithSource("youtube", cfg.Query),
		service: service,
	}, nil
}

// Name returns the source name
func (s *Source) Name() string {
	return "youtube/" + s.cfg.Query
}

// Platform returns the platform tag
func (s *Source) Platform() models.Platform {
	return models.PlatformYouTube
}

// Fetch searches for videos and hydrates statistics for each hit
func (s *Source) Fetch(ctx context.Context) ([]source.Item, error) {
	if err := s.limiter.Wait(ctx, string(models.PlatformYouTube)); err != nil {
		return nil, err
	}

	search, err := s.service.Search.List([]string{"id"}).
		Q(s.cfg.Query).
		Type("video").
		MaxResults(int64(s.cfg.MaxResults)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search failed: %w", err)
	}

	ids := make([]string, 0, len(search.Items))
	for _, item := range search.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := s.limiter.Wait(ctx, string(models.PlatformYouTube)); err != nil {
		return nil, err
	}

	details, err := s.service.Videos.List([]string{"snippet", "statistics"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube videos lookup failed: %w", err)
	}

	items := make([]source.Item, 0, len(details.Items))
	for _, v := range details.Items {
		raw := &Video{
			ID:             v.Id,
			ViralThreshold: s.cfg.ViralThreshold,
		}
		if v.Snippet != nil {
			raw.Title = v.Snippet.Title
			raw.Description = v.Snippet.Description
			raw.ChannelTitle = v.Snippet.ChannelTitle
			raw.CategoryID = v.Snippet.CategoryId
			raw.Tags = v.Snippet.Tags
			if v.Snippet.Thumbnails != nil && v.Snippet.Thumbnails.High != nil {
				raw.ThumbnailURL = v.Snippet.Thumbnails.High.Url
			}
		}
		if v.Statistics != nil {
			raw.ViewCount = v.Statistics.ViewCount
		}
		items = append(items, raw)
	}

	s.log.Info().Int("count", len(items)).Msg("Fetched youtube videos")
	return items, nil
}

// HealthCheck runs a minimal search to verify the API key
func (s *Source) HealthCheck(ctx context.Context) error {
	if err := s.limiter.Wait(ctx, string(models.PlatformYouTube)); err != nil {
		return err
	}
	_, err := s.service.Search.List([]string{"id"}).Q("pizza").MaxResults(1).Context(ctx).Do()
	return err
}

// Ensure Source implements source.Source
var _ source.Source = (*Source)(nil)
