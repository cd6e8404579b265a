package ninegag

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pizzafeed/importer/internal/config"
	"github.com/pizzafeed/importer/internal/models"
	"github.com/pizzafeed/importer/internal/source"
	"github.com/pizzafeed/importer/pkg/logger"
)

// 9GAG has no public API. This source uses the JSON endpoint backing the
// tag pages, a documented fallback that can break without notice.
const baseURL = "https://9gag.com/v1/tag-posts/tag/%s/type/hot"

// Post is the raw 9GAG tag-feed item
type Post struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"` // Photo, Animated, Video
	NSFW  int    `json:"nsfw"`
	URL   string `json:"url"` // post page
	Tags  []struct {
		Key string `json:"key"`
	} `json:"tags"`
	Images struct {
		Image700 struct {
			URL string `json:"url"`
		} `json:"image700"`
		Image460sv struct {
			URL string `json:"url"`
		} `json:"image460sv"`
	} `json:"images"`
}

// Normalize maps a 9GAG post to the canonical record. The tag feed is
// topic-scoped so no keyword filter; 9GAG's vote counts are not exposed on
// this feed, so IsViral stays false.
func (p *Post) Normalize() *models.Content {
	if p.NSFW != 0 {
		return nil
	}

	// The "Animated" type flag is the explicit hint and wins over the
	// extension of the mp4 rendition the feed serves for gifs.
	var explicit models.ContentType
	mediaURL := p.Images.Image700.URL
	switch p.Type {
	case "Animated":
		explicit = models.ContentTypeGif
		if p.Images.Image460sv.URL != "" {
			mediaURL = p.Images.Image460sv.URL
		}
	case "Video":
		explicit = models.ContentTypeVideo
		if p.Images.Image460sv.URL != "" {
			mediaURL = p.Images.Image460sv.URL
		}
	}
	if !source.ValidURL(mediaURL) {
		return nil
	}

	tags := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, strings.ToLower(t.Key))
	}

	return &models.Content{
		Type: source.InferType(source.TypeHint{
			Explicit: explicit,
			URL:      mediaURL,
			Default:  models.ContentTypeMeme,
		}),
		Title:        source.Truncate(source.CleanText(p.Title), models.MaxTitleLen),
		URL:          mediaURL,
		ThumbnailURL: p.Images.Image700.URL,
		SourceURL:    p.URL,
		Platform:     models.PlatformNineGag,
		Tags:         source.BuildTags(source.BaseTags, tags),
	}
}

// Source implements source.Source for a 9GAG tag feed
type Source struct {
	cfg    config.NineGagConfig
	client *source.Client
	log    *logger.Logger
}

// New creates a new 9GAG source
func New(cfg config.NineGagConfig, client *source.Client, log *logger.Logger) *Source {
	return &Source{
		cfg:    cfg,
		client: client,
		log:    log.WithSource("9gag", cfg.Tag),
	}
}

// Name returns the source name
func (s *Source) Name() string {
	return "9gag/" + s.cfg.Tag
}

// Platform returns the platform tag
func (s *Source) Platform() models.Platform {
	return models.PlatformNineGag
}

type feedResponse struct {
	Data struct {
		Posts []Post `json:"posts"`
	} `json:"data"`
}

// Fetch retrieves one page of the tag feed
func (s *Source) Fetch(ctx context.Context) ([]source.Item, error) {
	url := fmt.Sprintf(baseURL, s.cfg.Tag)
	s.log.Debug().Str("url", url).Msg("Fetching 9GAG tag feed")

	header := http.Header{}
	header.Set("User-Agent", "Mozilla/5.0 (compatible; pizzafeed-importer)")

	var result feedResponse
	if err := s.client.GetJSON(ctx, string(models.PlatformNineGag), url, header, &result); err != nil {
		return nil, fmt.Errorf("9gag tag feed failed: %w", err)
	}

	limit := s.cfg.Limit
	if limit <= 0 || limit > len(result.Data.Posts) {
		limit = len(result.Data.Posts)
	}

	items := make([]source.Item, 0, limit)
	for i := 0; i < limit; i++ {
		items = append(items, &result.Data.Posts[i])
	}

	s.log.Info().Int("count", len(items)).Msg("Fetched 9GAG posts")
	return items, nil
}

// HealthCheck verifies the tag feed is reachable
func (s *Source) HealthCheck(ctx context.Context) error {
	header := http.Header{}
	header.Set("User-Agent", "Mozilla/5.0 (compatible; pizzafeed-importer)")
	_, err := s.client.GetBody(ctx, string(models.PlatformNineGag), fmt.Sprintf(baseURL, s.cfg.Tag), header)
	return err
}

// Ensure Source implements source.Source
var _ source.Source = (*Source)(nil)
