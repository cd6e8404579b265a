package imgflip

import (
	"context"
	"fmt"
	"strings"

	"github.com/pizzafeed/importer/internal/config"
	"github.com/pizzafeed/importer/internal/models"
	"github.com/pizzafeed/importer/internal/source"
	"github.com/pizzafeed/importer/pkg/logger"
)

const memesURL = "https://api.imgflip.com/get_memes"

// Meme is the raw imgflip template item
type Meme struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Normalize maps an imgflip template to the canonical record. The endpoint
// returns general meme templates, so the keyword filter applies; imgflip
// exposes no popularity metric, so IsViral stays false.
func (m *Meme) Normalize() *models.Content {
	if !source.ValidURL(m.URL) {
		return nil
	}
	if !source.IsPizzaRelated(m.Name) {
		return nil
	}

	return &models.Content{
		Type:         models.ContentTypeMeme,
		Title:        source.Truncate(source.CleanText(m.Name), models.MaxTitleLen),
		URL:          m.URL,
		ThumbnailURL: m.URL,
		SourceURL:    "https://imgflip.com/memetemplate/" + m.ID,
		Platform:     models.PlatformImgflip,
		Tags:         source.BuildTags(source.BaseTags, []string{"meme", "template"}),
	}
}

// Source implements source.Source for the imgflip template listing
type Source struct {
	cfg    config.ImgflipConfig
	client *source.Client
	log    *logger.Logger
}

// New creates a new imgflip source
func New(cfg config.ImgflipConfig, client *source.Client, log *logger.Logger) *Source {
	return &Source{
		cfg:    cfg,
		client: client,
		log:    log.WithSource("imgflip", "templates"),
	}
}

// Name returns the source name
func (s *Source) Name() string {
	return "imgflip/templates"
}

// Platform returns the platform tag
func (s *Source) Platform() models.Platform {
	return models.PlatformImgflip
}

type memesResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Memes []Meme `json:"memes"`
	} `json:"data"`
	ErrorMessage string `json:"error_message"`
}

// Fetch retrieves the public template listing (no key required)
func (s *Source) Fetch(ctx context.Context) ([]source.Item, error) {
	var result memesResponse
	if err := s.client.GetJSON(ctx, string(models.PlatformImgflip), memesURL, nil, &result); err != nil {
		return nil, fmt.Errorf("imgflip get_memes failed: %w", err)
	}
	if !result.Success {
		msg := result.ErrorMessage
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("imgflip get_memes failed: %s", strings.TrimSpace(msg))
	}

	limit := s.cfg.Limit
	if limit <= 0 || limit > len(result.Data.Memes) {
		limit = len(result.Data.Memes)
	}

	items := make([]source.Item, 0, limit)
	for i := 0; i < limit; i++ {
		items = append(items, &result.Data.Memes[i])
	}

	s.log.Info().Int("count", len(items)).Msg("Fetched imgflip templates")
	return items, nil
}

// HealthCheck verifies the endpoint is reachable
func (s *Source) HealthCheck(ctx context.Context) error {
	_, err := s.client.GetBody(ctx, string(models.PlatformImgflip), memesURL, nil)
	return err
}

// Ensure Source implements source.Source
var _ source.Source = (*Source)(nil)
