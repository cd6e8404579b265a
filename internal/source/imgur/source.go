package imgur

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

const baseURL = "https://api.imgur.com/3"

// GalleryItem is the raw imgur gallery search item. Albums carry their
// media in Images; bare images carry it at the top level.
type GalleryItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Desc     string `json:"description"`
	Link     string `json:"link"`
	Animated bool   `json:"animated"`
	MIMEType string `json:"type"`
	NSFW     bool   `json:"nsfw"`
	Points   int    `json:"points"`
	IsAlbum  bool   `json:"is_album"`
	MP4      string `json:"mp4"`
	Tags     []struct {
		Name string `json:"name"`
	} `json:"tags"`
	Images []struct {
		Link     string `json:"link"`
		Animated bool   `json:"animated"`
		MIMEType string `json:"type"`
		MP4      string `json:"mp4"`
	} `json:"images"`

	ViralThreshold int `json:"-"`
}

// Normalize maps a gallery item to the canonical record, or nil to skip
func (g *GalleryItem) Normalize() *models.Content {
	if g.NSFW {
		return nil
	}

	mediaURL := g.Link
	mime := g.MIMEType
	animated := g.Animated
	mp4 := g.MP4
	if g.IsAlbum {
		if len(g.Images) == 0 {
			return nil
		}
		mediaURL = g.Images[0].Link
		mime = g.Images[0].MIMEType
		animated = g.Images[0].Animated
		mp4 = g.Images[0].MP4
	}
	// Some animated items carry no direct link, only an mp4 rendition
	if animated && !source.ValidURL(mediaURL) {
		mediaURL = mp4
	}
	if !source.ValidURL(mediaURL) {
		return nil
	}

	// The search query scopes results, but imgur search matches loosely
	// enough that the keyword filter still applies.
	tagNames := make([]string, 0, len(g.Tags))
	for _, t := range g.Tags {
		tagNames = append(tagNames, strings.ToLower(t.Name))
	}
	if !source.IsPizzaRelated(append([]string{g.Title, g.Desc}, tagNames...)...) {
		return nil
	}

	// Imgur's Animated flag is the explicit hint: animated items are gifs
	// unless only an mp4 rendition exists.
	var explicit models.ContentType
	if animated {
		explicit = models.ContentTypeGif
		if strings.HasSuffix(mediaURL, ".mp4") {
			explicit = models.ContentTypeVideo
		}
	}

	contentType := source.InferType(source.TypeHint{
		Explicit: explicit,
		URL:      mediaURL,
		MIME:     mime,
		Default:  models.ContentTypeMeme,
	})

	title := source.Truncate(source.CleanText(g.Title), models.MaxTitleLen)
	if title == "" {
		title = "Pizza find from Imgur"
	}

	return &models.Content{
		Type:         contentType,
		Title:        title,
		URL:          mediaURL,
		ThumbnailURL: mediaURL,
		SourceURL:    "https://imgur.com/gallery/" + g.ID,
		Platform:     models.PlatformImgur,
		Description:  source.Truncate(source.CleanText(g.Desc), models.MaxDescriptionLen),
		Tags:         source.BuildTags(source.BaseTags, tagNames),
		IsViral:      g.ViralThreshold > 0 && g.Points >= g.ViralThreshold,
	}
}

// Source implements source.Source for imgur gallery search
type Source struct {
	cfg    config.ImgurConfig
	client *source.Client
	log    *logger.Logger
}

// New creates a new imgur source
func New(cfg config.ImgurConfig, client *source.Client, log *logger.Logger) *Source {
	return &Source{
		cfg:    cfg,
		client: client,
		log:    log.WithSource("imgur", cfg.Query),
	}
}

// Name returns the source name
func (s *Source) Name() string {
	return "imgur/" + s.cfg.Query
}

// Platform returns the platform tag
func (s *Source) Platform() models.Platform {
	return models.PlatformImgur
}

type searchResponse struct {
	Data    []GalleryItem `json:"data"`
	Success bool          `json:"success"`
}

// Fetch retrieves one page of gallery search results
func (s *Source) Fetch(ctx context.Context) ([]source.Item, error) {
	url := fmt.Sprintf("%s/gallery/search/viral/all/0?q=%s", baseURL, s.cfg.Query)
	s.log.Debug().Str("url", url).Msg("Searching imgur gallery")

	header := http.Header{}
	header.Set("Authorization", "Client-ID "+s.cfg.ClientID)

	var result searchResponse
	if err := s.client.GetJSON(ctx, string(models.PlatformImgur), url, header, &result); err != nil {
		return nil, fmt.Errorf("imgur gallery search failed: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("imgur gallery search returned success=false")
	}

	limit := s.cfg.Limit
	if limit <= 0 || limit > len(result.Data) {
		limit = len(result.Data)
	}

	items := make([]source.Item, 0, limit)
	for i := 0; i < limit; i++ {
		item := result.Data[i]
		item.ViralThreshold = s.cfg.ViralThreshold
		items = append(items, &item)
	}

	s.log.Info().Int("count", len(items)).Msg("Fetched imgur items")
	return items, nil
}

// HealthCheck verifies imgur credits are available
func (s *Source) HealthCheck(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", "Client-ID "+s.cfg.ClientID)
	_, err := s.client.GetBody(ctx, string(models.PlatformImgur), baseURL+"/credits", header)
	return err
}

// Ensure Source implements source.Source
var _ source.Source = (*Source)(nil)
