package pexels

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pizzafeed/importer/internal/config"
	"github.com/pizzafeed/importer/internal/models"
	"github.com/pizzafeed/importer/internal/source"
	"github.com/pizzafeed/importer/pkg/logger"
)

const baseURL = "https://api.pexels.com"

// Photo is the raw pexels photo search item
type Photo struct {
	ID           int64  `json:"id"`
	URL          string `json:"url"` // page on pexels.com
	Photographer string `json:"photographer"`
	Alt          string `json:"alt"`
	Src          struct {
		Original string `json:"original"`
		Large    string `json:"large"`
		Medium   string `json:"medium"`
	} `json:"src"`
}

// Normalize maps a pexels photo to the canonical record. The search query
// already scopes results to the topic, and pexels is curated stock, so
// records are created approved.
func (p *Photo) Normalize() *models.Content {
	if !source.ValidURL(p.Src.Original) {
		return nil
	}

	title := source.Truncate(source.CleanText(p.Alt), models.MaxTitleLen)
	if title == "" {
		title = "Pizza photo"
	}

	thumbnail := p.Src.Medium
	if thumbnail == "" {
		thumbnail = p.Src.Original
	}

	description := ""
	if p.Photographer != "" {
		description = "Photo by " + p.Photographer + " on Pexels"
	}

	return &models.Content{
		Type:         models.ContentTypePhoto,
		Title:        title,
		URL:          p.Src.Original,
		ThumbnailURL: thumbnail,
		SourceURL:    p.URL,
		Platform:     models.PlatformPexels,
		Description:  source.Truncate(description, models.MaxDescriptionLen),
		Tags:         source.BuildTags(source.BaseTags, []string{"photography", "stock"}),
		Status:       models.ContentStatusApproved,
	}
}

// Video is the raw pexels video search item
type Video struct {
	ID    int64  `json:"id"`
	URL   string `json:"url"`
	Image string `json:"image"`
	User  struct {
		Name string `json:"name"`
	} `json:"user"`
	VideoFiles []struct {
		Link     string `json:"link"`
		Quality  string `json:"quality"`
		FileType string `json:"file_type"`
	} `json:"video_files"`
}

// Normalize maps a pexels video to the canonical record
func (v *Video) Normalize() *models.Content {
	var link, mime string
	for _, f := range v.VideoFiles {
		if f.Quality == "hd" && link == "" {
			link, mime = f.Link, f.FileType
		}
	}
	if link == "" && len(v.VideoFiles) > 0 {
		link, mime = v.VideoFiles[0].Link, v.VideoFiles[0].FileType
	}
	if !source.ValidURL(link) {
		return nil
	}

	description := ""
	if v.User.Name != "" {
		description = "Video by " + v.User.Name + " on Pexels"
	}

	return &models.Content{
		Type: source.InferType(source.TypeHint{
			Explicit: models.ContentTypeVideo,
			URL:      link,
			MIME:     mime,
		}),
		Title:        "Pizza video",
		URL:          link,
		ThumbnailURL: v.Image,
		SourceURL:    v.URL,
		Platform:     models.PlatformPexels,
		Description:  source.Truncate(description, models.MaxDescriptionLen),
		Tags:         source.BuildTags(source.BaseTags, []string{"video", "stock"}),
		Status:       models.ContentStatusApproved,
	}
}

// Source implements source.Source for pexels photo + video search
type Source struct {
	cfg    config.PexelsConfig
	client *source.Client
	log    *logger.Logger
}

// New creates a new pexels source
func New(cfg config.PexelsConfig, client *source.Client, log *logger.Logger) *Source {
	return &Source{
		cfg:    cfg,
		client: client,
		log:    log.WithSource("pexels", cfg.Query),
	}
}

// Name returns the source name
func (s *Source) Name() string {
	return "pexels/" + s.cfg.Query
}

// Platform returns the platform tag
func (s *Source) Platform() models.Platform {
	return models.PlatformPexels
}

type photoSearchResponse struct {
	Photos []Photo `json:"photos"`
}

type videoSearchResponse struct {
	Videos []Video `json:"videos"`
}

// Fetch retrieves one page each of photo and video search results. A photo
// search failure aborts the run; the video search is additive.
func (s *Source) Fetch(ctx context.Context) ([]source.Item, error) {
	header := http.Header{}
	header.Set("Authorization", s.cfg.APIKey)

	params := url.Values{}
	params.Set("query", s.cfg.Query)
	params.Set("per_page", fmt.Sprintf("%d", s.cfg.PerPage))

	var photos photoSearchResponse
	photoURL := baseURL + "/v1/search?" + params.Encode()
	if err := s.client.GetJSON(ctx, string(models.PlatformPexels), photoURL, header, &photos); err != nil {
		return nil, fmt.Errorf("pexels photo search failed: %w", err)
	}

	items := make([]source.Item, 0, len(photos.Photos))
	for i := range photos.Photos {
		items = append(items, &photos.Photos[i])
	}

	var videos videoSearchResponse
	videoURL := baseURL + "/videos/search?" + params.Encode()
	if err := s.client.GetJSON(ctx, string(models.PlatformPexels), videoURL, header, &videos); err != nil {
		s.log.Warn().Err(err).Msg("Pexels video search failed, continuing with photos only")
	} else {
		for i := range videos.Videos {
			items = append(items, &videos.Videos[i])
		}
	}

	s.log.Info().
		Int("photos", len(photos.Photos)).
		Int("videos", len(videos.Videos)).
		Msg("Fetched pexels items")

	return items, nil
}

// HealthCheck verifies the API key works
func (s *Source) HealthCheck(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", s.cfg.APIKey)
	_, err := s.client.GetBody(ctx, string(models.PlatformPexels), baseURL+"/v1/search?query=pizza&per_page=1", header)
	return err
}

// Ensure Source implements source.Source
var _ source.Source = (*Source)(nil)
