package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pizzafeed/importer/internal/config"
	"github.com/pizzafeed/importer/internal/models"
	"github.com/pizzafeed/importer/internal/source"
	"github.com/pizzafeed/importer/pkg/logger"
)

// TikTok has no public content API. This source scrapes the tag page and
// reads the JSON state blob the page embeds, a documented fallback that can
// break whenever TikTok changes its markup.
const tagURL = "https://www.tiktok.com/tag/%s"

const stateScriptID = "SIGI_STATE"

// Video is the raw item extracted from the embedded page state
type Video struct {
	ID     string `json:"id"`
	Desc   string `json:"desc"`
	Author string `json:"author"`
	Video  struct {
		PlayAddr string `json:"playAddr"`
		Cover    string `json:"cover"`
	} `json:"video"`
	Stats struct {
		DiggCount int `json:"diggCount"`
		PlayCount int `json:"playCount"`
	} `json:"stats"`

	ViralThreshold int  `json:"-"`
	TopicScoped    bool `json:"-"`
}

// Normalize maps a scraped TikTok video to the canonical record
func (v *Video) Normalize() *models.Content {
	if !source.ValidURL(v.Video.PlayAddr) {
		return nil
	}
	if !v.TopicScoped && !source.IsPizzaRelated(v.Desc) {
		return nil
	}

	title := source.Truncate(source.CleanText(v.Desc), models.MaxTitleLen)
	if title == "" {
		title = "Pizza video from TikTok"
	}

	hashtags := extractHashtags(v.Desc)

	sourceURL := fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", v.Author, v.ID)

	thumbnail := v.Video.Cover
	if thumbnail == "" {
		thumbnail = v.Video.PlayAddr
	}

	return &models.Content{
		Type:         models.ContentTypeVideo,
		Title:        title,
		URL:          v.Video.PlayAddr,
		ThumbnailURL: thumbnail,
		SourceURL:    sourceURL,
		Platform:     models.PlatformTikTok,
		Tags:         source.BuildTags(source.BaseTags, hashtags),
		IsViral:      v.ViralThreshold > 0 && v.Stats.DiggCount >= v.ViralThreshold,
	}
}

// extractHashtags pulls #tags out of a video description, lowercased
func extractHashtags(desc string) []string {
	var tags []string
	for _, field := range strings.Fields(desc) {
		if strings.HasPrefix(field, "#") && len(field) > 1 {
			tags = append(tags, strings.ToLower(strings.TrimPrefix(field, "#")))
		}
	}
	return tags
}

// Source implements source.Source for a TikTok tag page
type Source struct {
	cfg    config.TikTokConfig
	client *source.Client
	log    *logger.Logger
}

// New creates a new TikTok source
func New(cfg config.TikTokConfig, client *source.Client, log *logger.Logger) *Source {
	return &Source{
		cfg:    cfg,
		client: client,
		log:    log.WithSource("tiktok", cfg.Tag),
	}
}

// Name returns the source name
func (s *Source) Name() string {
	return "tiktok/" + s.cfg.Tag
}

// Platform returns the platform tag
func (s *Source) Platform() models.Platform {
	return models.PlatformTikTok
}

// Fetch scrapes the tag page and decodes the embedded item state
func (s *Source) Fetch(ctx context.Context) ([]source.Item, error) {
	url := fmt.Sprintf(tagURL, s.cfg.Tag)
	s.log.Debug().Str("url", url).Msg("Scraping TikTok tag page")

	header := http.Header{}
	header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	body, err := s.client.GetBody(ctx, string(models.PlatformTikTok), url, header)
	if err != nil {
		return nil, fmt.Errorf("tiktok tag page fetch failed: %w", err)
	}

	videos, err := ParsePage(body)
	if err != nil {
		return nil, fmt.Errorf("tiktok tag page parse failed: %w", err)
	}

	limit := s.cfg.Limit
	if limit <= 0 || limit > len(videos) {
		limit = len(videos)
	}

	topicScoped := strings.Contains(strings.ToLower(s.cfg.Tag), "pizza")
	items := make([]source.Item, 0, limit)
	for i := 0; i < limit; i++ {
		v := videos[i]
		v.ViralThreshold = s.cfg.ViralThreshold
		v.TopicScoped = topicScoped
		items = append(items, &v)
	}

	s.log.Info().Int("count", len(items)).Msg("Scraped TikTok videos")
	return items, nil
}

type pageState struct {
	ItemModule map[string]Video `json:"ItemModule"`
}

// ParsePage extracts the video items from a tag page document. Items are
// keyed by ID in the state blob, so they are sorted by ID to keep run logs
// reproducible.
func ParsePage(body []byte) ([]Video, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	raw := doc.Find("script#" + stateScriptID).First().Text()
	if raw == "" {
		return nil, fmt.Errorf("embedded state script %q not found", stateScriptID)
	}

	var state pageState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("failed to decode embedded state: %w", err)
	}

	videos := make([]Video, 0, len(state.ItemModule))
	for _, v := range state.ItemModule {
		videos = append(videos, v)
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].ID < videos[j].ID })
	return videos, nil
}

// HealthCheck verifies the tag page still carries the embedded state
func (s *Source) HealthCheck(ctx context.Context) error {
	_, err := s.Fetch(ctx)
	return err
}

// Ensure Source implements source.Source
var _ source.Source = (*Source)(nil)
