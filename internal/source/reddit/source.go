package reddit

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/pizzafeed/importer/internal/config"
	"github.com/pizzafeed/importer/internal/models"
	"github.com/pizzafeed/importer/internal/source"
	"github.com/pizzafeed/importer/pkg/logger"
)

const (
	publicBaseURL = "https://www.reddit.com"
	oauthBaseURL  = "https://oauth.reddit.com"
	tokenURL      = "https://www.reddit.com/api/v1/access_token"
)

// pizzaSubreddits are subreddits whose content is already topic-scoped, so
// the keyword filter is skipped for them.
var pizzaSubreddits = map[string]bool{
	"pizza":       true,
	"pizzacrimes": true,
	"catsonpizza": true,
}

// Post is the raw reddit listing item shape. Fields absent upstream stay
// zero-valued; Normalize treats that as a skip signal, never an error.
type Post struct {
	Subreddit         string  `json:"subreddit"`
	Title             string  `json:"title"`
	URL               string  `json:"url"`
	URLOverridden     string  `json:"url_overridden_by_dest"`
	Permalink         string  `json:"permalink"`
	IsSelf            bool    `json:"is_self"`
	Over18            bool    `json:"over_18"`
	RemovedByCategory string  `json:"removed_by_category"`
	PostHint          string  `json:"post_hint"`
	IsVideo           bool    `json:"is_video"`
	Score             int     `json:"score"`
	LinkFlairText     string  `json:"link_flair_text"`
	Media             *media  `json:"media"`
	Preview           *preview `json:"preview"`

	// Normalization context stamped by the fetcher
	ViralThreshold int  `json:"-"`
	TopicScoped    bool `json:"-"`
}

type media struct {
	RedditVideo *struct {
		FallbackURL string `json:"fallback_url"`
	} `json:"reddit_video"`
}

type preview struct {
	Images []struct {
		Source struct {
			URL string `json:"url"`
		} `json:"source"`
	} `json:"images"`
}

// Normalize maps a reddit post to the canonical record, or nil to skip.
// Pure: all context it needs is on the Post itself.
func (p *Post) Normalize() *models.Content {
	if p.IsSelf || p.Over18 || p.RemovedByCategory != "" {
		return nil
	}

	mediaURL := p.mediaURL()
	if !source.ValidURL(mediaURL) {
		return nil
	}
	// Link posts pointing back at a reddit thread carry no media
	if strings.Contains(mediaURL, "reddit.com/r/") {
		return nil
	}

	if !p.TopicScoped && !source.IsPizzaRelated(p.Title, p.LinkFlairText, p.Subreddit) {
		return nil
	}

	contentType := source.InferType(source.TypeHint{
		Explicit: p.explicitType(),
		URL:      mediaURL,
		Default:  models.ContentTypeMeme,
	})

	thumbnail := mediaURL
	if p.Preview != nil && len(p.Preview.Images) > 0 && source.ValidURL(source.CleanText(p.Preview.Images[0].Source.URL)) {
		thumbnail = source.CleanText(p.Preview.Images[0].Source.URL)
	}

	return &models.Content{
		Type:         contentType,
		Title:        source.Truncate(source.CleanText(p.Title), models.MaxTitleLen),
		URL:          mediaURL,
		ThumbnailURL: thumbnail,
		SourceURL:    publicBaseURL + p.Permalink,
		Platform:     models.PlatformReddit,
		Tags: source.BuildTags(
			source.BaseTags,
			[]string{strings.ToLower(p.Subreddit)},
			[]string{strings.ToLower(p.LinkFlairText)},
		),
		IsViral: p.ViralThreshold > 0 && p.Score >= p.ViralThreshold,
	}
}

func (p *Post) mediaURL() string {
	if p.IsVideo && p.Media != nil && p.Media.RedditVideo != nil && p.Media.RedditVideo.FallbackURL != "" {
		return p.Media.RedditVideo.FallbackURL
	}
	if p.URLOverridden != "" {
		return p.URLOverridden
	}
	return p.URL
}

// explicitType maps reddit's post_hint to a type where conclusive. Other
// hints fall through to extension sniffing.
func (p *Post) explicitType() models.ContentType {
	switch p.PostHint {
	case "hosted:video", "rich:video":
		return models.ContentTypeVideo
	}
	if p.IsVideo {
		return models.ContentTypeVideo
	}
	return ""
}

// Source implements source.Source for one subreddit listing
type Source struct {
	subreddit string
	cfg       config.RedditConfig
	client    *source.Client
	oauth     *http.Client
	log       *logger.Logger
}

// New creates a reddit source for a single subreddit. With client
// credentials configured, requests go through the OAuth endpoint as a
// script app; otherwise the public JSON listings are used.
func New(subreddit string, cfg config.RedditConfig, client *source.Client, log *logger.Logger) *Source {
	s := &Source{
		subreddit: subreddit,
		cfg:       cfg,
		client:    client,
		log:       log.WithSource("reddit", subreddit),
	}
	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
		}
		s.oauth = cc.Client(context.Background())
		s.oauth.Timeout = client.HTTP.Timeout
	}
	return s
}

// NewMultiple creates one source per configured subreddit
func NewMultiple(cfg config.RedditConfig, client *source.Client, log *logger.Logger) []*Source {
	sources := make([]*Source, 0, len(cfg.Subreddits))
	for _, sub := range cfg.Subreddits {
		sources = append(sources, New(sub, cfg, client, log))
	}
	return sources
}

// Name returns the source name
func (s *Source) Name() string {
	return "reddit/" + s.subreddit
}

// Platform returns the platform tag
func (s *Source) Platform() models.Platform {
	return models.PlatformReddit
}

type listing struct {
	Data struct {
		Children []struct {
			Data Post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Fetch retrieves one listing page for the subreddit
func (s *Source) Fetch(ctx context.Context) ([]source.Item, error) {
	url := s.listingURL()
	s.log.Debug().Str("url", url).Msg("Fetching subreddit listing")

	header := http.Header{}
	header.Set("User-Agent", s.cfg.UserAgent)

	var result listing
	var err error
	if s.oauth != nil {
		err = s.client.GetJSONWith(ctx, s.oauth, string(models.PlatformReddit), url, header, &result)
	} else {
		err = s.client.GetJSON(ctx, string(models.PlatformReddit), url, header, &result)
	}
	if err != nil {
		return nil, fmt.Errorf("reddit listing for r/%s failed: %w", s.subreddit, err)
	}

	topicScoped := pizzaSubreddits[strings.ToLower(s.subreddit)]
	items := make([]source.Item, 0, len(result.Data.Children))
	for i := range result.Data.Children {
		post := result.Data.Children[i].Data
		post.ViralThreshold = s.cfg.ViralThreshold
		post.TopicScoped = topicScoped
		items = append(items, &post)
	}

	s.log.Info().Int("count", len(items)).Msg("Fetched reddit posts")
	return items, nil
}

func (s *Source) listingURL() string {
	base := publicBaseURL
	if s.oauth != nil {
		base = oauthBaseURL
	}
	sort := s.cfg.Sort
	if sort == "" {
		sort = "hot"
	}
	url := fmt.Sprintf("%s/r/%s/%s.json?limit=%d&raw_json=1", base, s.subreddit, sort, s.cfg.Limit)
	if sort == "top" && s.cfg.TimeRange != "" {
		url += "&t=" + s.cfg.TimeRange
	}
	return url
}

// HealthCheck verifies the subreddit listing is reachable
func (s *Source) HealthCheck(ctx context.Context) error {
	_, err := s.Fetch(ctx)
	return err
}

// Ensure Source implements source.Source
var _ source.Source = (*Source)(nil)
