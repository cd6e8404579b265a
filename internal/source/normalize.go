package source

import (
	"html"
	"net/url"
	"path"
	"strings"

	"github.com/pizzafeed/importer/internal/models"
)

// pizzaKeywords is the fixed topical filter applied to titles/metadata from
// sources that are not already pizza-scoped.
var pizzaKeywords = []string{
	"pizza", "pizzeria", "pizzaiolo", "calzone", "pepperoni", "margherita",
	"mozzarella", "stromboli", "focaccia", "deep dish", "thin crust",
	"wood-fired", "neapolitan", "sicilian",
}

// BaseTags are stamped on every imported record before source tags
var BaseTags = []string{"pizza"}

// CleanText HTML-entity-decodes text and strips tags and extra whitespace
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "<br>", " ")
	text = strings.ReplaceAll(text, "<br/>", " ")
	text = strings.ReplaceAll(text, "<br />", " ")
	text = strings.ReplaceAll(text, "</p>", " ")
	text = strings.ReplaceAll(text, "<p>", "")

	// Remove remaining HTML tags
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
		} else if r == '>' {
			inTag = false
		} else if !inTag {
			result.WriteRune(r)
		}
	}

	text = html.UnescapeString(result.String())
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(text)
}

// Truncate caps s at max runes
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// IsPizzaRelated reports whether any of the given texts matches the topical
// keyword set. Sources whose context is already pizza-scoped (r/Pizza, a
// "pizza" search query) skip this check.
func IsPizzaRelated(texts ...string) bool {
	for _, t := range texts {
		lower := strings.ToLower(t)
		for _, kw := range pizzaKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// BuildTags assembles tags from base tags plus source-provided groups,
// trimming empties, deduplicating (case-sensitive) and capping at
// models.MaxTags while preserving first-seen order.
func BuildTags(groups ...[]string) []string {
	seen := make(map[string]bool)
	tags := make([]string, 0, models.MaxTags)
	for _, group := range groups {
		for _, tag := range group {
			tag = strings.TrimSpace(tag)
			if tag == "" || seen[tag] {
				continue
			}
			if len(tags) >= models.MaxTags {
				return tags
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// TypeHint carries every type signal a source has for one item. Rules are
// applied in priority order: explicit platform hint, then URL extension,
// then MIME type, then the source's default kind.
type TypeHint struct {
	Explicit models.ContentType
	URL      string
	MIME     string
	Default  models.ContentType
}

// InferType resolves a TypeHint to a canonical content type
func InferType(h TypeHint) models.ContentType {
	if h.Explicit != "" {
		return h.Explicit
	}
	if t, ok := typeFromExtension(h.URL); ok {
		return t
	}
	if t, ok := typeFromMIME(h.MIME); ok {
		return t
	}
	if h.Default != "" {
		return h.Default
	}
	return models.ContentTypeMeme
}

func typeFromExtension(rawURL string) (models.ContentType, bool) {
	if rawURL == "" {
		return "", false
	}
	ext := strings.ToLower(path.Ext(URLPath(rawURL)))
	switch ext {
	case ".gif", ".gifv":
		return models.ContentTypeGif, true
	case ".mp4", ".webm", ".mov", ".m3u8":
		return models.ContentTypeVideo, true
	case ".mp3", ".ogg", ".wav", ".flac":
		return models.ContentTypeMusic, true
	case ".jpg", ".jpeg", ".png", ".webp":
		return models.ContentTypeMeme, true
	}
	return "", false
}

func typeFromMIME(mime string) (models.ContentType, bool) {
	switch {
	case mime == "":
		return "", false
	case mime == "image/gif":
		return models.ContentTypeGif, true
	case strings.HasPrefix(mime, "video/"):
		return models.ContentTypeVideo, true
	case strings.HasPrefix(mime, "audio/"):
		return models.ContentTypeMusic, true
	case strings.HasPrefix(mime, "image/"):
		return models.ContentTypeMeme, true
	}
	return "", false
}

// URLPath returns the path component of rawURL, dropping query/fragment so
// extension sniffing ignores cache-buster parameters. Falls back to the raw
// string when it does not parse.
func URLPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}

// ValidURL reports whether s is a non-empty absolute http(s) URL. Records
// failing this are dropped before persistence.
func ValidURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
