package preview

import (
	"net/url"
	"strings"
)

// DefaultBaseURL prefixes rewritten image links when no base is configured.
const DefaultBaseURL = "https://cardyb.bsky.app"

// Collator folds parsed tags into a LinkPreview.
type Collator struct {
	baseURL string
}

// NewCollator returns a Collator that rewrites images through baseURL. An
// empty baseURL selects DefaultBaseURL; a trailing slash is dropped.
func NewCollator(baseURL string) *Collator {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Collator{baseURL: strings.TrimRight(baseURL, "/")}
}

// BaseURL returns the prefix used for rewritten image links.
func (c *Collator) BaseURL() string {
	return c.baseURL
}

// Collate folds tags in order. Recognized keys overwrite earlier values, so
// the last occurrence of a key wins. A YouTube watch or shorts URL replaces
// the description afterwards, and a present image is rewritten to point at this
// service's image route.
func (c *Collator) Collate(tags []MetaTag) LinkPreview {
	var p LinkPreview
	for _, t := range tags {
		content := t.Content
		switch t.Key.String() {
		case "og:title", "twitter:title":
			p.Title = content
		case "og:type":
			p.Type = &content
		case "og:url":
			p.URL = content
		case "og:image":
			p.Image = &content
		case "og:audio":
			p.Audio = &content
		case "og:description", "twitter:description":
			p.Description = &content
		case "og:site_name":
			p.SiteName = &content
		case "og:video":
			p.Video = &content
		}
	}

	if kind, ok := youTubeKind(p.URL); ok {
		// The author comes from the raw tags, not the folded record: the last
		// Name-kind key starting with "name".
		var name string
		for _, t := range tags {
			if n, isName := t.Key.(Name); isName && strings.HasPrefix(string(n), "name") {
				name = t.Content
			}
		}
		desc := "Youtube " + kind + " by " + name
		p.Description = &desc
	}

	if p.Image != nil {
		img := c.baseURL + "/v1/image?url=" + encode(*p.Image)
		p.Image = &img
	}
	return p
}

// youTubeKind reports whether raw is a youtube.com watch or shorts page, and
// which.
func youTubeKind(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Host != "youtube.com" && u.Host != "www.youtube.com") {
		return "", false
	}
	if !strings.HasPrefix(u.Path, "/watch") && !strings.HasPrefix(u.Path, "/shorts") {
		return "", false
	}
	if strings.Contains(u.Path, "/shorts") {
		return "short", true
	}
	return "video", true
}

// encode percent-encodes s for a query value, with spaces as %20.
func encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
