package preview

// LinkPreview is the collated OpenGraph summary of a page. Title and URL are
// always present (possibly empty); the rest are nil when no tag supplied them.
type LinkPreview struct {
	Title       string  `json:"title"`
	Type        *string `json:"og_type"`
	URL         string  `json:"url"`
	Image       *string `json:"image"`
	Audio       *string `json:"audio"`
	Description *string `json:"description"`
	SiteName    *string `json:"site_name"`
	Video       *string `json:"video"`
}

// Valid reports whether the preview carries both a title and a URL.
func (p LinkPreview) Valid() bool {
	return p.Title != "" && p.URL != ""
}

// Response is the body of the API extract route.
type Response struct {
	Metadata Metadata `json:"metadata"`
}

// Metadata groups the previews of one page by vocabulary.
type Metadata struct {
	OpenGraph *LinkPreview `json:"OpenGraph"`
}

// NewResponse wraps p for the API extract route.
func NewResponse(p LinkPreview) Response {
	return Response{Metadata: Metadata{OpenGraph: &p}}
}

// LegacyErrorMessage is reported in LegacyPreview.Error for incomplete
// previews.
const LegacyErrorMessage = "Unable to generate link preview"

// LegacyPreview is the flat body of the legacy extract route.
type LegacyPreview struct {
	Error       string `json:"error"`
	LikelyType  string `json:"likely_type"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// ToLegacy flattens p. An invalid preview becomes the error shape with every
// other field empty; otherwise the type defaults to "website" and absent
// description and image become empty strings.
func (p LinkPreview) ToLegacy() LegacyPreview {
	if !p.Valid() {
		return LegacyPreview{Error: LegacyErrorMessage}
	}
	return LegacyPreview{
		LikelyType:  valueOr(p.Type, "website"),
		URL:         p.URL,
		Title:       p.Title,
		Description: valueOr(p.Description, ""),
		Image:       valueOr(p.Image, ""),
	}
}

func valueOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
