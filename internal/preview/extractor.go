package preview

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	"github.com/wudi/linkpreview/internal/errors"
	"github.com/wudi/linkpreview/internal/logging"
)

// urlPattern is deliberately loose and unanchored: any string containing
// something URL shaped passes.
var urlPattern = regexp.MustCompile(
	`(https?://)?(www\.)?[-a-zA-Z0-9@:%._\+~#=]{2,256}\.[a-z]{2,6}\b([-a-zA-Z0-9@:%_\+.~#?&//=]*)`,
)

// ValidURL reports whether s contains a URL shaped substring.
func ValidURL(s string) bool {
	return urlPattern.MatchString(s)
}

// Fetcher retrieves a document body.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// Extractor runs the full fetch, slice, parse and collate pipeline.
type Extractor struct {
	fetcher  Fetcher
	parser   Parser
	collator *Collator
}

// NewExtractor creates an Extractor. A nil parser selects PatternParser and a
// nil collator uses DefaultBaseURL.
func NewExtractor(fetcher Fetcher, parser Parser, collator *Collator) *Extractor {
	if parser == nil {
		parser = PatternParser{}
	}
	if collator == nil {
		collator = NewCollator("")
	}
	return &Extractor{fetcher: fetcher, parser: parser, collator: collator}
}

// Extract builds the preview for rawURL. It fails with errors.ErrInvalidURL
// when rawURL does not look like a URL, and errors.ErrFetchFailed when the
// page cannot be retrieved or has no head section. A page with no usable tags
// is not an error; the preview is simply empty.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (LinkPreview, error) {
	if !ValidURL(rawURL) {
		return LinkPreview{}, errors.ErrInvalidURL
	}

	body, err := e.fetcher.Get(ctx, rawURL)
	if err != nil {
		return LinkPreview{}, errors.ErrFetchFailed.Wrap(err)
	}

	head, err := HeadSection(string(body))
	if err != nil {
		return LinkPreview{}, errors.ErrFetchFailed.Wrap(err)
	}

	tags := e.parser.Parse(head)
	p := e.collator.Collate(tags)
	logging.Debug("Collated preview",
		zap.String("url", rawURL),
		zap.Int("tags", len(tags)),
		zap.Bool("valid", p.Valid()),
	)
	return p, nil
}
