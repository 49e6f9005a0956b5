package preview

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/wudi/linkpreview/internal/logging"
)

// Parser turns a head section into meta tags in document order. Mismatched
// tags are dropped, never reported.
type Parser interface {
	Parse(head string) []MetaTag
}

var tagPattern = regexp.MustCompile(
	`<(meta|link)\s+(name|property|itemprop|rel)="([^"]*)"\s+(?:content|href)="([^"]*)"`,
)

// PatternParser is the default Parser: Tokenize followed by ParseCandidate.
type PatternParser struct{}

func (PatternParser) Parse(head string) []MetaTag {
	var tags []MetaTag
	for _, candidate := range Tokenize(head) {
		if !hasKeyAttribute(candidate) {
			continue
		}
		tag, ok := ParseCandidate(candidate)
		if !ok {
			logging.Debug("Skipping unparseable tag", zap.String("tag", candidate))
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

func hasKeyAttribute(candidate string) bool {
	return strings.Contains(candidate, "name=") ||
		strings.Contains(candidate, "property=") ||
		strings.Contains(candidate, "itemprop=")
}

// ParseCandidate matches one candidate tag. The element must be meta or link,
// followed by exactly one key attribute then one content or href attribute,
// both double quoted.
func ParseCandidate(candidate string) (MetaTag, bool) {
	m := tagPattern.FindStringSubmatch(candidate)
	if m == nil {
		return MetaTag{}, false
	}
	element, attr, key, content := m[1], m[2], m[3], m[4]

	if element == "link" {
		key = "link:" + key
	}

	var k TagKey = Name(key)
	if attr == "property" {
		k = Property(key)
	}
	return MetaTag{Key: k, Content: content, Raw: candidate}, true
}
