package preview

import (
	"strings"

	"golang.org/x/net/html"
)

// HTMLParser is a structural Parser built on the x/net/html tokenizer. Unlike
// PatternParser it accepts attributes in any order, single or unquoted
// values, and decodes entities.
type HTMLParser struct{}

func (HTMLParser) Parse(head string) []MetaTag {
	var tags []MetaTag
	z := html.NewTokenizer(strings.NewReader(head))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a tokenizer error; either way keep what was parsed.
			return tags
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "meta" && tok.Data != "link" {
				continue
			}
			if tag, ok := tagFromToken(tok); ok {
				tags = append(tags, tag)
			}
		}
	}
}

func tagFromToken(tok html.Token) (MetaTag, bool) {
	var (
		attr, key, content string
		haveKey, haveBody  bool
		named              bool
	)
	for _, a := range tok.Attr {
		switch a.Key {
		case "name", "property", "itemprop", "rel":
			if a.Key != "rel" {
				named = true
			}
			if !haveKey {
				attr, key, haveKey = a.Key, a.Val, true
			}
		case "content", "href":
			if !haveBody {
				content, haveBody = a.Val, true
			}
		}
	}
	if !named || !haveKey || !haveBody {
		return MetaTag{}, false
	}

	if tok.Data == "link" {
		key = "link:" + key
	}
	var k TagKey = Name(key)
	if attr == "property" {
		k = Property(key)
	}
	return MetaTag{Key: k, Content: content, Raw: tok.String()}, true
}
