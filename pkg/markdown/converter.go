package markdown

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

// ToHTML converts markdown to HTML suitable for embedding in a transcript
// export page.
func ToHTML(markdown string) string {
	if markdown == "" {
		return ""
	}

	// Convert markdown to HTML using blackfriday
	html := string(blackfriday.Run([]byte(markdown), blackfriday.WithExtensions(blackfriday.CommonExtensions)))

	return sanitizeHTML(html)
}

var (
	scriptPattern    = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	stylePattern     = regexp.MustCompile(`(?is)<style\b.*?</style>`)
	eventAttrPattern = regexp.MustCompile(`\son[a-zA-Z]+="[^"]*"`)
	jsHrefPattern    = regexp.MustCompile(`href="javascript:[^"]*"`)
	tagPattern       = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9]*)(?:\s[^>]*)?>`)
	tagNamePattern   = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9]*)`)
)

// supportedTags lists the display tags kept in exported HTML.
var supportedTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "br": true, "hr": true, "blockquote": true,
	"ul": true, "ol": true, "li": true,
	"table": true, "thead": true, "tbody": true, "tr": true, "th": true, "td": true,
	"b": true, "strong": true, "i": true, "em": true, "u": true, "s": true, "del": true,
	"code": true, "pre": true, "a": true,
}

// sanitizeHTML strips everything outside the supported display tags
func sanitizeHTML(html string) string {
	// Drop script and style blocks entirely
	html = scriptPattern.ReplaceAllString(html, "")
	html = stylePattern.ReplaceAllString(html, "")

	// Strip inline event handlers and javascript hrefs
	html = eventAttrPattern.ReplaceAllString(html, "")
	html = jsHrefPattern.ReplaceAllString(html, `href="#"`)

	// Remove any tag not on the allowlist
	html = tagPattern.ReplaceAllStringFunc(html, func(match string) string {
		tagMatch := tagNamePattern.FindStringSubmatch(match)
		if len(tagMatch) > 1 && supportedTags[strings.ToLower(tagMatch[1])] {
			return match
		}
		return ""
	})

	// Clean up extra newlines
	html = regexp.MustCompile(`\n{3,}`).ReplaceAllString(html, "\n\n")

	return strings.TrimSpace(html)
}
