package sitemap

import (
	"html"
	"regexp"
	"strings"
)

var locPattern = regexp.MustCompile(`(?s)<loc>(.*?)</loc>`)

// ExtractLocs returns the text of every <loc> element in document order.
// Anything outside <loc> tags is ignored, so broken XML still yields the
// URLs it contains. A CDATA section is unwrapped as is; otherwise entity
// references such as &amp; are unescaped.
func ExtractLocs(doc []byte) []string {
	matches := locPattern.FindAllSubmatch(doc, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if loc := locText(string(m[1])); loc != "" {
			out = append(out, loc)
		}
	}
	return out
}

func locText(raw string) string {
	raw = strings.TrimSpace(raw)
	if inner, ok := strings.CutPrefix(raw, "<![CDATA["); ok {
		if inner, ok = strings.CutSuffix(inner, "]]>"); ok {
			return strings.TrimSpace(inner)
		}
	}
	return strings.TrimSpace(html.UnescapeString(raw))
}

// Diff returns the sitemap URLs not present in cached, in sitemap order.
// A URL the sitemap lists twice is returned twice. Any cached entry counts,
// expired or not.
func Diff(doc []byte, cached map[string]struct{}) []string {
	var out []string
	for _, loc := range ExtractLocs(doc) {
		if _, ok := cached[loc]; ok {
			continue
		}
		out = append(out, loc)
	}
	return out
}
