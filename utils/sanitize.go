package utils

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	linkPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

	// textPolicy admits only what FormatText itself produces.
	textPolicy = func() *bluemonday.Policy {
		p := bluemonday.NewPolicy()
		p.AllowElements("br")
		p.AllowAttrs("href").OnElements("a")
		p.AllowURLSchemes("http", "https")
		p.RequireParseableURLs(true)
		p.RequireNoFollowOnLinks(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		return p
	}()
)

// FormatText renders stored user text as HTML for display. Markup in the text is
// escaped, newlines become <br> and http(s) URLs become nofollow links.
// The stored text itself is never modified.
func FormatText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var b strings.Builder
	last := 0
	for _, loc := range linkPattern.FindAllStringIndex(text, -1) {
		b.WriteString(html.EscapeString(text[last:loc[0]]))
		link := html.EscapeString(text[loc[0]:loc[1]])
		b.WriteString(`<a href="` + link + `">` + link + `</a>`)
		last = loc[1]
	}
	b.WriteString(html.EscapeString(text[last:]))
	return textPolicy.Sanitize(strings.ReplaceAll(b.String(), "\n", "<br>"))
}
