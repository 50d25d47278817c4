package render

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedCodePattern = regexp.MustCompile("(?s)```([A-Za-z0-9_+#-]*)[ \t]*\r?\n(.*?)```")

	// Opening, closing and self-closing forms of the trusted media
	// embedding tags. A closed set; anything else goes through the
	// Markdown parser and gets escaped like any other text.
	mediaTagPattern = regexp.MustCompile(`(?i)</?(?:video|audio|source|track|img)\b[^>]*>`)
)

// Shield holds the placeholder tables for one render pass. The Markdown
// parser must never see raw code (it would re-escape or reflow it) nor
// the trusted media tags (it would escape them); both re-enter the final
// output as finished fragments on Restore. A Shield is never reused
// across passes.
type Shield struct {
	code []string
	html []string
}

func codeToken(i int) string { return fmt.Sprintf("@@SKC%d@@", i) }
func htmlToken(i int) string { return fmt.Sprintf("@@SKH%d@@", i) }

// Protect replaces fenced code blocks and trusted media tags with inert
// tokens. Code blocks are rendered through the highlight adapter here, so
// the table already holds finished markup. Media tags are kept verbatim.
func Protect(text string) (string, *Shield) {
	s := &Shield{}
	shielded := fencedCodePattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := fencedCodePattern.FindStringSubmatch(m)
		s.code = append(s.code, HighlightCode(sub[1], sub[2]))
		return codeToken(len(s.code) - 1)
	})
	shielded = mediaTagPattern.ReplaceAllStringFunc(shielded, func(m string) string {
		s.html = append(s.html, m)
		return htmlToken(len(s.html) - 1)
	})
	return shielded, s
}

// Restore substitutes the shielded fragments back into parsed output.
// The parser wraps a token standing alone in a paragraph; that wrapping
// is removed first so block-level fragments do not end up nested inside
// an invalid <p>.
func (s *Shield) Restore(html string) string {
	for i, frag := range s.code {
		html = replaceToken(html, codeToken(i), frag)
	}
	for i, frag := range s.html {
		html = replaceToken(html, htmlToken(i), frag)
	}
	return html
}

func replaceToken(html, token, frag string) string {
	html = strings.ReplaceAll(html, "<p>"+token+"</p>", frag)
	return strings.ReplaceAll(html, token, frag)
}
