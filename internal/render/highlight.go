package render

import (
	"log/slog"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const highlightStyle = "github"

// codeEscaper escapes exactly &, < and > so the raw code re-enters the
// output verbatim. Quotes stay literal; the text never lands inside an
// attribute.
var codeEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// HighlightCode renders code as highlighted HTML for the given language
// hint. An empty or unrecognized hint, or any tokenise/format failure,
// degrades to escaped plain code; the caller never sees an error.
func HighlightCode(lang, code string) string {
	if lang == "" {
		return plainCode(code)
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		slog.Debug("highlight lexer not found", "lang", lang)
		return plainCode(code)
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		slog.Debug("highlight tokenise failed", "lang", lang, "err", err)
		return plainCode(code)
	}
	formatter := chromahtml.New()
	var buf strings.Builder
	if err := formatter.Format(&buf, styles.Get(highlightStyle), it); err != nil {
		slog.Debug("highlight format failed", "lang", lang, "err", err)
		return plainCode(code)
	}
	return buf.String()
}

func plainCode(code string) string {
	return "<pre><code>" + codeEscaper.Replace(code) + "</code></pre>"
}
