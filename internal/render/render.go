package render

import (
	"bytes"
	"html/template"
	"log/slog"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer turns a shard's raw body text into a standalone HTML document
// for the sandboxed viewer. Pipeline, strictly ordered: asset URI rewrite
// over raw text, placeholder protection (code through the highlight
// adapter, trusted media tags verbatim), Markdown parse with the link
// override and hard line breaks, placeholder restoration, then the
// document wrapper. Raw HTML passthrough stays off; trusted tags survive
// only via the protector.
type Renderer struct {
	md        goldmark.Markdown
	assetBase string
	theme     string
}

func New(assetBase, theme string) *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, ShardLinks),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	return &Renderer{md: md, assetBase: assetBase, theme: theme}
}

// Render produces the full viewer document. A Markdown-level failure on
// one malformed body never aborts the render; the body degrades to
// escaped plain text inside the same wrapper so the surface is never
// left blank.
func (r *Renderer) Render(title, body string) string {
	rewritten := RewriteAssetURIs(body, r.assetBase)
	shielded, shield := Protect(rewritten)

	var fragment string
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(shielded), &buf); err != nil {
		slog.Warn("markdown convert failed", "title", title, "err", err)
		fragment = "<pre>" + codeEscaper.Replace(body) + "</pre>"
	} else {
		fragment = shield.Restore(buf.String())
	}

	css := lightCSS
	if r.theme == "dark" {
		css = darkCSS
	}
	var out bytes.Buffer
	err := docTemplate.Execute(&out, docData{
		Title: title,
		Body:  template.HTML(fragment),
		CSS:   template.CSS(css),
	})
	if err != nil {
		slog.Error("document template failed", "title", title, "err", err)
		return fragment
	}
	return out.String()
}

type docData struct {
	Title string
	Body  template.HTML
	CSS   template.CSS
}

// The wrapper is fully self-contained: styles inlined, no references to
// host state. Clicks on shard-link anchors are intercepted and reported
// to the embedding page as a structured open-reference message; the
// anchor itself never navigates.
var docTemplate = template.Must(template.New("shard").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>{{.CSS}}</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div id="content">
{{.Body}}
</div>
<script>
document.addEventListener('click', function (ev) {
	var a = ev.target.closest('a[data-shard-id]');
	if (!a) {
		return;
	}
	ev.preventDefault();
	parent.postMessage({ type: 'open-reference', id: a.getAttribute('data-shard-id') }, '*');
});
</script>
</body>
</html>
`))

const lightCSS = `
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
	line-height: 1.6; color: #333; background: #fff; max-width: 800px; margin: 0 auto; padding: 20px; }
h1, h2, h3, h4, h5, h6 { color: #2c3e50; }
a { color: #0066cc; }
a.shard-link { color: #7048b6; text-decoration: underline dotted; }
code { background: #f4f4f4; padding: 2px 4px; border-radius: 3px; }
pre { background: #f4f4f4; padding: 15px; border-radius: 5px; overflow-x: auto; }
pre code { background: none; padding: 0; }
blockquote { border-left: 4px solid #3498db; margin: 0; padding-left: 20px; color: #7f8c8d; }
img, video { max-width: 100%; height: auto; border-radius: 5px; }
table { border-collapse: collapse; width: 100%; margin: 20px 0; }
th, td { border: 1px solid #ddd; padding: 8px 12px; text-align: left; }
th { background: #f2f2f2; }
`

const darkCSS = `
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
	line-height: 1.6; color: #e0e0e0; background: #1a1a1a; max-width: 800px; margin: 0 auto; padding: 20px; }
h1, h2, h3, h4, h5, h6 { color: #f0f0f0; }
a { color: #4da6ff; }
a.shard-link { color: #b794f6; text-decoration: underline dotted; }
code { background: #2d2d2d; padding: 2px 4px; border-radius: 3px; }
pre { background: #2d2d2d; padding: 15px; border-radius: 5px; overflow-x: auto; }
pre code { background: none; padding: 0; }
blockquote { border-left: 4px solid #4da6ff; margin: 0; padding-left: 20px; color: #b0b0b0; }
img, video { max-width: 100%; height: auto; border-radius: 5px; }
table { border-collapse: collapse; width: 100%; margin: 20px 0; }
th, td { border: 1px solid #404040; padding: 8px 12px; text-align: left; }
th { background: #2d2d2d; }
`
