package render

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// RewriteAssetURIs replaces every asset reference in body with a concrete
// URL under base ("http://host:port"). The substitution is flat text,
// independent of Markdown structure, so occurrences inside raw media-tag
// src attributes and plain text are rewritten too.
func RewriteAssetURIs(body, base string) string {
	return assetRefPattern.ReplaceAllStringFunc(body, func(m string) string {
		return base + "/asset/" + strings.TrimPrefix(m, AssetScheme)
	})
}

// shardLinkRenderer overrides link rendering. A shard:// destination
// becomes a non-navigating anchor carrying the target shard id as a data
// attribute for host-side click interception; every other destination
// opens in a new browsing context with no opener back-reference.
type shardLinkRenderer struct {
	html.Config
}

func newShardLinkRenderer(opts ...html.Option) renderer.NodeRenderer {
	r := &shardLinkRenderer{Config: html.NewConfig()}
	for _, opt := range opts {
		opt.SetHTMLOption(&r.Config)
	}
	return r
}

func (r *shardLinkRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindLink, r.renderLink)
}

func (r *shardLinkRenderer) renderLink(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</a>")
		return ast.WalkContinue, nil
	}
	n := node.(*ast.Link)
	if id, ok := strings.CutPrefix(string(n.Destination), ShardScheme); ok {
		_, _ = w.WriteString(`<a href="#" class="shard-link" data-shard-id="`)
		_, _ = w.Write(util.EscapeHTML([]byte(id)))
		_, _ = w.WriteString(`">`)
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString(`<a href="`)
	if r.Unsafe || !html.IsDangerousURL(n.Destination) {
		_, _ = w.Write(util.EscapeHTML(util.URLEscape(n.Destination, true)))
	}
	_, _ = w.WriteString(`" target="_blank" rel="noopener noreferrer"`)
	if n.Title != nil {
		_, _ = w.WriteString(` title="`)
		r.Writer.Write(w, n.Title)
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')
	return ast.WalkContinue, nil
}

type shardLinks struct{}

// ShardLinks is the goldmark extension installing the link override.
var ShardLinks = &shardLinks{}

func (e *shardLinks) Extend(m goldmark.Markdown) {
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(newShardLinkRenderer(), 500),
	))
}
