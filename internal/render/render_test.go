package render

import (
	"strings"
	"testing"
)

func TestRenderShardLinkAnchor(t *testing.T) {
	r := New("http://127.0.0.1:9999", "light")
	out := r.Render("Note", "[Foo](shard://doc42)")
	if !strings.Contains(out, `href="#"`) {
		t.Fatalf("expected non-navigating anchor, got %q", out)
	}
	if !strings.Contains(out, `data-shard-id="doc42"`) {
		t.Fatalf("expected shard id data attribute, got %q", out)
	}
	if !strings.Contains(out, ">Foo</a>") {
		t.Fatalf("expected link text, got %q", out)
	}
}

func TestRenderExternalLinkNoOpener(t *testing.T) {
	r := New("http://127.0.0.1:9999", "light")
	out := r.Render("Note", "[site](https://example.com)")
	if !strings.Contains(out, `target="_blank"`) || !strings.Contains(out, `rel="noopener noreferrer"`) {
		t.Fatalf("expected external anchor attributes, got %q", out)
	}
}

func TestRenderRewritesAssetURIsEverywhere(t *testing.T) {
	r := New("http://127.0.0.1:4242", "light")
	body := "![pic](asset://img-1)\n\n<video src=\"asset://vid-2\"></video>\n\nplain asset://raw-3"
	out := r.Render("Note", body)
	for _, id := range []string{"img-1", "vid-2", "raw-3"} {
		if !strings.Contains(out, "http://127.0.0.1:4242/asset/"+id) {
			t.Fatalf("expected rewrite for %s, got %q", id, out)
		}
	}
	if strings.Contains(out, "asset://") {
		t.Fatalf("raw scheme must not survive render, got %q", out)
	}
}

func TestRenderCodeBlockNotReescaped(t *testing.T) {
	r := New("http://127.0.0.1:9999", "light")
	out := r.Render("Note", "```\n<b>raw</b> & *stars*\n```")
	if !strings.Contains(out, "&lt;b&gt;raw&lt;/b&gt; &amp; *stars*") {
		t.Fatalf("expected escaped-once code, got %q", out)
	}
	if strings.Contains(out, "&amp;lt;") {
		t.Fatalf("code was escaped twice: %q", out)
	}
	if strings.Contains(out, "<em>stars</em>") {
		t.Fatalf("code content was parsed as Markdown: %q", out)
	}
}

func TestRenderMediaTagSurvivesVerbatim(t *testing.T) {
	r := New("http://127.0.0.1:9999", "light")
	tag := `<video src="http://127.0.0.1:9999/asset/v-1" controls>`
	out := r.Render("Note", "watch\n\n"+tag+"</video>")
	if !strings.Contains(out, tag) {
		t.Fatalf("expected verbatim media tag, got %q", out)
	}
	if strings.Contains(out, "&lt;video") {
		t.Fatalf("media tag was escaped: %q", out)
	}
}

func TestRenderUntrustedHTMLEscaped(t *testing.T) {
	r := New("http://127.0.0.1:9999", "light")
	out := r.Render("Note", "<script>alert(1)</script>")
	if strings.Contains(out, "<script>alert(1)") {
		t.Fatalf("untrusted script must not pass through, got %q", out)
	}
}

func TestRenderStandaloneDocument(t *testing.T) {
	r := New("http://127.0.0.1:9999", "dark")
	out := r.Render("My Title", "hello")
	for _, want := range []string{"<!DOCTYPE html>", "<title>My Title</title>", "<style>", "open-reference", "<h1>My Title</h1>"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in document, got %q", want, out)
		}
	}
}

func TestRenderHardLineBreaks(t *testing.T) {
	r := New("http://127.0.0.1:9999", "light")
	out := r.Render("Note", "line one\nline two")
	if !strings.Contains(out, "<br") {
		t.Fatalf("expected preserved line break, got %q", out)
	}
}

func TestRewriteAssetURIsFlat(t *testing.T) {
	got := RewriteAssetURIs("a asset://x b asset://x", "http://127.0.0.1:1")
	want := "a http://127.0.0.1:1/asset/x b http://127.0.0.1:1/asset/x"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
