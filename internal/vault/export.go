package vault

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"shardkeep/internal/storage/fs"
)

type exportFrontmatter struct {
	Title   string    `yaml:"title"`
	Tags    []string  `yaml:"tags,omitempty"`
	Created time.Time `yaml:"created"`
	Updated time.Time `yaml:"updated"`
}

// ExportShards writes every shard as a Markdown file with YAML
// frontmatter into dir and returns the number of files written. Bodies
// are written as stored, pseudo-URIs included.
func (v *Vault) ExportShards(ctx context.Context, dir string) (int, error) {
	shards, err := v.ListShards(ctx)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create export dir: %w", err)
	}

	seen := make(map[string]bool)
	count := 0
	for _, shard := range shards {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		name := slugify(shard.Title)
		if name == "" {
			name = shard.ID
		}
		if seen[name] {
			// Two shards with the same title; disambiguate with the id.
			name = name + "-" + shortID(shard.ID)
		}
		seen[name] = true

		front, err := yaml.Marshal(exportFrontmatter{
			Title:   shard.Title,
			Tags:    shard.Tags,
			Created: shard.CreatedAt,
			Updated: shard.UpdatedAt,
		})
		if err != nil {
			return count, fmt.Errorf("encode frontmatter: %w", err)
		}

		var buf bytes.Buffer
		buf.WriteString("---\n")
		buf.Write(front)
		buf.WriteString("---\n\n")
		buf.WriteString(shard.Body)
		if !strings.HasSuffix(shard.Body, "\n") {
			buf.WriteByte('\n')
		}

		path := filepath.Join(dir, name+".md")
		if err := fs.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
			return count, fmt.Errorf("write %s: %w", path, err)
		}
		count++
	}
	return count, nil
}

func slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
