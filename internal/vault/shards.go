package vault

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"shardkeep/internal/render"
	"shardkeep/internal/storage/fs"
)

// Shard is one user-authored content unit. Body is the sole carrier of
// media references; the asset rows it references are owned by it.
type Shard struct {
	ID        string
	Title     string
	Body      string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SearchResult is one full-text search hit.
type SearchResult struct {
	ID      string
	Title   string
	Snippet string
}

// CreateShard inserts a new shard and claims every asset its body
// references.
func (v *Vault) CreateShard(ctx context.Context, title, body string, tags []string) (Shard, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Second)
	tagsJSON, err := marshalTags(tags)
	if err != nil {
		return Shard{}, err
	}

	tx, start, err := v.beginTx(ctx, "create shard")
	if err != nil {
		return Shard{}, err
	}
	defer v.rollbackTx(tx, "create shard", start)

	_, err = tx.ExecContext(ctx,
		"INSERT INTO shards(id, title, body, tags, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?)",
		id, title, body, tagsJSON, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return Shard{}, fmt.Errorf("insert shard: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO shards_fts(id, title, body) VALUES(?, ?, ?)", id, title, body); err != nil {
		return Shard{}, fmt.Errorf("index shard: %w", err)
	}
	if err := claimAssets(ctx, tx, id, body); err != nil {
		return Shard{}, err
	}
	if err := v.commitTx(tx, "create shard", start); err != nil {
		return Shard{}, err
	}
	return Shard{ID: id, Title: title, Body: body, Tags: tags, CreatedAt: now, UpdatedAt: now}, nil
}

// GetShard returns one shard by id, or ErrNotFound.
func (v *Vault) GetShard(ctx context.Context, id string) (Shard, error) {
	row := v.queryRowContext(ctx,
		"SELECT id, title, body, tags, created_at, updated_at FROM shards WHERE id = ?", id)
	shard, err := scanShard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Shard{}, ErrNotFound
	}
	return shard, err
}

// ListShards returns every shard, most recently updated first.
func (v *Vault) ListShards(ctx context.Context) ([]Shard, error) {
	rows, err := v.queryContext(ctx,
		"SELECT id, title, body, tags, created_at, updated_at FROM shards ORDER BY updated_at DESC, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shards := make([]Shard, 0)
	for rows.Next() {
		shard, err := scanShard(rows)
		if err != nil {
			return nil, err
		}
		shards = append(shards, shard)
	}
	return shards, rows.Err()
}

// SearchShards runs a full-text query over titles and bodies.
func (v *Vault) SearchShards(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if query == "" {
		return nil, nil
	}
	rows, err := v.queryContext(ctx,
		"SELECT id, title, snippet(shards_fts, 2, '<mark>', '</mark>', '…', 12) FROM shards_fts WHERE shards_fts MATCH ? ORDER BY rank LIMIT ?",
		query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]SearchResult, 0)
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// UpdateShard replaces a shard's title, body and tags. Media references
// dropped by the edit are reclaimed: their asset rows and encrypted files
// are deleted. References still present are (re)claimed for this shard.
func (v *Vault) UpdateShard(ctx context.Context, id, title, body string, tags []string) (Shard, error) {
	unlock := v.locker.Lock(id)
	defer unlock()

	old, err := v.GetShard(ctx, id)
	if err != nil {
		return Shard{}, err
	}
	now := time.Now().UTC().Truncate(time.Second)
	tagsJSON, err := marshalTags(tags)
	if err != nil {
		return Shard{}, err
	}

	tx, start, err := v.beginTx(ctx, "update shard")
	if err != nil {
		return Shard{}, err
	}
	defer v.rollbackTx(tx, "update shard", start)

	_, err = tx.ExecContext(ctx,
		"UPDATE shards SET title = ?, body = ?, tags = ?, updated_at = ? WHERE id = ?",
		title, body, tagsJSON, now.Format(time.RFC3339), id)
	if err != nil {
		return Shard{}, fmt.Errorf("update shard: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM shards_fts WHERE id = ?", id); err != nil {
		return Shard{}, err
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO shards_fts(id, title, body) VALUES(?, ?, ?)", id, title, body); err != nil {
		return Shard{}, err
	}

	removedFiles, err := reclaimAssets(ctx, tx, render.RemovedReferences(old.Body, body))
	if err != nil {
		return Shard{}, err
	}
	if err := claimAssets(ctx, tx, id, body); err != nil {
		return Shard{}, err
	}
	if err := v.commitTx(tx, "update shard", start); err != nil {
		return Shard{}, err
	}
	v.removeAssetFiles(removedFiles)

	return Shard{ID: id, Title: title, Body: body, Tags: tags, CreatedAt: old.CreatedAt, UpdatedAt: now}, nil
}

// DeleteShard removes a shard together with every asset it owns.
func (v *Vault) DeleteShard(ctx context.Context, id string) error {
	unlock := v.locker.Lock(id)
	defer unlock()

	tx, start, err := v.beginTx(ctx, "delete shard")
	if err != nil {
		return err
	}
	defer v.rollbackTx(tx, "delete shard", start)

	rows, err := tx.QueryContext(ctx, "SELECT file_name FROM assets WHERE shard_id = ?", id)
	if err != nil {
		return err
	}
	var files []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		files = append(files, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, "DELETE FROM assets WHERE shard_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM shards WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM shards_fts WHERE id = ?", id); err != nil {
		return err
	}
	if err := v.commitTx(tx, "delete shard", start); err != nil {
		return err
	}
	v.removeAssetFiles(files)
	return nil
}

// claimAssets forces ownership of every asset referenced by body onto the
// shard, including assets imported before the shard was first saved.
func claimAssets(ctx context.Context, tx *sql.Tx, shardID, body string) error {
	for assetID := range render.ExtractReferences(body) {
		if _, err := tx.ExecContext(ctx, "UPDATE assets SET shard_id = ? WHERE id = ?", shardID, assetID); err != nil {
			return fmt.Errorf("claim asset %s: %w", assetID, err)
		}
	}
	return nil
}

// reclaimAssets deletes the rows for removed references and returns the
// file names to unlink after commit.
func reclaimAssets(ctx context.Context, tx *sql.Tx, removed []string) ([]string, error) {
	var files []string
	for _, assetID := range removed {
		var name string
		err := tx.QueryRowContext(ctx, "SELECT file_name FROM assets WHERE id = ?", assetID).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", assetID); err != nil {
			return nil, err
		}
		files = append(files, name)
	}
	return files, nil
}

func (v *Vault) removeAssetFiles(names []string) {
	for _, name := range names {
		if err := fs.ValidAssetFileName(name); err != nil {
			slog.Warn("skip asset file with unsafe name", "name", name, "err", err)
			continue
		}
		path := filepath.Join(v.dir, assetsDirName, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("remove asset file", "name", name, "err", err)
		}
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShard(row rowScanner) (Shard, error) {
	var s Shard
	var tagsJSON, created, updated string
	if err := row.Scan(&s.ID, &s.Title, &s.Body, &tagsJSON, &created, &updated); err != nil {
		return Shard{}, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &s.Tags); err != nil {
		return Shard{}, fmt.Errorf("decode tags: %w", err)
	}
	var err error
	if s.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return Shard{}, fmt.Errorf("parse created_at: %w", err)
	}
	if s.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
		return Shard{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return s, nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	out, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(out), nil
}
