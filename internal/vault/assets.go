package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"shardkeep/internal/storage/fs"
)

// mimeByExtension guesses a media type from the imported file's
// extension. Unknown extensions fall back to octet-stream.
var mimeByExtension = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mkv":  "video/x-matroska",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"pdf":  "application/pdf",
	"vtt":  "text/vtt",
	"srt":  "application/x-subrip",
}

// Asset is one imported media file. The stored file keeps the original
// extension for convenience but its content is encrypted.
type Asset struct {
	ID           string
	ShardID      string
	FileName     string
	OriginalName string
	MimeType     string
	CreatedAt    time.Time
}

// ImportAsset encrypts data and stores it as a new asset. The asset is
// unowned until a shard body referencing it is saved.
func (v *Vault) ImportAsset(ctx context.Context, originalName string, data []byte) (Asset, error) {
	id := uuid.NewString()
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	mimeType, ok := mimeByExtension[ext]
	if !ok {
		mimeType = "application/octet-stream"
	}
	fileName := id
	if ext != "" {
		fileName = id + "." + ext
	}
	stem := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))

	sealed, err := seal(v.gcm, data)
	if err != nil {
		return Asset{}, fmt.Errorf("encrypt asset: %w", err)
	}
	if err := fs.WriteFileAtomic(filepath.Join(v.dir, assetsDirName, fileName), sealed, 0o600); err != nil {
		return Asset{}, fmt.Errorf("write asset: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	_, err = v.execContext(ctx,
		"INSERT INTO assets(id, shard_id, file_name, original_name, mime_type, created_at) VALUES(?, NULL, ?, ?, ?, ?)",
		id, fileName, stem, mimeType, now.Format(time.RFC3339))
	if err != nil {
		_ = os.Remove(filepath.Join(v.dir, assetsDirName, fileName))
		return Asset{}, fmt.Errorf("insert asset: %w", err)
	}
	return Asset{ID: id, FileName: fileName, OriginalName: stem, MimeType: mimeType, CreatedAt: now}, nil
}

// OpenAsset decrypts one asset's content and returns it with its media
// type. Returns ErrNotFound for unknown ids.
func (v *Vault) OpenAsset(ctx context.Context, id string) ([]byte, string, error) {
	var fileName, mimeType string
	err := v.queryRowContext(ctx, "SELECT file_name, mime_type FROM assets WHERE id = ?", id).
		Scan(&fileName, &mimeType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if err := fs.ValidAssetFileName(fileName); err != nil {
		return nil, "", err
	}
	sealed, err := os.ReadFile(filepath.Join(v.dir, assetsDirName, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("read asset: %w", err)
	}
	data, err := unseal(v.gcm, sealed)
	if err != nil {
		return nil, "", fmt.Errorf("decrypt asset: %w", err)
	}
	return data, mimeType, nil
}

// DeleteAsset removes one asset row and its encrypted file.
func (v *Vault) DeleteAsset(ctx context.Context, id string) error {
	var fileName string
	err := v.queryRowContext(ctx, "SELECT file_name FROM assets WHERE id = ?", id).Scan(&fileName)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if _, err := v.execContext(ctx, "DELETE FROM assets WHERE id = ?", id); err != nil {
		return err
	}
	v.removeAssetFiles([]string{fileName})
	return nil
}

// ListAssets returns the assets owned by one shard.
func (v *Vault) ListAssets(ctx context.Context, shardID string) ([]Asset, error) {
	rows, err := v.queryContext(ctx,
		"SELECT id, shard_id, file_name, original_name, mime_type, created_at FROM assets WHERE shard_id = ? ORDER BY created_at, id",
		shardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets := make([]Asset, 0)
	for rows.Next() {
		var a Asset
		var owner sql.NullString
		var created string
		if err := rows.Scan(&a.ID, &owner, &a.FileName, &a.OriginalName, &a.MimeType, &created); err != nil {
			return nil, err
		}
		a.ShardID = owner.String
		if a.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
