package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestShardCRUD(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()

	created, err := v.CreateShard(ctx, "First note", "hello world", []string{"inbox"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps set")
	}

	got, err := v.GetShard(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "First note" || got.Body != "hello world" {
		t.Fatalf("unexpected shard: %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "inbox" {
		t.Fatalf("unexpected tags: %v", got.Tags)
	}

	updated, err := v.UpdateShard(ctx, created.ID, "Renamed", "new body", nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) && !updated.UpdatedAt.Equal(updated.CreatedAt) {
		t.Fatalf("updated_at went backwards")
	}
	got, err = v.GetShard(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Title != "Renamed" || got.Body != "new body" {
		t.Fatalf("update not persisted: %+v", got)
	}
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Fatalf("expected empty tags, got %v", got.Tags)
	}

	if err := v.DeleteShard(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := v.GetShard(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestGetShardNotFound(t *testing.T) {
	v := openTestVault(t)
	if _, err := v.GetShard(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateShardNotFound(t *testing.T) {
	v := openTestVault(t)
	if _, err := v.UpdateShard(context.Background(), "missing", "t", "b", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteShardNotFound(t *testing.T) {
	v := openTestVault(t)
	if err := v.DeleteShard(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListShardsOrder(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()

	a, err := v.CreateShard(ctx, "A", "body a", nil)
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := v.CreateShard(ctx, "B", "body b", nil)
	if err != nil {
		t.Fatalf("create b: %v", err)
	}
	// Touch A so it becomes the most recently updated.
	if _, err := v.execContext(ctx, "UPDATE shards SET updated_at = '2030-01-01T00:00:00Z' WHERE id = ?", a.ID); err != nil {
		t.Fatalf("touch a: %v", err)
	}

	shards, err := v.ListShards(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(shards) != 2 {
		t.Fatalf("expected 2 shards, got %d", len(shards))
	}
	if shards[0].ID != a.ID || shards[1].ID != b.ID {
		t.Fatalf("unexpected order: %s, %s", shards[0].ID, shards[1].ID)
	}
}

func TestSearchShards(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()

	target, err := v.CreateShard(ctx, "Gardening", "tomatoes need regular watering", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := v.CreateShard(ctx, "Unrelated", "nothing to see", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	results, err := v.SearchShards(ctx, "tomatoes", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != target.ID {
		t.Fatalf("unexpected results: %+v", results)
	}
	if !strings.Contains(results[0].Snippet, "<mark>") {
		t.Fatalf("expected highlighted snippet, got %q", results[0].Snippet)
	}

	if results, err = v.SearchShards(ctx, "", 10); err != nil || results != nil {
		t.Fatalf("expected empty query to return nothing, got %v, %v", results, err)
	}
}

func TestSearchReflectsUpdates(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()

	shard, err := v.CreateShard(ctx, "Draft", "about zebras", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := v.UpdateShard(ctx, shard.ID, "Draft", "about giraffes", nil); err != nil {
		t.Fatalf("update: %v", err)
	}

	results, err := v.SearchShards(ctx, "zebras", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("stale index: %+v", results)
	}
	results, err = v.SearchShards(ctx, "giraffes", 10)
	if err != nil || len(results) != 1 {
		t.Fatalf("expected new body indexed, got %v, %v", results, err)
	}
}

func TestUpdateReclaimsDroppedAssets(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()

	kept, err := v.ImportAsset(ctx, "kept.png", []byte("kept-bytes"))
	if err != nil {
		t.Fatalf("import kept: %v", err)
	}
	dropped, err := v.ImportAsset(ctx, "dropped.png", []byte("dropped-bytes"))
	if err != nil {
		t.Fatalf("import dropped: %v", err)
	}

	body := "![a](asset://" + kept.ID + ")\n![b](asset://" + dropped.ID + ")"
	shard, err := v.CreateShard(ctx, "Media", body, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	owned, err := v.ListAssets(ctx, shard.ID)
	if err != nil || len(owned) != 2 {
		t.Fatalf("expected both assets claimed, got %v, %v", owned, err)
	}

	newBody := "![a](asset://" + kept.ID + ")"
	if _, err := v.UpdateShard(ctx, shard.ID, "Media", newBody, nil); err != nil {
		t.Fatalf("update: %v", err)
	}

	if _, _, err := v.OpenAsset(ctx, dropped.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected dropped asset gone, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(v.Dir(), assetsDirName, dropped.FileName)); !os.IsNotExist(err) {
		t.Fatalf("expected dropped asset file unlinked, got %v", err)
	}
	if data, _, err := v.OpenAsset(ctx, kept.ID); err != nil || string(data) != "kept-bytes" {
		t.Fatalf("kept asset damaged: %v", err)
	}
}

func TestDeleteShardCascadesAssets(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()

	asset, err := v.ImportAsset(ctx, "pic.png", []byte("pixels"))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	shard, err := v.CreateShard(ctx, "Holder", "![p](asset://"+asset.ID+")", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := v.DeleteShard(ctx, shard.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := v.OpenAsset(ctx, asset.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected asset gone with its shard, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(v.Dir(), assetsDirName, asset.FileName)); !os.IsNotExist(err) {
		t.Fatalf("expected asset file unlinked, got %v", err)
	}
}

func TestClaimTakesOwnershipFromOtherShard(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()

	asset, err := v.ImportAsset(ctx, "shared.png", []byte("shared"))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	first, err := v.CreateShard(ctx, "First", "![x](asset://"+asset.ID+")", nil)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := v.CreateShard(ctx, "Second", "![x](asset://"+asset.ID+")", nil)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	owned, err := v.ListAssets(ctx, second.ID)
	if err != nil || len(owned) != 1 {
		t.Fatalf("expected second shard to own asset, got %v, %v", owned, err)
	}
	owned, err = v.ListAssets(ctx, first.ID)
	if err != nil || len(owned) != 0 {
		t.Fatalf("expected first shard to have lost asset, got %v, %v", owned, err)
	}
}
