package vault

const schemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS shards (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS assets (
	id TEXT PRIMARY KEY,
	shard_id TEXT,
	file_name TEXT NOT NULL,
	original_name TEXT,
	mime_type TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS assets_by_shard ON assets(shard_id);

CREATE VIRTUAL TABLE IF NOT EXISTS shards_fts USING fts5(
	id UNINDEXED,
	title,
	body
);
`
