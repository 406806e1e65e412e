package database

const schema = `
CREATE TABLE IF NOT EXISTS account_tiers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    thumbnail_size_1 INTEGER,
    thumbnail_size_2 INTEGER,
    link_to_original INTEGER NOT NULL DEFAULT 0,
    link_expiration_time INTEGER
);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    account_tier_id INTEGER NOT NULL REFERENCES account_tiers (id),
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS images (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL REFERENCES users (id),
    account_tier_id INTEGER NOT NULL REFERENCES account_tiers (id),
    filename TEXT NOT NULL DEFAULT '',
    checksum TEXT NOT NULL DEFAULT '',
    original_ref TEXT NOT NULL,
    thumbnail_1_ref TEXT,
    thumbnail_2_ref TEXT,
    original_link TEXT,
    link_expires_at TEXT,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_images_owner_created ON images (owner_id, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_images_original_ref ON images (original_ref);
`
