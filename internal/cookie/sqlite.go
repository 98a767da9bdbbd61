// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cookie

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// cookieSchema mirrors the fields a browser keeps for a first-party cookie.
const cookieSchema = `
CREATE TABLE IF NOT EXISTS cookies (
    origin     TEXT NOT NULL,
    name       TEXT NOT NULL,
    value      TEXT NOT NULL,
    path       TEXT NOT NULL DEFAULT '/',
    same_site  INTEGER NOT NULL DEFAULT 0,
    http_only  INTEGER NOT NULL DEFAULT 0,
    secure     INTEGER NOT NULL DEFAULT 0,
    expires_at INTEGER NOT NULL DEFAULT 0, -- Unix seconds, 0 = session cookie
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (origin, name)
) WITHOUT ROWID;
`

// SQLiteBackend persists cookies in a SQLite database so the active chat
// survives a restart.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the cookie database at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create cookie directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cookie database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(cookieSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cookie schema: %w", err)
	}

	// SECURITY: cookie values are bearer tokens
	_ = os.Chmod(path, 0600)

	return &SQLiteBackend{db: db}, nil
}

// Load returns all cookies stored for origin.
func (b *SQLiteBackend) Load(origin string) ([]*http.Cookie, error) {
	rows, err := b.db.Query(
		`SELECT name, value, path, same_site, http_only, secure, expires_at
		 FROM cookies WHERE origin = ?`, origin)
	if err != nil {
		return nil, fmt.Errorf("failed to query cookies: %w", err)
	}
	defer rows.Close()

	var out []*http.Cookie
	for rows.Next() {
		var (
			c                http.Cookie
			sameSite         int
			httpOnly, secure bool
			expiresAt        int64
		)
		if err := rows.Scan(&c.Name, &c.Value, &c.Path, &sameSite, &httpOnly, &secure, &expiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan cookie: %w", err)
		}
		c.SameSite = http.SameSite(sameSite)
		c.HttpOnly = httpOnly
		c.Secure = secure
		if expiresAt > 0 {
			c.Expires = time.Unix(expiresAt, 0)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Save upserts a cookie for origin.
func (b *SQLiteBackend) Save(origin string, c *http.Cookie) error {
	var expiresAt int64
	if !c.Expires.IsZero() {
		expiresAt = c.Expires.Unix()
	}

	_, err := b.db.Exec(`
		INSERT INTO cookies (origin, name, value, path, same_site, http_only, secure, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(origin, name) DO UPDATE SET
			value = excluded.value,
			path = excluded.path,
			same_site = excluded.same_site,
			http_only = excluded.http_only,
			secure = excluded.secure,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		origin, c.Name, c.Value, c.Path, int(c.SameSite), c.HttpOnly, c.Secure, expiresAt, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save cookie %s: %w", c.Name, err)
	}
	return nil
}

// Delete removes a cookie for origin.
func (b *SQLiteBackend) Delete(origin, name string) error {
	if _, err := b.db.Exec(`DELETE FROM cookies WHERE origin = ? AND name = ?`, origin, name); err != nil {
		return fmt.Errorf("failed to delete cookie %s: %w", name, err)
	}
	return nil
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

var _ Backend = (*SQLiteBackend)(nil)
