/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package storage keeps local issue drafts in an embedded SQLite
// database so mapping work survives crashes and offline stretches.
// The backend stays authoritative; drafts only bridge the gap until
// the next successful save.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"epaperadmin/internal/domain"
	applog "epaperadmin/internal/log"
	"epaperadmin/internal/version"
)

const (
	DraftDirName  = ".epa"
	DraftFileName = "drafts.sqlite"

	// schemaVersion tracks the local SQLite schema. Bump on breaking
	// schema changes and add a migration.
	schemaVersion = 1
)

// ErrDraftNotFound is returned when no draft exists for an issue.
var ErrDraftNotFound = errors.New("draft not found")

// DraftInfo is the listing projection of a stored draft.
type DraftInfo struct {
	EpaperID  string
	Title     string
	Dirty     bool
	UpdatedAt time.Time
}

// DraftPath returns the full path to the draft database file.
func DraftPath(root string) string {
	return filepath.Join(root, DraftDirName, DraftFileName)
}

// DraftStore wraps the embedded database.
type DraftStore struct {
	db *sql.DB
}

// Open ensures the draft database exists under root, opens it, enables
// WAL mode and brings the schema up to date.
func Open(root string) (*DraftStore, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "draft_open").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("draft root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, DraftDirName), 0o755); err != nil {
		l.Error("create draft dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create draft dir: %w", err)
	}

	path := DraftPath(root)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}

	l.Info("draft store ready", slog.String("path", path))
	return &DraftStore{db: db}, nil
}

// Close releases the database handle.
func (s *DraftStore) Close() error { return s.db.Close() }

// SaveDraft upserts the issue snapshot keyed by its id. The dirty flag
// is persisted alongside so a restart knows what still needs pushing.
func (s *DraftStore) SaveDraft(ctx context.Context, issue domain.Epaper) error {
	if strings.TrimSpace(issue.ID) == "" {
		return errors.New("epaper id is required")
	}
	doc, err := json.Marshal(issue)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (epaper_id, title, dirty, doc, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(epaper_id) DO UPDATE SET
			title = excluded.title,
			dirty = excluded.dirty,
			doc = excluded.doc,
			updated_at = excluded.updated_at`,
		issue.ID, issue.Title, boolToInt(issue.Dirty), string(doc), now)
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// LoadDraft returns the stored snapshot for an issue.
func (s *DraftStore) LoadDraft(ctx context.Context, epaperID string) (domain.Epaper, error) {
	var doc string
	var dirty int
	err := s.db.QueryRowContext(ctx,
		`SELECT doc, dirty FROM drafts WHERE epaper_id = ?`, epaperID).Scan(&doc, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Epaper{}, ErrDraftNotFound
	}
	if err != nil {
		return domain.Epaper{}, fmt.Errorf("load draft: %w", err)
	}
	var issue domain.Epaper
	if err := json.Unmarshal([]byte(doc), &issue); err != nil {
		return domain.Epaper{}, fmt.Errorf("decode draft: %w", err)
	}
	issue.Dirty = dirty != 0
	issue.Normalize()
	return issue, nil
}

// MarkSynced clears the dirty flag after a successful push.
func (s *DraftStore) MarkSynced(ctx context.Context, epaperID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE drafts SET dirty = 0, updated_at = ? WHERE epaper_id = ?`,
		time.Now().UTC().Format(time.RFC3339), epaperID)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDraftNotFound
	}
	return nil
}

// DeleteDraft removes a draft (e.g. after the issue is deleted
// server-side).
func (s *DraftStore) DeleteDraft(ctx context.Context, epaperID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE epaper_id = ?`, epaperID)
	return err
}

// ListDrafts returns all drafts, dirty ones first, newest first within
// each group.
func (s *DraftStore) ListDrafts(ctx context.Context) ([]DraftInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT epaper_id, title, dirty, updated_at FROM drafts
		 ORDER BY dirty DESC, updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()
	var out []DraftInfo
	for rows.Next() {
		var d DraftInfo
		var dirty int
		var ts string
		if err := rows.Scan(&d.EpaperID, &d.Title, &dirty, &ts); err != nil {
			return nil, err
		}
		d.Dirty = dirty != 0
		d.UpdatedAt, _ = time.Parse(time.RFC3339, ts)
		out = append(out, d)
	}
	return out, rows.Err()
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS drafts (
			epaper_id   TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			dirty       INTEGER NOT NULL DEFAULT 0,
			doc         TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx,
			`INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`,
			schemaVersion, version.String(), now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	case curSchema < schemaVersion:
		// Future migrations go here; only one schema exists so far.
		if _, err := db.ExecContext(ctx,
			`UPDATE version SET schema = ?, app = ?, updated_at = ? WHERE id=1`,
			schemaVersion, version.String(), now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
