// Package store provides the embedded SQLite database backing the sync engine.
//
// The database holds a MyBB-shaped subset of tables: template sets, templates,
// themes, and theme stylesheets. It runs in embedded mode with WAL so the
// watcher's import path and synchronous export/import calls can share the
// connection pool safely.
//
// sid conventions (consumed verbatim from MyBB):
//   - -2 = master/default set all others inherit from
//   - -1 = shared/global rows
//   - >=1 = a specific template set or theme override
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const (
	// SIDMaster is the master/default destination for templates.
	SIDMaster int64 = -2
	// SIDGlobal marks shared/global rows.
	SIDGlobal int64 = -1

	// DefaultTemplateVersion is assigned to new template rows when no master
	// row exists to inherit a version from.
	DefaultTemplateVersion = "1800"
)

// Template is one row of the templates table, keyed by (Title, SID).
type Template struct {
	TID      int64
	Title    string
	SID      int64
	Template string
	Version  string
	Dateline int64
}

// Stylesheet is one row of the themestylesheets table, keyed by (Name, ThemeID).
type Stylesheet struct {
	SID          int64
	Name         string
	ThemeID      int64
	Stylesheet   string
	LastModified int64
}

// DB wraps the embedded SQLite connection with sync-engine queries.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates a database connection at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads.
// If it doesn't exist it is created; call InitSchema before first use.
// The caller MUST call Close() when done.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	// WAL mode for concurrent reads during writes.
	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Path returns the filesystem path of the database file.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection after checkpointing the WAL.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the database schema if it doesn't exist.
// Idempotent - safe to call multiple times.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the database schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS templatesets (
		sid INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS templates (
		tid INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		sid INTEGER NOT NULL,
		template TEXT NOT NULL,
		version TEXT NOT NULL DEFAULT '',
		dateline INTEGER NOT NULL,
		UNIQUE(title, sid)
	);

	CREATE TABLE IF NOT EXISTS themes (
		tid INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS themestylesheets (
		sid INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		tid INTEGER NOT NULL,
		stylesheet TEXT NOT NULL,
		lastmodified INTEGER NOT NULL,
		UNIQUE(name, tid),
		FOREIGN KEY (tid) REFERENCES themes(tid) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_templates_sid ON templates(sid);
	CREATE INDEX IF NOT EXISTS idx_templates_title ON templates(title);
	CREATE INDEX IF NOT EXISTS idx_stylesheets_tid ON themestylesheets(tid);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// LookupTemplateSet resolves a template set display name to its sid.
// The comparison is exact: case-sensitive, spaces significant.
// Returns found=false (no error) when no set carries that title.
func (db *DB) LookupTemplateSet(ctx context.Context, title string) (int64, bool, error) {
	var sid int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT sid FROM templatesets WHERE title = ?`, title).Scan(&sid)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up template set %q: %w", title, err)
	}
	return sid, true, nil
}

// LookupTheme resolves a theme display name to its tid.
// Exact match semantics as LookupTemplateSet.
func (db *DB) LookupTheme(ctx context.Context, name string) (int64, bool, error) {
	var tid int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT tid FROM themes WHERE name = ?`, name).Scan(&tid)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up theme %q: %w", name, err)
	}
	return tid, true, nil
}

// CreateTemplateSet inserts a template set and returns its sid.
func (db *DB) CreateTemplateSet(ctx context.Context, title string) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO templatesets (title) VALUES (?)`, title)
	if err != nil {
		return 0, fmt.Errorf("failed to create template set %q: %w", title, err)
	}
	return res.LastInsertId()
}

// CreateTheme inserts a theme and returns its tid.
func (db *DB) CreateTheme(ctx context.Context, name string) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO themes (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to create theme %q: %w", name, err)
	}
	return res.LastInsertId()
}

// ListTemplateSets returns all template set titles keyed by sid.
func (db *DB) ListTemplateSets(ctx context.Context) (map[int64]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT sid, title FROM templatesets ORDER BY sid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list template sets: %w", err)
	}
	defer rows.Close()

	sets := make(map[int64]string)
	for rows.Next() {
		var sid int64
		var title string
		if err := rows.Scan(&sid, &title); err != nil {
			return nil, fmt.Errorf("failed to scan template set: %w", err)
		}
		sets[sid] = title
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating template sets: %w", err)
	}
	return sets, nil
}

// ListThemes returns all theme names keyed by tid.
func (db *DB) ListThemes(ctx context.Context) (map[int64]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT tid, name FROM themes ORDER BY tid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list themes: %w", err)
	}
	defer rows.Close()

	themes := make(map[int64]string)
	for rows.Next() {
		var tid int64
		var name string
		if err := rows.Scan(&tid, &name); err != nil {
			return nil, fmt.Errorf("failed to scan theme: %w", err)
		}
		themes[tid] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating themes: %w", err)
	}
	return themes, nil
}

// GetTemplate retrieves the template at (title, sid).
// Returns sql.ErrNoRows if no row exists at that identity.
func (db *DB) GetTemplate(ctx context.Context, title string, sid int64) (*Template, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT tid, title, sid, template, version, dateline
		FROM templates
		WHERE title = ? AND sid = ?`, title, sid)

	var t Template
	if err := row.Scan(&t.TID, &t.Title, &t.SID, &t.Template, &t.Version, &t.Dateline); err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertTemplate inserts a new template row and returns its tid.
func (db *DB) InsertTemplate(ctx context.Context, t *Template) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO templates (title, sid, template, version, dateline)
		VALUES (?, ?, ?, ?, ?)`,
		t.Title, t.SID, t.Template, t.Version, t.Dateline)
	if err != nil {
		return 0, fmt.Errorf("failed to insert template %q (sid %d): %w", t.Title, t.SID, err)
	}
	return res.LastInsertId()
}

// UpdateTemplateContent updates the content and timestamp of an existing row.
func (db *DB) UpdateTemplateContent(ctx context.Context, tid int64, content string, dateline int64) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE templates SET template = ?, dateline = ? WHERE tid = ?`,
		content, dateline, tid)
	if err != nil {
		return fmt.Errorf("failed to update template %d: %w", tid, err)
	}
	return nil
}

// MasterTemplateVersion returns the version of the master row for title,
// used to inherit a version when inserting a set override.
// Returns found=false when no master row exists.
func (db *DB) MasterTemplateVersion(ctx context.Context, title string) (string, bool, error) {
	var version string
	err := db.conn.QueryRowContext(ctx,
		`SELECT version FROM templates WHERE title = ? AND sid = ?`, title, SIDMaster).Scan(&version)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query master version for %q: %w", title, err)
	}
	return version, true, nil
}

// ListTemplatesBySet returns all templates in a set ordered by title.
func (db *DB) ListTemplatesBySet(ctx context.Context, sid int64) ([]*Template, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT tid, title, sid, template, version, dateline
		FROM templates
		WHERE sid = ?
		ORDER BY title ASC`, sid)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates for sid %d: %w", sid, err)
	}
	defer rows.Close()

	var tpls []*Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.TID, &t.Title, &t.SID, &t.Template, &t.Version, &t.Dateline); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		tpls = append(tpls, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}
	return tpls, nil
}

// GetStylesheet retrieves the stylesheet at (name, themeID).
// Returns sql.ErrNoRows if no row exists at that identity.
func (db *DB) GetStylesheet(ctx context.Context, name string, themeID int64) (*Stylesheet, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT sid, name, tid, stylesheet, lastmodified
		FROM themestylesheets
		WHERE name = ? AND tid = ?`, name, themeID)

	var s Stylesheet
	if err := row.Scan(&s.SID, &s.Name, &s.ThemeID, &s.Stylesheet, &s.LastModified); err != nil {
		return nil, err
	}
	return &s, nil
}

// InsertStylesheet inserts a new stylesheet row and returns its sid.
func (db *DB) InsertStylesheet(ctx context.Context, s *Stylesheet) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO themestylesheets (name, tid, stylesheet, lastmodified)
		VALUES (?, ?, ?, ?)`,
		s.Name, s.ThemeID, s.Stylesheet, s.LastModified)
	if err != nil {
		return 0, fmt.Errorf("failed to insert stylesheet %q (theme %d): %w", s.Name, s.ThemeID, err)
	}
	return res.LastInsertId()
}

// UpdateStylesheetContent updates the content and timestamp of an existing row.
func (db *DB) UpdateStylesheetContent(ctx context.Context, sid int64, content string, lastModified int64) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE themestylesheets SET stylesheet = ?, lastmodified = ? WHERE sid = ?`,
		content, lastModified, sid)
	if err != nil {
		return fmt.Errorf("failed to update stylesheet %d: %w", sid, err)
	}
	return nil
}

// ListStylesheetsByTheme returns all stylesheets for a theme ordered by name.
func (db *DB) ListStylesheetsByTheme(ctx context.Context, themeID int64) ([]*Stylesheet, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT sid, name, tid, stylesheet, lastmodified
		FROM themestylesheets
		WHERE tid = ?
		ORDER BY name ASC`, themeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stylesheets for theme %d: %w", themeID, err)
	}
	defer rows.Close()

	var sheets []*Stylesheet
	for rows.Next() {
		var s Stylesheet
		if err := rows.Scan(&s.SID, &s.Name, &s.ThemeID, &s.Stylesheet, &s.LastModified); err != nil {
			return nil, fmt.Errorf("failed to scan stylesheet: %w", err)
		}
		sheets = append(sheets, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stylesheets: %w", err)
	}
	return sheets, nil
}

// TemplateCount returns the total number of template rows.
func (db *DB) TemplateCount(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count templates: %w", err)
	}
	return count, nil
}

// StylesheetCount returns the total number of stylesheet rows.
func (db *DB) StylesheetCount(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM themestylesheets`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stylesheets: %w", err)
	}
	return count, nil
}
