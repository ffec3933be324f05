package vulnlib

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kvesta/imagescan/pkg/packages"
	_ "github.com/mattn/go-sqlite3"
)

const DefaultCacheTTL = 24 * time.Hour

// Cache keeps advisory results per package version in a local sqlite file.
type Cache struct {
	DB   *sql.DB
	Path string
	TTL  time.Duration

	now func() time.Time
}

type cachedFinding struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
}

// OpenCache opens (and creates if needed) the cache database at path.
func OpenCache(path string, ttl time.Duration) (*Cache, error) {
	if err := mkFolder(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("failed to create cache folder: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	advisoryTable := `CREATE TABLE IF NOT EXISTS advisories (
			"Name" TEXT NOT NULL,
			"Version" TEXT NOT NULL,
			"Ecosystem" TEXT NOT NULL,
			"Findings" TEXT NOT NULL,
			"FetchDate" TEXT NOT NULL,
			PRIMARY KEY ("Name", "Version", "Ecosystem"));`
	if _, err := db.Exec(advisoryTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create advisory table: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &Cache{
		DB:   db,
		Path: path,
		TTL:  ttl,
		now:  time.Now,
	}, nil
}

// Get returns the cached findings of p, if a fresh entry exists.
func (c *Cache) Get(ctx context.Context, p packages.Package) ([]Finding, bool, error) {
	sqlRow := `SELECT "Findings", "FetchDate" FROM advisories WHERE "Name" = ? AND "Version" = ? AND "Ecosystem" = ?`

	var raw, fetched string
	err := c.DB.QueryRowContext(ctx, sqlRow, p.Name, p.Version, Ecosystem).Scan(&raw, &fetched)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if c.expired(fetched) {
		return nil, false, nil
	}

	var rows []cachedFinding
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, false, err
	}

	findings := make([]Finding, 0, len(rows))
	for _, r := range rows {
		findings = append(findings, Finding{Package: p, ID: r.ID, Summary: r.Summary})
	}

	return findings, true, nil
}

// Put stores the findings of p, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, p packages.Package, findings []Finding) error {
	rows := make([]cachedFinding, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, cachedFinding{ID: f.ID, Summary: f.Summary})
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}

	sqlRow := `INSERT OR REPLACE INTO advisories
				  ("Name", "Version", "Ecosystem", "Findings", "FetchDate")
				   VALUES
				  (?, ?, ?, ?, ?)`

	_, err = c.DB.ExecContext(ctx, sqlRow, p.Name, p.Version, Ecosystem,
		string(data), c.now().UTC().Format(time.RFC3339))

	return err
}

func (c *Cache) Close() error {
	return c.DB.Close()
}

// Purge closes the cache and deletes its database file.
func (c *Cache) Purge() error {
	c.DB.Close()

	if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *Cache) expired(fetched string) bool {
	fetchDate, err := time.Parse(time.RFC3339, fetched)

	// Treat unreadable dates as stale
	if err != nil {
		return true
	}

	return c.now().After(fetchDate.Add(c.TTL))
}

func mkFolder(path string) error {
	if !exists(path) {
		err := os.MkdirAll(path, os.FileMode(0755))
		if err != nil {
			return err
		}
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
