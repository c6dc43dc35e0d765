package tzbed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrCatalogueUnavailable is returned when the polygon catalogue cannot be
// found or opened. Lookups treat it as "no match".
var ErrCatalogueUnavailable = errors.New("tzbed: catalogue unavailable")

// sqliteDriver is the database/sql driver name registered by modernc.org/sqlite.
const sqliteDriver = "sqlite"

// Catalogue schema. One row per stored geometry; several rows may share a
// tzid when a zone covers disjoint landmasses.
const (
	catalogueTable  = "timezones"
	catalogueSchema = `CREATE TABLE IF NOT EXISTS ` + catalogueTable + ` (
	id       INTEGER PRIMARY KEY,
	geometry TEXT,
	tzid     TEXT
)`
	selectBatchSQL = `SELECT id, geometry, tzid FROM ` + catalogueTable + ` ORDER BY id LIMIT ? OFFSET ?`
	countRowsSQL   = `SELECT COUNT(1) FROM ` + catalogueTable
	insertRowSQL   = `INSERT INTO ` + catalogueTable + ` (geometry, tzid) VALUES (?, ?)`
)

// Row is one raw catalogue entry. Geometry is an opaque JSON payload: either
// a typed GeoJSON geometry or a bare coordinate array. Both fields may be
// empty when the store holds NULLs.
type Row struct {
	ID       int64
	Geometry []byte
	Zone     string
}

// Catalogue opens a reader over the stored zone polygons. Every lookup opens
// its own reader and closes it before returning.
type Catalogue interface {
	Open(ctx context.Context) (CatalogueReader, error)
}

// CatalogueReader streams catalogue rows in id order.
type CatalogueReader interface {
	// ReadBatch returns up to limit rows starting at offset. A short
	// batch is allowed; only an empty slice means the catalogue is
	// exhausted.
	ReadBatch(ctx context.Context, offset, limit int) ([]Row, error)
	Close() error
}

// SQLiteCatalogue is the default Catalogue backed by a timezones.db file.
// If the database is missing it is extracted from the zip archive first.
type SQLiteCatalogue struct {
	Dir     string // directory holding timezones.db
	Archive string // zip archive to extract from; defaults to Dir/timezones.zip
}

// NewSQLiteCatalogue returns a catalogue rooted at dir.
func NewSQLiteCatalogue(dir, archive string) *SQLiteCatalogue {
	return &SQLiteCatalogue{Dir: dir, Archive: archive}
}

// Open ensures the database exists and opens it read-only.
func (c *SQLiteCatalogue) Open(ctx context.Context) (CatalogueReader, error) {
	path, err := ensureCatalogue(c.Dir, c.Archive)
	if err != nil {
		return nil, err
	}
	db, err := openSQLite(ctx, path, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogueUnavailable, err)
	}
	return &sqliteReader{db: db}, nil
}

// Count returns the number of rows in the catalogue.
func (c *SQLiteCatalogue) Count(ctx context.Context) (int, error) {
	r, err := c.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	var n int
	if err := r.(*sqliteReader).db.QueryRowContext(ctx, countRowsSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting catalogue rows: %w", err)
	}
	return n, nil
}

func openSQLite(ctx context.Context, path string, readOnly bool) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriver, sqliteURI(path, readOnly))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return db, nil
}

// sqliteURI turns a filesystem path into a SQLite URI filename. The path is
// percent-encoded so '?', '#' and '%' in directory names survive.
func sqliteURI(path string, readOnly bool) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path), OmitHost: true}
	if readOnly {
		u.RawQuery = "mode=ro"
	}
	return u.String()
}

type sqliteReader struct {
	db *sql.DB
}

func (r *sqliteReader) ReadBatch(ctx context.Context, offset, limit int) ([]Row, error) {
	rows, err := r.db.QueryContext(ctx, selectBatchSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", catalogueTable, err)
	}
	defer rows.Close()

	batch := make([]Row, 0, limit)
	for rows.Next() {
		var (
			id       int64
			geometry sql.NullString
			zone     sql.NullString
		)
		if err := rows.Scan(&id, &geometry, &zone); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", catalogueTable, err)
		}
		row := Row{ID: id, Zone: zone.String}
		if geometry.Valid {
			row.Geometry = []byte(geometry.String)
		}
		batch = append(batch, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", catalogueTable, err)
	}
	return batch, nil
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}
