package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paulmach/orb/encoding/wkt"

	"github.com/joeblew999/plat-overlay/internal/overlay"
)

const schema = `CREATE TABLE IF NOT EXISTS overlay_features (
	overlay       VARCHAR NOT NULL,
	name          VARCHAR,
	type          VARCHAR,
	description   VARCHAR,
	source        VARCHAR,
	geometry_type VARCHAR,
	wkt           VARCHAR,
	loaded_at     TIMESTAMP
)`

// Archive keeps a copy of every loaded overlay's features in DuckDB so they
// can be queried with SQL.
type Archive struct {
	db  *sql.DB
	now func() time.Time
}

// NewArchive wraps an open connection. Call Init before use.
func NewArchive(db *sql.DB) *Archive {
	return &Archive{db: db, now: time.Now}
}

// DB returns the underlying connection.
func (a *Archive) DB() *sql.DB { return a.db }

// Init creates the archive table.
func (a *Archive) Init(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create overlay_features: %w", err)
	}
	return nil
}

// Store replaces the archived features of one overlay.
func (a *Archive) Store(ctx context.Context, name overlay.Name, records []overlay.Record) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM overlay_features WHERE overlay = ?`, string(name)); err != nil {
		return fmt.Errorf("clear %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO overlay_features
		(overlay, name, type, description, source, geometry_type, wkt, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	loaded := a.now().UTC()
	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			string(name), rec.Name(), rec.Type(), rec.Description(), rec.Source(),
			rec.Geometry.GeoJSONType(), wkt.MarshalString(rec.Geometry), loaded)
		if err != nil {
			return fmt.Errorf("insert %s feature %q: %w", name, rec.Name(), err)
		}
	}
	return tx.Commit()
}

// Count returns the number of archived features of one overlay.
func (a *Archive) Count(ctx context.Context, name overlay.Name) (int, error) {
	var n int
	err := a.db.QueryRowContext(ctx, `SELECT count(*) FROM overlay_features WHERE overlay = ?`, string(name)).Scan(&n)
	return n, err
}

// Tables lists the tables in the database.
func (a *Archive) Tables(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Result is the outcome of an ad-hoc query.
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// Query runs an ad-hoc SQL statement and collects every row.
func (a *Archive) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &Result{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		res.Rows = append(res.Rows, row)
	}
	return res, rows.Err()
}
