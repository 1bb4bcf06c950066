// Package store persists encoded vector tiles in an MBTiles SQLite database.
//
// MBTiles addresses tiles in the TMS scheme, where row 0 is the southern most
// row. The store takes and returns XYZ tiles and flips the row internally.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	jsoniter "github.com/json-iterator/go"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/paulmach/orb/maptile"
	"github.com/sirupsen/logrus"

	"github.com/arloliu/geostream/errs"
	"github.com/arloliu/geostream/mvt"
)

var schema = []string{
	"PRAGMA synchronous=OFF",
	"PRAGMA journal_mode=DELETE",
	"CREATE TABLE IF NOT EXISTS tiles (zoom_level integer, tile_column integer, tile_row integer, tile_data blob)",
	"CREATE TABLE IF NOT EXISTS metadata (name text, value text)",
	"CREATE UNIQUE INDEX IF NOT EXISTS name ON metadata (name)",
	"CREATE UNIQUE INDEX IF NOT EXISTS tile_index ON tiles (zoom_level, tile_column, tile_row)",
}

// MBTiles is a tile store backed by one MBTiles file.
//
// MBTiles is safe for concurrent use.
type MBTiles struct {
	mu     sync.RWMutex
	db     *sql.DB
	logger logrus.FieldLogger
	path   string
}

// Open opens or creates the MBTiles file at path and prepares its tables.
//
// Parameters:
//   - ctx: bounds the schema setup
//   - path: the database file; created when missing
//   - logger: receives debug entries for written tiles, nil for the logrus standard logger
//
// Returns:
//   - *MBTiles: the open store
//   - error: the sqlite error when the file cannot be opened or prepared
func Open(ctx context.Context, path string, logger logrus.FieldLogger) (*MBTiles, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open mbtiles %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, errors.Join(fmt.Errorf("prepare mbtiles %s: %w", path, err), db.Close())
		}
	}

	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &MBTiles{db: db, logger: logger, path: path}, nil
}

// Path returns the file the store was opened with.
func (m *MBTiles) Path() string { return m.path }

// WriteTile stores data for an XYZ tile, replacing existing data.
func (m *MBTiles) WriteTile(ctx context.Context, t maptile.Tile, data []byte) error {
	if err := mvt.ValidateTile(t); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.db == nil {
		return errs.ErrStoreClosed
	}

	_, err := m.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)",
		t.Z, t.X, tmsRow(t), data)
	if err != nil {
		return fmt.Errorf("write tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}

	m.logger.WithFields(logrus.Fields{
		"tile":  fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y),
		"bytes": len(data),
	}).Debug("tile stored")

	return nil
}

// ReadTile returns the data of an XYZ tile, or errs.ErrTileNotFound.
func (m *MBTiles) ReadTile(ctx context.Context, t maptile.Tile) ([]byte, error) {
	if err := mvt.ValidateTile(t); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.db == nil {
		return nil, errs.ErrStoreClosed
	}

	var data []byte
	err := m.db.QueryRowContext(ctx,
		"SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?",
		t.Z, t.X, tmsRow(t)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d/%d/%d", errs.ErrTileNotFound, t.Z, t.X, t.Y)
	}
	if err != nil {
		return nil, fmt.Errorf("read tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}

	return data, nil
}

// WriteMetadata stores the given metadata entries in one transaction,
// replacing entries with the same name.
func (m *MBTiles) WriteMetadata(ctx context.Context, entries map[string]string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.db == nil {
		return errs.ErrStoreClosed
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	for name, value := range entries {
		if _, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?)", name, value); err != nil {
			return errors.Join(fmt.Errorf("write metadata %s: %w", name, err), tx.Rollback())
		}
	}

	return tx.Commit()
}

// Metadata returns all metadata entries.
func (m *MBTiles) Metadata(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.db == nil {
		return nil, errs.ErrStoreClosed
	}

	rows, err := m.db.QueryContext(ctx, "SELECT name, value FROM metadata")
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("read metadata: %w", err)
		}
		entries[name] = value
	}

	return entries, rows.Err()
}

// Close analyzes the tile index and closes the database. Close is idempotent.
func (m *MBTiles) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}

	_, err := m.db.Exec("ANALYZE")
	err = errors.Join(err, m.db.Close())
	m.db = nil

	return err
}

func tmsRow(t maptile.Tile) uint32 {
	return (uint32(1) << t.Z) - 1 - t.Y
}

// VectorLayer describes one layer in the "json" metadata entry.
type VectorLayer struct {
	ID      string            `json:"id"`
	Fields  map[string]string `json:"fields"`
	MinZoom maptile.Zoom      `json:"minzoom"`
	MaxZoom maptile.Zoom      `json:"maxzoom"`
}

// TilesetMetadata returns the metadata entries of a vector tileset with a
// single layer covering the given zoom range.
func TilesetMetadata(name, layer string, minZoom, maxZoom maptile.Zoom) (map[string]string, error) {
	layers := struct {
		VectorLayers []VectorLayer `json:"vector_layers"`
	}{
		VectorLayers: []VectorLayer{{ID: layer, Fields: map[string]string{}, MinZoom: minZoom, MaxZoom: maxZoom}},
	}
	layersJSON, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(layers)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"name":    name,
		"format":  "pbf",
		"type":    "overlay",
		"version": "2",
		"minzoom": fmt.Sprint(minZoom),
		"maxzoom": fmt.Sprint(maxZoom),
		"json":    layersJSON,
	}, nil
}
