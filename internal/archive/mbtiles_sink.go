package archive

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/zeebo/blake3"
)

// mbtilesSink writes an MBTiles archive: a SQLite database with the
// classic images+map dedup schema this format uses, mirroring the read
// side of tarkov-database-tileserver's core/mbtiles package.
type mbtilesSink struct {
	path string
	db   *sql.DB

	mu        sync.Mutex
	tx        *sql.Tx
	pending   int
	batchSize int
}

const mbtilesBatchSize = 500

// NewMBTiles creates (overwriting any existing file) an MBTiles sink at
// path.
func NewMBTiles(path string) (Sink, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("archive: remove existing mbtiles file: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open mbtiles database: %w", err)
	}
	return &mbtilesSink{path: path, db: db, batchSize: mbtilesBatchSize}, nil
}

func (s *mbtilesSink) Open(meta *TileJSON) error {
	pragmas := []string{
		"PRAGMA synchronous = OFF",
		"PRAGMA journal_mode = MEMORY",
		"PRAGMA temp_store = MEMORY",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("archive: mbtiles pragma %q: %w", p, err)
		}
	}

	schema := []string{
		`CREATE TABLE metadata (name text, value text)`,
		`CREATE TABLE images (tile_id text, tile_data blob)`,
		`CREATE TABLE map (zoom_level integer, tile_column integer, tile_row integer, tile_id text)`,
		`CREATE UNIQUE INDEX images_id ON images (tile_id)`,
		`CREATE UNIQUE INDEX map_index ON map (zoom_level, tile_column, tile_row)`,
		`CREATE VIEW tiles AS
		   SELECT map.zoom_level AS zoom_level,
		          map.tile_column AS tile_column,
		          map.tile_row AS tile_row,
		          images.tile_data AS tile_data
		   FROM map JOIN images ON images.tile_id = map.tile_id`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("archive: mbtiles schema: %w", err)
		}
	}

	if err := s.writeMetadata(meta); err != nil {
		return err
	}
	return s.beginBatch()
}

func (s *mbtilesSink) writeMetadata(meta *TileJSON) error {
	rows := map[string]string{
		"name":        meta.Name,
		"description": meta.Description,
		"attribution": meta.Attribution,
		"format":      meta.Format,
		"minzoom":     strconv.Itoa(meta.MinZoom),
		"maxzoom":     strconv.Itoa(meta.MaxZoom),
		"bounds":      fmt.Sprintf("%f,%f,%f,%f", meta.Bounds[0], meta.Bounds[1], meta.Bounds[2], meta.Bounds[3]),
		"center":      fmt.Sprintf("%f,%f,%d", meta.CenterLon, meta.CenterLat, meta.CenterZoom),
	}
	if len(meta.VectorLayers) > 0 {
		var layers json.RawMessage = meta.VectorLayers
		jsonMeta := map[string]interface{}{"vector_layers": layers}
		b, err := json.Marshal(jsonMeta)
		if err == nil {
			rows["json"] = string(b)
		}
	}
	for name, value := range rows {
		if value == "" {
			continue
		}
		if _, err := s.db.Exec(`INSERT INTO metadata (name, value) VALUES (?, ?)`, name, value); err != nil {
			return fmt.Errorf("archive: mbtiles metadata row %q: %w", name, err)
		}
	}
	return nil
}

func (s *mbtilesSink) beginBatch() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("archive: begin mbtiles transaction: %w", err)
	}
	s.tx = tx
	s.pending = 0
	return nil
}

// Put inserts one tile, deduplicating identical tile bodies by content
// hash the way MBTiles writers conventionally do, batching writes into
// transactions of mbtilesBatchSize.
func (s *mbtilesSink) Put(z, x, y int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := blake3.Sum256(data)
	tileID := hex.EncodeToString(sum[:])

	if _, err := s.tx.Exec(`INSERT OR IGNORE INTO images (tile_id, tile_data) VALUES (?, ?)`, tileID, data); err != nil {
		return fmt.Errorf("archive: mbtiles insert image: %w", err)
	}
	// MBTiles uses the TMS row convention: row 0 is the southernmost row.
	tmsRow := (1 << uint(z)) - 1 - y
	if _, err := s.tx.Exec(`INSERT INTO map (zoom_level, tile_column, tile_row, tile_id) VALUES (?, ?, ?, ?)`, z, x, tmsRow, tileID); err != nil {
		return fmt.Errorf("archive: mbtiles insert map entry: %w", err)
	}

	s.pending++
	if s.pending >= s.batchSize {
		if err := s.tx.Commit(); err != nil {
			return fmt.Errorf("archive: commit mbtiles batch: %w", err)
		}
		return s.beginBatch()
	}
	return nil
}

func (s *mbtilesSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		if err := s.tx.Commit(); err != nil {
			return fmt.Errorf("archive: commit final mbtiles batch: %w", err)
		}
		s.tx = nil
	}
	return s.db.Close()
}

func (s *mbtilesSink) Abort() error {
	s.mu.Lock()
	if s.tx != nil {
		s.tx.Rollback()
		s.tx = nil
	}
	s.mu.Unlock()
	s.db.Close()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("archive: remove aborted mbtiles file: %w", err)
	}
	return nil
}
