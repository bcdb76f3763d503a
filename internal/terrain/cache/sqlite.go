// Package cache persists sampled terrain heightfields in SQLite.
//
// Samples are stored as zstd-compressed little-endian float32 blobs keyed
// by params digest, chunk coordinate and LOD, so a changed seed or shape
// simply misses instead of serving stale heights.
package cache

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	stdmath "math"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/Faultbox/dunestream/internal/terrain"
)

// ErrClosed is returned by every call after Close.
var ErrClosed = errors.New("cache: closed")

// ErrCorrupt is returned by Load for rows that cannot hold a heightfield.
var ErrCorrupt = errors.New("cache: corrupt entry")

// maxSamples bounds the sample count read back from a row.
const maxSamples = 1 << 24

// SQLite is a terrain.HeightCache backed by one database file.
// It is safe for concurrent use.
type SQLite struct {
	db     *sql.DB
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	closed atomic.Bool
}

var _ terrain.HeightCache = (*SQLite)(nil)

// Open opens or creates the cache database at path.
func Open(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("cache: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cache: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: schema: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db, enc: enc, dec: dec}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS heightfields (
		digest INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		lod INTEGER NOT NULL,
		samples INTEGER NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (digest, x, y, lod)
	);`)
	return err
}

// Load implements terrain.HeightCache.
func (c *SQLite) Load(key terrain.CacheKey) ([]float32, bool, error) {
	if c.closed.Load() {
		return nil, false, ErrClosed
	}

	var (
		n    int
		blob []byte
	)
	row := c.db.QueryRow(
		`SELECT samples, data FROM heightfields WHERE digest=? AND x=? AND y=? AND lod=?`,
		int64(key.Digest), key.Coord.X, key.Coord.Y, key.LOD,
	)
	if err := row.Scan(&n, &blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: load %s lod %d: %w", key.Coord, key.LOD, err)
	}

	if n < 0 || n > maxSamples {
		return nil, false, fmt.Errorf("%w: %s lod %d has %d samples", ErrCorrupt, key.Coord, key.LOD, n)
	}

	raw, err := c.dec.DecodeAll(blob, make([]byte, 0, n*4))
	if err != nil {
		return nil, false, fmt.Errorf("cache: decode %s lod %d: %w", key.Coord, key.LOD, err)
	}
	if len(raw) != n*4 {
		return nil, false, fmt.Errorf("%w: %s lod %d: %d bytes for %d samples", ErrCorrupt, key.Coord, key.LOD, len(raw), n)
	}

	samples := make([]float32, n)
	for i := range samples {
		samples[i] = stdmath.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return samples, true, nil
}

// Store implements terrain.HeightCache. Existing entries are replaced.
func (c *SQLite) Store(key terrain.CacheKey, samples []float32) error {
	if c.closed.Load() {
		return ErrClosed
	}

	raw := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(raw[i*4:], stdmath.Float32bits(s))
	}
	blob := c.enc.EncodeAll(raw, nil)

	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO heightfields (digest, x, y, lod, samples, data) VALUES (?, ?, ?, ?, ?, ?)`,
		int64(key.Digest), key.Coord.X, key.Coord.Y, key.LOD, len(samples), blob,
	)
	if err != nil {
		return fmt.Errorf("cache: store %s lod %d: %w", key.Coord, key.LOD, err)
	}
	return nil
}

// Len returns the number of stored heightfields.
func (c *SQLite) Len() (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM heightfields`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Prune deletes every entry not generated with digest and returns how
// many were removed.
func (c *SQLite) Prune(digest uint64) (int64, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	res, err := c.db.Exec(`DELETE FROM heightfields WHERE digest != ?`, int64(digest))
	if err != nil {
		return 0, fmt.Errorf("cache: prune: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database. It is safe to call more than once.
func (c *SQLite) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.dec.Close()
	encErr := c.enc.Close()
	return errors.Join(c.db.Close(), encErr)
}
