package store

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/lawnchairsociety/tilewave/internal/wfc"
)

// ErrSessionNotFound is returned when a session lookup fails.
var ErrSessionNotFound = errors.New("session not found")

// ErrSnapshotNotFound is returned when a snapshot lookup fails.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrSnapshotExists is returned when a step is recorded twice for one session.
var ErrSnapshotExists = errors.New("snapshot already recorded")

// SessionRecord describes one recorded solver run.
type SessionRecord struct {
	ID          string    `json:"id"`
	Sample      string    `json:"sample"`
	Fingerprint string    `json:"fingerprint"`
	Seed        int64     `json:"seed"`
	TileWidth   int       `json:"tile_width"`
	TileHeight  int       `json:"tile_height"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Tiles       int       `json:"tiles"`
	CreatedAt   time.Time `json:"created_at"`
}

// Fingerprint returns the hex BLAKE2b-256 digest of a sample's dimensions and
// colors. Identical samples give identical fingerprints.
func Fingerprint(s wfc.Sample) string {
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "%dx%d;", s.Width(), s.Height())
	for _, row := range s {
		for _, c := range row {
			h.Write([]byte{c.R, c.G, c.B})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CreateSession records a new run of sess over the named sample and returns its record.
func (s *Store) CreateSession(name string, sample wfc.Sample, seed int64, sess *wfc.Session) (*SessionRecord, error) {
	catalog, err := json.Marshal(wfc.ExportCatalog(sess.Catalog))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal catalog: %w", err)
	}

	rec := &SessionRecord{
		ID:          uuid.NewString(),
		Sample:      name,
		Fingerprint: Fingerprint(sample),
		Seed:        seed,
		TileWidth:   sess.Catalog.TileWidth,
		TileHeight:  sess.Catalog.TileHeight,
		Width:       sess.Width,
		Height:      sess.Height,
		Tiles:       sess.Catalog.Len(),
		CreatedAt:   time.Now().UTC(),
	}

	_, err = s.db.Exec(s.qb.Build(`INSERT INTO sessions
		(id, sample, fingerprint, seed, tile_width, tile_height, width, height, catalog, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.Sample, rec.Fingerprint, rec.Seed,
		rec.TileWidth, rec.TileHeight, rec.Width, rec.Height,
		string(catalog), rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return rec, nil
}

const sessionColumns = `id, sample, fingerprint, seed, tile_width, tile_height, width, height, catalog, created_at`

// GetSession retrieves a session record by ID.
func (s *Store) GetSession(id string) (*SessionRecord, error) {
	rec, _, err := s.getSession(id)
	return rec, err
}

func (s *Store) getSession(id string) (*SessionRecord, []wfc.TileData, error) {
	row := s.db.QueryRow(s.qb.Build(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`), id)
	rec, tiles, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query session: %w", err)
	}
	return rec, tiles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*SessionRecord, []wfc.TileData, error) {
	var rec SessionRecord
	var catalog string
	err := row.Scan(&rec.ID, &rec.Sample, &rec.Fingerprint, &rec.Seed,
		&rec.TileWidth, &rec.TileHeight, &rec.Width, &rec.Height,
		&catalog, &rec.CreatedAt)
	if err != nil {
		return nil, nil, err
	}
	var tiles []wfc.TileData
	if err := json.Unmarshal([]byte(catalog), &tiles); err != nil {
		return nil, nil, fmt.Errorf("failed to parse catalog of session %s: %w", rec.ID, err)
	}
	rec.Tiles = len(tiles)
	return &rec, tiles, nil
}

// ListSessions returns every session, newest first. A non-empty fingerprint
// restricts the list to runs over that sample.
func (s *Store) ListSessions(fingerprint string) ([]*SessionRecord, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	var args []any
	if fingerprint != "" {
		query += ` WHERE fingerprint = ?`
		args = append(args, fingerprint)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.Query(s.qb.Build(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []*SessionRecord
	for rows.Next() {
		rec, _, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LoadCatalog rebuilds the tile catalog recorded with a session.
func (s *Store) LoadCatalog(id string) (*wfc.Catalog, error) {
	rec, tiles, err := s.getSession(id)
	if err != nil {
		return nil, err
	}
	return wfc.CatalogFromData(rec.TileWidth, rec.TileHeight, tiles)
}

// DeleteSession removes a session and all of its snapshots.
func (s *Store) DeleteSession(id string) error {
	result, err := s.db.Exec(s.qb.Build(`DELETE FROM sessions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
