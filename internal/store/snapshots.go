package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lawnchairsociety/tilewave/internal/wfc"
)

// SaveSnapshot records the grid a session held at step and returns the row ID.
func (s *Store) SaveSnapshot(sessionID string, step int, g *wfc.Grid) (int64, error) {
	cells, err := json.Marshal(wfc.GridCells(g))
	if err != nil {
		return 0, fmt.Errorf("failed to marshal cells: %w", err)
	}

	query := s.qb.BuildWithReturning(
		`INSERT INTO snapshots (session_id, step, known, cells) VALUES (?, ?, ?, ?)`, "id")
	args := []any{sessionID, step, g.KnownCount(), string(cells)}

	var id int64
	if s.dialect.SupportsLastInsertID() {
		result, err := s.db.Exec(query, args...)
		if err != nil {
			return 0, s.snapshotError(err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to get snapshot ID: %w", err)
		}
	} else if err := s.db.QueryRow(query, args...).Scan(&id); err != nil {
		return 0, s.snapshotError(err)
	}
	return id, nil
}

func (s *Store) snapshotError(err error) error {
	if s.dialect.IsDuplicateKeyError(err) {
		return ErrSnapshotExists
	}
	return fmt.Errorf("failed to save snapshot: %w", err)
}

// LoadSnapshot rebuilds the grid recorded for a session at step.
func (s *Store) LoadSnapshot(sessionID string, step int) (*wfc.Grid, error) {
	rec, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	var raw string
	err = s.db.QueryRow(s.qb.Build(
		`SELECT cells FROM snapshots WHERE session_id = ? AND step = ?`), sessionID, step).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	var cells [][]float64
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot cells: %w", err)
	}
	return wfc.GridFromCells(rec.Width, rec.Height, rec.Tiles, cells)
}

// LatestStep returns the highest recorded step of a session, or -1 if none.
func (s *Store) LatestStep(sessionID string) (int, error) {
	var step sql.NullInt64
	err := s.db.QueryRow(s.qb.Build(
		`SELECT MAX(step) FROM snapshots WHERE session_id = ?`), sessionID).Scan(&step)
	if err != nil {
		return 0, fmt.Errorf("failed to query latest step: %w", err)
	}
	if !step.Valid {
		return -1, nil
	}
	return int(step.Int64), nil
}

// SnapshotCount returns how many snapshots a session has recorded.
func (s *Store) SnapshotCount(sessionID string) (int, error) {
	var n int
	err := s.db.QueryRow(s.qb.Build(
		`SELECT COUNT(*) FROM snapshots WHERE session_id = ?`), sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return n, nil
}

// RecordSession stores a session and every snapshot in its history.
func (s *Store) RecordSession(name string, sample wfc.Sample, seed int64, sess *wfc.Session) (*SessionRecord, error) {
	rec, err := s.CreateSession(name, sample, seed, sess)
	if err != nil {
		return nil, err
	}
	for step := 0; step < sess.Len(); step++ {
		g, err := sess.Snapshot(step)
		if err != nil {
			return nil, err
		}
		if _, err := s.SaveSnapshot(rec.ID, step, g); err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}
	}
	return rec, nil
}
