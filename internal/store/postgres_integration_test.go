package store

import (
	"errors"
	"os"
	"testing"
)

// skipIfNoPostgres skips the test unless TILEWAVE_TEST_POSTGRES_DSN names a
// reachable database, e.g.
//
//	host=localhost port=5432 user=tilewave password=tilewave dbname=tilewave_test sslmode=disable
func skipIfNoPostgres(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TILEWAVE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping PostgreSQL test: TILEWAVE_TEST_POSTGRES_DSN not set")
	}

	s, err := Open(Config{Driver: "postgres", Postgres: PostgresConfig{URL: dsn}})
	if err != nil {
		t.Fatalf("Failed to open PostgreSQL database: %v", err)
	}
	t.Cleanup(func() {
		s.db.Exec("DELETE FROM sessions")
		s.Close()
	})
	return s
}

func TestPostgres_RecordAndLoad(t *testing.T) {
	s := skipIfNoPostgres(t)
	sess := newSession(t, 3)

	rec, err := s.RecordSession("checkerboard", checkerboard(), 7, sess)
	if err != nil {
		t.Fatalf("RecordSession failed: %v", err)
	}
	latest, err := s.LatestStep(rec.ID)
	if err != nil || latest != 3 {
		t.Errorf("LatestStep = %d, %v, want 3", latest, err)
	}
	g, err := s.LoadSnapshot(rec.ID, 3)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if g.KnownCount() != sess.Current().KnownCount() {
		t.Errorf("KnownCount = %d, want %d", g.KnownCount(), sess.Current().KnownCount())
	}
	if _, err := s.SaveSnapshot(rec.ID, 3, g); !errors.Is(err, ErrSnapshotExists) {
		t.Errorf("duplicate SaveSnapshot = %v, want ErrSnapshotExists", err)
	}
}
