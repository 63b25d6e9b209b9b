package store

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/lawnchairsociety/tilewave/internal/wfc"
)

var (
	black = wfc.Color{R: 0x22, G: 0x22, B: 0x22}
	white = wfc.Color{R: 0xdd, G: 0xdd, B: 0xdd}
)

func checkerboard() wfc.Sample {
	return wfc.Sample{
		{black, white, black},
		{white, black, white},
		{black, white, black},
	}
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newSession(t *testing.T, steps int) *wfc.Session {
	t.Helper()
	cat, err := wfc.BuildCatalog(checkerboard(), 2, 2)
	if err != nil {
		t.Fatalf("BuildCatalog failed: %v", err)
	}
	sess, err := wfc.NewSession(cat, nil, 4, 3, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	for i := 0; i < steps; i++ {
		if _, err := sess.Advance(); err != nil {
			t.Fatalf("Advance %d failed: %v", i, err)
		}
	}
	return sess
}

func TestOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	s, err := Open(DefaultConfig(dbPath))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
	for _, table := range []string{"sessions", "snapshots"} {
		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Errorf("Failed to query %s table: %v", table, err)
		}
	}
}

func TestOpenTwiceKeepsData(t *testing.T) {
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "test.db"))
	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	rec, err := s.CreateSession("checkerboard", checkerboard(), 7, newSession(t, 0))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	s.Close()

	s, err = Open(cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	if _, err := s.GetSession(rec.ID); err != nil {
		t.Errorf("GetSession after reopen failed: %v", err)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(Config{Driver: "oracle"}); err == nil {
		t.Error("Open with unknown driver succeeded")
	}
	if _, err := Open(Config{Driver: "sqlite"}); err == nil {
		t.Error("Open with empty sqlite path succeeded")
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(checkerboard())
	if len(a) != 64 {
		t.Errorf("Fingerprint length = %d, want 64", len(a))
	}
	if b := Fingerprint(checkerboard()); a != b {
		t.Errorf("Fingerprint not stable: %s != %s", a, b)
	}

	changed := checkerboard()
	changed[1][1] = white
	if Fingerprint(changed) == a {
		t.Error("different samples share a fingerprint")
	}

	// Same colors in a different shape
	wide := wfc.Sample{{black, white, black, white, black, white, black, white, black}}
	tall := make(wfc.Sample, 9)
	for y := range tall {
		tall[y] = []wfc.Color{wide[0][y]}
	}
	if Fingerprint(wide) == Fingerprint(tall) {
		t.Error("1x9 and 9x1 samples share a fingerprint")
	}
}

func TestCreateAndGetSession(t *testing.T) {
	s := setupTestStore(t)
	sess := newSession(t, 0)

	rec, err := s.CreateSession("checkerboard", checkerboard(), 7, sess)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("CreateSession returned an empty ID")
	}

	got, err := s.GetSession(rec.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Sample != "checkerboard" || got.Seed != 7 {
		t.Errorf("GetSession = %+v", got)
	}
	if got.Width != 4 || got.Height != 3 || got.TileWidth != 2 || got.TileHeight != 2 {
		t.Errorf("dimensions = %dx%d tiles %dx%d, want 4x3 tiles 2x2",
			got.Width, got.Height, got.TileWidth, got.TileHeight)
	}
	if got.Tiles != sess.Catalog.Len() {
		t.Errorf("Tiles = %d, want %d", got.Tiles, sess.Catalog.Len())
	}
	if got.Fingerprint != Fingerprint(checkerboard()) {
		t.Errorf("Fingerprint = %s, want %s", got.Fingerprint, Fingerprint(checkerboard()))
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.GetSession("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession error = %v, want ErrSessionNotFound", err)
	}
	if _, err := s.LoadCatalog("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("LoadCatalog error = %v, want ErrSessionNotFound", err)
	}
}

func TestLoadCatalog(t *testing.T) {
	s := setupTestStore(t)
	sess := newSession(t, 0)
	rec, err := s.CreateSession("checkerboard", checkerboard(), 7, sess)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	cat, err := s.LoadCatalog(rec.ID)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if cat.Len() != sess.Catalog.Len() {
		t.Fatalf("catalog has %d tiles, want %d", cat.Len(), sess.Catalog.Len())
	}
	for i, tile := range sess.Catalog.Tiles {
		for y := 0; y < tile.Height(); y++ {
			for x := 0; x < tile.Width(); x++ {
				if cat.Tile(i).At(x, y) != tile.At(x, y) {
					t.Errorf("tile %d pixel (%d, %d) = %s, want %s", i, x, y, cat.Tile(i).At(x, y), tile.At(x, y))
				}
			}
		}
	}
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	s := setupTestStore(t)
	sess := newSession(t, 3)
	rec, err := s.CreateSession("checkerboard", checkerboard(), 7, sess)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	want := sess.Current()
	if _, err := s.SaveSnapshot(rec.ID, 3, want); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	got, err := s.LoadSnapshot(rec.ID, 3)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if got.KnownCount() != want.KnownCount() {
		t.Errorf("KnownCount = %d, want %d", got.KnownCount(), want.KnownCount())
	}
	want.Each(func(c *wfc.Cell) {
		gc, _ := got.At(c.X, c.Y)
		for i, p := range c.Probabilities {
			if gc.Probabilities[i] != p {
				t.Errorf("cell (%d, %d) tile %d = %v, want %v", c.X, c.Y, i, gc.Probabilities[i], p)
			}
		}
	})
}

func TestSaveSnapshotDuplicate(t *testing.T) {
	s := setupTestStore(t)
	sess := newSession(t, 0)
	rec, _ := s.CreateSession("checkerboard", checkerboard(), 7, sess)

	if _, err := s.SaveSnapshot(rec.ID, 0, sess.Current()); err != nil {
		t.Fatalf("first SaveSnapshot failed: %v", err)
	}
	if _, err := s.SaveSnapshot(rec.ID, 0, sess.Current()); !errors.Is(err, ErrSnapshotExists) {
		t.Errorf("second SaveSnapshot error = %v, want ErrSnapshotExists", err)
	}
}

func TestLoadSnapshotNotFound(t *testing.T) {
	s := setupTestStore(t)
	rec, _ := s.CreateSession("checkerboard", checkerboard(), 7, newSession(t, 0))
	if _, err := s.LoadSnapshot(rec.ID, 5); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("LoadSnapshot error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestRecordSessionAndLatestStep(t *testing.T) {
	s := setupTestStore(t)
	sess := newSession(t, 4)

	rec, err := s.RecordSession("checkerboard", checkerboard(), 7, sess)
	if err != nil {
		t.Fatalf("RecordSession failed: %v", err)
	}

	n, err := s.SnapshotCount(rec.ID)
	if err != nil {
		t.Fatalf("SnapshotCount failed: %v", err)
	}
	if n != sess.Len() {
		t.Errorf("SnapshotCount = %d, want %d", n, sess.Len())
	}

	latest, err := s.LatestStep(rec.ID)
	if err != nil {
		t.Fatalf("LatestStep failed: %v", err)
	}
	if latest != 4 {
		t.Errorf("LatestStep = %d, want 4", latest)
	}

	first, err := s.LoadSnapshot(rec.ID, 0)
	if err != nil {
		t.Fatalf("LoadSnapshot(0) failed: %v", err)
	}
	if first.KnownCount() != 0 {
		t.Errorf("step 0 KnownCount = %d, want 0", first.KnownCount())
	}
}

func TestLatestStepEmpty(t *testing.T) {
	s := setupTestStore(t)
	rec, _ := s.CreateSession("checkerboard", checkerboard(), 7, newSession(t, 0))
	latest, err := s.LatestStep(rec.ID)
	if err != nil {
		t.Fatalf("LatestStep failed: %v", err)
	}
	if latest != -1 {
		t.Errorf("LatestStep = %d, want -1", latest)
	}
}

func TestListSessions(t *testing.T) {
	s := setupTestStore(t)
	sess := newSession(t, 0)

	a, _ := s.CreateSession("checkerboard", checkerboard(), 1, sess)
	b, _ := s.CreateSession("checkerboard", checkerboard(), 2, sess)
	other := wfc.Sample{{black, black}, {white, white}}
	if _, err := s.CreateSession("bars", other, 3, sess); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	all, err := s.ListSessions("")
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListSessions(\"\") returned %d sessions, want 3", len(all))
	}

	matching, err := s.ListSessions(Fingerprint(checkerboard()))
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(matching) != 2 {
		t.Fatalf("ListSessions(fingerprint) returned %d sessions, want 2", len(matching))
	}
	ids := map[string]bool{matching[0].ID: true, matching[1].ID: true}
	if !ids[a.ID] || !ids[b.ID] {
		t.Errorf("ListSessions(fingerprint) = %v, want %s and %s", ids, a.ID, b.ID)
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	s := setupTestStore(t)
	rec, err := s.RecordSession("checkerboard", checkerboard(), 7, newSession(t, 2))
	if err != nil {
		t.Fatalf("RecordSession failed: %v", err)
	}

	if err := s.DeleteSession(rec.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := s.GetSession(rec.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession after delete = %v, want ErrSessionNotFound", err)
	}
	n, err := s.SnapshotCount(rec.ID)
	if err != nil {
		t.Fatalf("SnapshotCount failed: %v", err)
	}
	if n != 0 {
		t.Errorf("SnapshotCount after delete = %d, want 0", n)
	}
	if err := s.DeleteSession(rec.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second DeleteSession = %v, want ErrSessionNotFound", err)
	}
}
