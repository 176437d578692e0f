package storage

import (
	"testing"
	"time"

	"github.com/pable/go-scout-metrics/internal/model"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUploadInsertAndLookup(t *testing.T) {
	db := openMemDB(t)

	u := Upload{
		ID:         "0f8fad5b-d9cb-469f-a165-70867728950e",
		ReceivedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Source:     "http",
		Format:     "csv",
		RemoteAddr: "10.0.0.7",
		SHA256:     "abc123",
		Rows:       12,
		Columns:    []string{"team_num", "match_num", "auto_pts"},
	}
	if err := db.InsertUpload(u); err != nil {
		t.Fatalf("InsertUpload: %v", err)
	}

	got, err := db.UploadBySHA256("abc123")
	if err != nil {
		t.Fatalf("UploadBySHA256: %v", err)
	}
	if got == nil {
		t.Fatal("expected upload to exist after insert")
	}
	if got.ID != u.ID || got.Rows != 12 || len(got.Columns) != 3 || !got.ReceivedAt.Equal(u.ReceivedAt) {
		t.Errorf("round trip mismatch: %+v", got)
	}

	missing, err := db.UploadBySHA256("nonexistent")
	if err != nil {
		t.Fatalf("UploadBySHA256: %v", err)
	}
	if missing != nil {
		t.Error("expected unknown hash to return nil")
	}
}

func TestListUploads(t *testing.T) {
	db := openMemDB(t)

	for i, id := range []string{"u1", "u2", "u3"} {
		err := db.InsertUpload(Upload{
			ID:         id,
			ReceivedAt: time.Date(2026, 3, 1, 10, i, 0, 0, time.UTC),
			Source:     "ingest",
			Format:     "json",
			SHA256:     id,
			Rows:       i + 1,
		})
		if err != nil {
			t.Fatalf("InsertUpload: %v", err)
		}
	}

	list, err := db.ListUploads(2)
	if err != nil {
		t.Fatalf("ListUploads: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(list))
	}
	// Newest first.
	if list[0].ID != "u3" {
		t.Errorf("expected u3 first, got %s", list[0].ID)
	}
	if list[0].Columns != nil {
		t.Errorf("expected no columns, got %v", list[0].Columns)
	}
}

func TestReplaceRecords(t *testing.T) {
	db := openMemDB(t)

	rec := model.Record{
		TeamNum:     100,
		MatchNum:    1,
		MatchType:   model.MatchQualification,
		AutoPts:     model.Some(11),
		TelePts:     model.Some(19),
		TeleHang:    model.Some(1),
		Shooters:    []model.Shooter{model.ShooterHood, model.ShooterDual},
		Role:        model.RoleScorer,
		Chassis:     model.ChassisUnknown,
		Submissions: 2,
	}
	rec.Derive()
	mod := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := db.ReplaceRecords([]model.Record{rec}, mod); err != nil {
		t.Fatalf("ReplaceRecords: %v", err)
	}

	_, rows, err := db.QueryRaw("SELECT match_total_pts, auto_hang, adv_shooter, adv_chasis, adv_role FROM records")
	if err != nil {
		t.Fatalf("QueryRaw: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	want := []string{"40", "NULL", "HOOD + DUAL", "N/A", "SCORER"}
	for i := range want {
		if rows[0][i] != want[i] {
			t.Errorf("column %d: got %q, want %q", i, rows[0][i], want[i])
		}
	}

	st, err := db.LastSync()
	if err != nil {
		t.Fatalf("LastSync: %v", err)
	}
	if st == nil || st.Records != 1 || !st.SourceModTime.Equal(mod) {
		t.Errorf("unexpected sync state: %+v", st)
	}

	// A second sync replaces rather than accumulates.
	other := model.Record{TeamNum: 200, MatchNum: 5, Submissions: 1}
	other.Derive()
	if err := db.ReplaceRecords([]model.Record{other}, time.Time{}); err != nil {
		t.Fatalf("ReplaceRecords: %v", err)
	}
	n, err := db.RecordCount()
	if err != nil {
		t.Fatalf("RecordCount: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 record after replace, got %d", n)
	}
}

func TestLastSyncEmpty(t *testing.T) {
	db := openMemDB(t)
	st, err := db.LastSync()
	if err != nil {
		t.Fatalf("LastSync: %v", err)
	}
	if st != nil {
		t.Errorf("expected nil sync state, got %+v", st)
	}
}

func TestQueryRawError(t *testing.T) {
	db := openMemDB(t)
	if _, _, err := db.QueryRaw("SELECT * FROM no_such_table"); err == nil {
		t.Error("expected error for unknown table")
	}
}
