package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pable/go-scout-metrics/internal/model"
)

// Upload is one accepted batch in the ledger.
type Upload struct {
	ID         string
	ReceivedAt time.Time
	Source     string // "http", "ingest" or "fetch"
	Format     string
	RemoteAddr string
	SHA256     string
	Rows       int
	Columns    []string
}

// SyncState records the last mirror of the canonical snapshot.
type SyncState struct {
	SourceModTime time.Time
	SyncedAt      time.Time
	Records       int
}

// InsertUpload records an accepted batch. Uses INSERT OR REPLACE for idempotency.
func (db *DB) InsertUpload(u Upload) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO uploads(id, received_at, source, format, remote_addr, sha256, row_count, columns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.ReceivedAt.UTC().Format(time.RFC3339Nano), u.Source, u.Format,
		u.RemoteAddr, u.SHA256, u.Rows, strings.Join(u.Columns, ","),
	)
	if err != nil {
		return fmt.Errorf("insert upload %s: %w", u.ID, err)
	}
	return nil
}

// UploadBySHA256 returns the earliest upload with the given payload hash, or nil if none.
func (db *DB) UploadBySHA256(hash string) (*Upload, error) {
	row := db.conn.QueryRow(`
		SELECT id, received_at, source, format, remote_addr, sha256, row_count, columns
		FROM uploads WHERE sha256 = ? ORDER BY received_at ASC LIMIT 1`, hash)
	u, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUploads returns the most recent uploads first. limit <= 0 means all.
func (db *DB) ListUploads(limit int) ([]Upload, error) {
	q := `SELECT id, received_at, source, format, remote_addr, sha256, row_count, columns
		FROM uploads ORDER BY received_at DESC`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var out []Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(s rowScanner) (Upload, error) {
	var (
		u        Upload
		received string
		cols     string
	)
	if err := s.Scan(&u.ID, &received, &u.Source, &u.Format, &u.RemoteAddr, &u.SHA256, &u.Rows, &cols); err != nil {
		return Upload{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, received)
	if err != nil {
		return Upload{}, fmt.Errorf("parse received_at for %s: %w", u.ID, err)
	}
	u.ReceivedAt = t
	if cols != "" {
		u.Columns = strings.Split(cols, ",")
	}
	return u, nil
}

// ReplaceRecords swaps the mirrored canonical records for recs in one transaction.
func (db *DB) ReplaceRecords(recs []model.Record, sourceModTime time.Time) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM records"); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO records(
			team_num, match_num, match_type, type_rank, alliance, scouter, start_zone,
			auto_active, auto_hang, auto_pts, tele_pts, tele_hang,
			auto_total_pts, tele_total_pts, match_total_pts,
			adv_broke, adv_fixed, adv_climber,
			adv_role, adv_chasis, adv_intake, adv_hoppercapacity, adv_trench, adv_shooter,
			auto_comm, tele_comm, adv_comments, timestamp, submissions
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range recs {
		r := &recs[i]
		_, raw := model.ShooterLabels(r.Shooters)
		var ts any
		if r.HasTimestamp() {
			ts = r.Timestamp.UTC().Format(time.RFC3339)
		}
		_, err = stmt.Exec(
			r.TeamNum, r.MatchNum, r.MatchType.String(), r.MatchType.Rank(), r.Alliance, r.Scouter, r.StartZone,
			numArg(r.AutoActive), numArg(r.AutoHang), numArg(r.AutoPts), numArg(r.TelePts), numArg(r.TeleHang),
			r.AutoTotalPts, r.TeleTotalPts, r.MatchTotalPts,
			boolInt(r.Broke), boolInt(r.Fixed), boolInt(r.Climber),
			r.Role.String(), r.Chassis.String(), r.Intake.String(), r.Hopper.String(), r.Trench.String(), raw,
			r.AutoComm, r.TeleComm, r.Comments, ts, r.Submissions,
		)
		if err != nil {
			return fmt.Errorf("insert record %d/%d: %w", r.TeamNum, r.MatchNum, err)
		}
	}

	var mod any
	if !sourceModTime.IsZero() {
		mod = sourceModTime.UTC().Format(time.RFC3339Nano)
	}
	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO sync_state(id, source_mod_time, synced_at, record_count)
		VALUES (1, ?, ?, ?)`,
		mod, time.Now().UTC().Format(time.RFC3339Nano), len(recs),
	); err != nil {
		return fmt.Errorf("update sync state: %w", err)
	}
	return tx.Commit()
}

// LastSync returns the most recent mirror state, or nil if the mirror was never synced.
func (db *DB) LastSync() (*SyncState, error) {
	var (
		mod    sql.NullString
		synced string
		st     SyncState
	)
	err := db.conn.QueryRow("SELECT source_mod_time, synced_at, record_count FROM sync_state WHERE id = 1").
		Scan(&mod, &synced, &st.Records)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sync state: %w", err)
	}
	if st.SyncedAt, err = time.Parse(time.RFC3339Nano, synced); err != nil {
		return nil, fmt.Errorf("parse synced_at: %w", err)
	}
	if mod.Valid {
		if st.SourceModTime, err = time.Parse(time.RFC3339Nano, mod.String); err != nil {
			return nil, fmt.Errorf("parse source_mod_time: %w", err)
		}
	}
	return &st, nil
}

// RecordCount is the number of mirrored canonical records.
func (db *DB) RecordCount() (int, error) {
	var n int
	if err := db.conn.QueryRow("SELECT COUNT(1) FROM records").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func numArg(n model.Num) any {
	if !n.Valid {
		return nil
	}
	return n.Value
}
