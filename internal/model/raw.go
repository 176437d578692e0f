package model

// Header is the column contract of the scouting CSV. It is also the positional layout of QR payloads.
var Header = []string{
	"timestamp",
	"team_num",
	"match_num",
	"match_type",
	"alliance",
	"scouter",
	"start_zone",
	"auto_active",
	"auto_hang",
	"auto_pts",
	"auto_comm",
	"tele_pts",
	"tele_comm",
	"tele_hang",
	"adv_role",
	"adv_broke",
	"adv_fixed",
	"adv_chasis",
	"adv_intake",
	"adv_shooter",
	"adv_climber",
	"adv_hoppercapacity",
	"adv_trench",
	"adv_comments",
}

// RawRecord is one row as received: column name to untrimmed cell text. Missing columns are absent keys.
type RawRecord map[string]string

// Batch is a parsed upload in tabular form.
type Batch struct {
	Columns []string
	Rows    [][]string
}

// Records converts the batch to column-keyed rows. Short rows leave trailing columns absent.
func (b *Batch) Records() []RawRecord {
	out := make([]RawRecord, 0, len(b.Rows))
	for _, row := range b.Rows {
		rec := make(RawRecord, len(b.Columns))
		for i, col := range b.Columns {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

// Len is the number of data rows.
func (b *Batch) Len() int { return len(b.Rows) }
