package model

import (
	"slices"
	"time"
)

// Dataset is an immutable snapshot of canonical records. Accessors hand out copies, so callers
// may keep or modify what they receive without affecting other readers.
type Dataset struct {
	records []Record
	byTeam  map[int][]int
	source  time.Time
	builtAt time.Time
}

// NewDataset takes ownership of records; the caller must not retain the slice.
func NewDataset(records []Record, source, builtAt time.Time) *Dataset {
	ds := &Dataset{
		records: records,
		byTeam:  make(map[int][]int),
		source:  source,
		builtAt: builtAt,
	}
	for i := range records {
		ds.byTeam[records[i].TeamNum] = append(ds.byTeam[records[i].TeamNum], i)
	}
	return ds
}

// Empty is the dataset returned before the backing store exists.
func Empty() *Dataset { return NewDataset(nil, time.Time{}, time.Time{}) }

// Len is the number of canonical records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Records returns a deep copy of every record.
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	out := make([]Record, len(d.records))
	for i := range d.records {
		out[i] = d.records[i].Clone()
	}
	return out
}

// Team returns a deep copy of one team's records, in dataset order.
func (d *Dataset) Team(teamNum int) []Record {
	if d == nil {
		return nil
	}
	idx := d.byTeam[teamNum]
	out := make([]Record, 0, len(idx))
	for _, i := range idx {
		out = append(out, d.records[i].Clone())
	}
	return out
}

// Teams returns the distinct team numbers, ascending.
func (d *Dataset) Teams() []int {
	if d == nil {
		return nil
	}
	out := make([]int, 0, len(d.byTeam))
	for t := range d.byTeam {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// SourceModTime is the backing store modification time the snapshot was built from.
func (d *Dataset) SourceModTime() time.Time { return d.source }

// BuiltAt is when the snapshot was built.
func (d *Dataset) BuiltAt() time.Time { return d.builtAt }
