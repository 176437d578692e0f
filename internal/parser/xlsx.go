package parser

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/pable/go-scout-metrics/internal/model"
)

// XLSXParser reads the first sheet of a workbook; row one is the header.
type XLSXParser struct{}

func NewXLSXParser() *XLSXParser {
	return &XLSXParser{}
}

func (p *XLSXParser) Parse(data []byte) (*model.Batch, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrMalformed, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformed)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrMalformed, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyUpload
	}

	cols, err := cleanHeader(rows[0])
	if err != nil {
		return nil, err
	}
	if err := requireKeyColumns(cols); err != nil {
		return nil, err
	}

	batch := &model.Batch{Columns: cols}
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		// GetRows drops trailing empty cells, so short rows are fine; long ones are not.
		if len(row) > len(cols) {
			return nil, fmt.Errorf("%w: row %d has %d cells, header has %d", ErrMalformed, i+2, len(row), len(cols))
		}
		full := make([]string, len(cols))
		copy(full, row)
		batch.Rows = append(batch.Rows, full)
	}
	if batch.Len() == 0 {
		return nil, ErrEmptyUpload
	}
	return batch, nil
}
