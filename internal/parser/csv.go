package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/pable/go-scout-metrics/internal/model"
)

// CSVParser reads a header row followed by data rows. Every row must have as many fields as the header.
type CSVParser struct{}

func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

func (p *CSVParser) Parse(data []byte) (*model.Batch, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyUpload
	}

	r := csv.NewReader(bytes.NewReader(data))
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformed, err)
	}
	cols, err := cleanHeader(header)
	if err != nil {
		return nil, err
	}
	if err := requireKeyColumns(cols); err != nil {
		return nil, err
	}

	batch := &model.Batch{Columns: cols}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) && errors.Is(pe.Err, csv.ErrFieldCount) {
				return nil, fmt.Errorf("%w: line %d has %d fields, header has %d", ErrMalformed, pe.Line, len(row), len(cols))
			}
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if blankRow(row) {
			continue
		}
		batch.Rows = append(batch.Rows, row)
	}
	if batch.Len() == 0 {
		return nil, ErrEmptyUpload
	}
	return batch, nil
}
