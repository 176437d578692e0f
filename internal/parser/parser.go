// Package parser turns uploaded scouting payloads (CSV, XLSX, JSON objects or QR positional
// arrays) into a tabular model.Batch. It validates structure only; cell contents are left for
// the normalizer.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pable/go-scout-metrics/internal/model"
)

var (
	// ErrEmptyUpload is returned when a payload carries no data rows.
	ErrEmptyUpload = errors.New("empty upload")
	// ErrUnsupportedFormat is returned when no parser handles the requested format.
	ErrUnsupportedFormat = errors.New("unsupported upload format")
	// ErrMalformed wraps structural problems: header/row mismatch, missing key columns, bad JSON.
	ErrMalformed = errors.New("malformed upload")
)

// Parser converts a raw payload into a batch of rows.
type Parser interface {
	Parse(data []byte) (*model.Batch, error)
}

// Format names a payload encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Factory picks a parser by format name, filename or content type.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// Hint carries what a caller knows about a payload. Resolve consults the fields in order:
// explicit format, filename extension, content type, then the payload bytes.
type Hint struct {
	Format      string
	Filename    string
	ContentType string
}

// Resolve picks the parser for a payload and reports the format it settled on. A generic
// content type (empty, text/plain, octet-stream) falls through to Sniff.
func (f *Factory) Resolve(h Hint, data []byte) (Parser, Format, error) {
	var (
		format Format
		err    error
	)
	switch {
	case strings.TrimSpace(h.Format) != "":
		format, err = formatByName(h.Format)
	case h.Filename != "":
		format, err = formatByFilename(h.Filename)
	default:
		format, err = formatByContentType(h.ContentType)
		if err == nil && format == "" {
			format = Sniff(data)
		}
	}
	if err != nil {
		return nil, "", err
	}
	return f.forFormat(format), format, nil
}

// ForFormat returns the parser for an explicit format name ("csv", "xlsx", "json").
func (f *Factory) ForFormat(name string) (Parser, error) {
	format, err := formatByName(name)
	if err != nil {
		return nil, err
	}
	return f.forFormat(format), nil
}

// ForFilename picks by extension. Files without an extension are CSV.
func (f *Factory) ForFilename(filename string) (Parser, error) {
	format, err := formatByFilename(filename)
	if err != nil {
		return nil, err
	}
	return f.forFormat(format), nil
}

// ForContentType picks by MIME type. An empty or generic type means CSV.
func (f *Factory) ForContentType(contentType string) (Parser, error) {
	format, err := formatByContentType(contentType)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatCSV
	}
	return f.forFormat(format), nil
}

func (f *Factory) forFormat(format Format) Parser {
	switch format {
	case FormatXLSX:
		return NewXLSXParser()
	case FormatJSON:
		return NewJSONParser()
	default:
		return NewCSVParser()
	}
}

func formatByName(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX, "xls":
		return FormatXLSX, nil
	case FormatJSON, "qr":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

func formatByFilename(filename string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case "", ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xls":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: file type %s", ErrUnsupportedFormat, ext)
	}
}

// formatByContentType returns "" for types that say nothing about the payload.
func formatByContentType(contentType string) (Format, error) {
	if strings.TrimSpace(contentType) == "" {
		return "", nil
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: content type %q", ErrUnsupportedFormat, contentType)
	}
	switch mt {
	case "text/plain", "application/octet-stream", "application/x-www-form-urlencoded":
		return "", nil
	case "text/csv", "application/csv":
		return FormatCSV, nil
	case "application/json", "text/json":
		return FormatJSON, nil
	case xlsxMIME:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: content type %s", ErrUnsupportedFormat, mt)
	}
}

// Sniff guesses the format from the payload itself: zip magic is XLSX, a leading
// brace or bracket is JSON, anything else CSV.
func Sniff(data []byte) Format {
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return FormatXLSX
	}
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatCSV
}

var utf8BOM = []byte("\xef\xbb\xbf")

// cleanHeader trims and lowercases column names and rejects blank or duplicate names.
func cleanHeader(cols []string) ([]string, error) {
	out := make([]string, len(cols))
	for i, c := range cols {
		c = strings.ToLower(strings.TrimSpace(c))
		if i == 0 {
			c = strings.TrimPrefix(c, string(utf8BOM))
		}
		if c == "" {
			return nil, fmt.Errorf("%w: blank column name at position %d", ErrMalformed, i+1)
		}
		if slices.Contains(out[:i], c) {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrMalformed, c)
		}
		out[i] = c
	}
	return out, nil
}

func requireKeyColumns(cols []string) error {
	for _, k := range []string{"team_num", "match_num"} {
		if !slices.Contains(cols, k) {
			return fmt.Errorf("%w: missing required column %q", ErrMalformed, k)
		}
	}
	return nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
