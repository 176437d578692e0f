package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pable/go-scout-metrics/internal/model"
)

// JSONParser accepts the shapes the scanner app and the dashboard send:
//
//	{...}             one record object
//	[{...}, {...}]    record objects
//	[v0, v1, ...]     one QR payload, positional over model.Header
//	[[...], [...]]    several QR payloads
type JSONParser struct{}

func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

func (p *JSONParser) Parse(data []byte) (*model.Batch, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", ErrMalformed, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after json value", ErrMalformed)
	}

	switch t := v.(type) {
	case map[string]any:
		return fromObjects([]map[string]any{t})
	case []any:
		if len(t) == 0 {
			return nil, ErrEmptyUpload
		}
		switch t[0].(type) {
		case map[string]any:
			objs := make([]map[string]any, len(t))
			for i, e := range t {
				o, ok := e.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%w: element %d is not an object", ErrMalformed, i)
				}
				objs[i] = o
			}
			return fromObjects(objs)
		case []any:
			rows := make([][]any, len(t))
			for i, e := range t {
				r, ok := e.([]any)
				if !ok {
					return nil, fmt.Errorf("%w: element %d is not an array", ErrMalformed, i)
				}
				rows[i] = r
			}
			return fromPositional(rows)
		default:
			return fromPositional([][]any{t})
		}
	default:
		return nil, fmt.Errorf("%w: expected an object or array", ErrMalformed)
	}
}

func fromObjects(objs []map[string]any) (*model.Batch, error) {
	present := make(map[string]bool)
	for _, o := range objs {
		for k := range o {
			present[strings.ToLower(strings.TrimSpace(k))] = true
		}
	}
	var cols, extra []string
	for _, c := range model.Header {
		if present[c] {
			cols = append(cols, c)
			delete(present, c)
		}
	}
	for c := range present {
		if c != "" {
			extra = append(extra, c)
		}
	}
	slices.Sort(extra)
	cols = append(cols, extra...)
	if err := requireKeyColumns(cols); err != nil {
		return nil, err
	}

	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c] = i
	}
	batch := &model.Batch{Columns: cols}
	for i, o := range objs {
		row := make([]string, len(cols))
		for k, v := range o {
			j, ok := idx[strings.ToLower(strings.TrimSpace(k))]
			if !ok {
				continue
			}
			s, err := stringify(v)
			if err != nil {
				return nil, fmt.Errorf("%w: record %d field %q: %v", ErrMalformed, i, k, err)
			}
			row[j] = s
		}
		batch.Rows = append(batch.Rows, row)
	}
	return batch, nil
}

func fromPositional(rows [][]any) (*model.Batch, error) {
	batch := &model.Batch{Columns: slices.Clone(model.Header)}
	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		if len(r) > len(model.Header) {
			return nil, fmt.Errorf("%w: payload %d has %d values, schema has %d", ErrMalformed, i, len(r), len(model.Header))
		}
		row := make([]string, len(model.Header))
		for j, v := range r {
			s, err := stringify(v)
			if err != nil {
				return nil, fmt.Errorf("%w: payload %d position %d: %v", ErrMalformed, i, j, err)
			}
			row[j] = s
		}
		batch.Rows = append(batch.Rows, row)
	}
	if batch.Len() == 0 {
		return nil, ErrEmptyUpload
	}
	return batch, nil
}

// stringify renders a decoded JSON value as CSV cell text. Number lists become the
// hyphen-delimited form used by adv_shooter.
func stringify(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		if t {
			return "1", nil
		}
		return "0", nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String(), nil
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if _, nested := e.([]any); nested {
				return "", errors.New("nested array")
			}
			s, err := stringify(e)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, "-"), nil
	default:
		return "", fmt.Errorf("unsupported value of type %T", v)
	}
}
