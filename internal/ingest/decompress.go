package ingest

import (
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrTooLarge is returned when a payload exceeds the size limit after decompression.
var ErrTooLarge = errors.New("payload too large")

// ErrUnsupportedEncoding is returned for a Content-Encoding other than identity, gzip, zstd or bzip2.
var ErrUnsupportedEncoding = errors.New("unsupported content encoding")

// EncodingFor maps a Content-Encoding header, or failing that a file suffix, to a codec name.
func EncodingFor(contentEncoding, name string) string {
	if ce := strings.ToLower(strings.TrimSpace(contentEncoding)); ce != "" {
		return ce
	}
	switch {
	case strings.HasSuffix(name, ".gz"):
		return "gzip"
	case strings.HasSuffix(name, ".zst"):
		return "zstd"
	case strings.HasSuffix(name, ".bz2"):
		return "bzip2"
	}
	return ""
}

// ReadAll decodes src according to encoding and reads at most limit decoded bytes.
// limit <= 0 disables the cap.
func ReadAll(src io.Reader, encoding string, limit int64) ([]byte, error) {
	var r io.Reader = src
	switch encoding {
	case "", "identity":
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	case "zstd":
		dec, err := zstd.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		r = dec
	case "bzip2":
		r = bzip2.NewReader(src)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, encoding)
	}

	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}
