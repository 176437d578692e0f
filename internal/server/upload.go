package server

import (
	"errors"
	"net/http"

	"github.com/pable/go-scout-metrics/internal/ingest"
	"github.com/pable/go-scout-metrics/internal/parser"
)

type uploadResponse struct {
	Status    string `json:"status"`
	Count     int    `json:"count"`
	UploadID  string `json:"upload_id"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

type uploadError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// handleUpload accepts CSV, JSON (objects or QR positional arrays) or XLSX, optionally gzip or
// zstd encoded. The format comes from ?format=, then Content-Type, then the payload itself.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	encoding := ingest.EncodingFor(r.Header.Get("Content-Encoding"), "")
	data, err := ingest.ReadAll(body, encoding, s.cfg.MaxUploadBytes)
	if err != nil {
		s.rejectUpload(w, err)
		return
	}

	res, err := s.ingester.Ingest(ingest.Request{
		Data: data,
		Hint: parser.Hint{
			Format:      r.URL.Query().Get("format"),
			ContentType: r.Header.Get("Content-Type"),
		},
		Source:     "http",
		RemoteAddr: clientIP(r),
	})
	if err != nil {
		s.rejectUpload(w, err)
		return
	}

	if s.metrics != nil {
		if res.Duplicate {
			s.metrics.UploadDuplicate()
		} else {
			s.metrics.UploadAccepted(res.Rows)
		}
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Status:    "success",
		Count:     res.Rows,
		UploadID:  res.UploadID,
		Duplicate: res.Duplicate,
	})
}

func (s *Server) rejectUpload(w http.ResponseWriter, err error) {
	if s.metrics != nil {
		s.metrics.UploadRejected()
	}
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig), errors.Is(err, ingest.ErrTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, uploadError{Status: "error", Message: "upload exceeds size limit"})
	case errors.Is(err, parser.ErrEmptyUpload):
		writeJSON(w, http.StatusBadRequest, uploadError{Status: "error", Message: "Empty data"})
	case ingest.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, uploadError{Status: "error", Message: err.Error()})
	default:
		s.log.Error("upload failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, uploadError{Status: "error", Message: "failed to store upload"})
	}
}
