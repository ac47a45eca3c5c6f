package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"studybuddy/internal/apperr"
	"studybuddy/internal/ingest"

	"go.uber.org/zap"
)

// multipartSlack covers boundaries and part headers on top of the file itself.
const multipartSlack = 64 << 10

type Ingestor interface {
	Run(ctx context.Context, up ingest.Upload) (ingest.Result, error)
}

type PDFHandler struct {
	Pipeline Ingestor
	MaxBytes int64
	Log      *zap.Logger
}

func (h *PDFHandler) Upload(w http.ResponseWriter, r *http.Request) {
	const action = "failed to summarize PDF"

	up, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, r, h.Log, action, err)
		return
	}
	res, err := h.Pipeline.Run(r.Context(), up)
	if err != nil {
		writeError(w, r, h.Log, action, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// readUpload streams the multipart body and returns the single file found
// under the "pdf" or "file" field. At most MaxBytes+1 bytes of the file are
// kept so the pipeline can tell an oversize upload from one at the limit.
func (h *PDFHandler) readUpload(w http.ResponseWriter, r *http.Request) (ingest.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes+multipartSlack)

	mr, err := r.MultipartReader()
	if err != nil {
		return ingest.Upload{}, fmt.Errorf("%w: expected a multipart/form-data upload", apperr.ErrValidation)
	}

	var (
		up    ingest.Upload
		found bool
	)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ingest.Upload{}, h.bodyErr(err)
		}

		name := part.FormName()
		if name != "pdf" && name != "file" {
			_, _ = io.Copy(io.Discard, part)
			part.Close()
			continue
		}
		if found {
			part.Close()
			return ingest.Upload{}, fmt.Errorf("%w: only one file per request", apperr.ErrValidation)
		}

		data, err := io.ReadAll(io.LimitReader(part, h.MaxBytes+1))
		part.Close()
		if err != nil {
			return ingest.Upload{}, h.bodyErr(err)
		}
		up = ingest.Upload{Filename: strings.TrimSpace(part.FileName()), Data: data}
		found = true
	}

	if !found {
		return ingest.Upload{}, fmt.Errorf("%w: no file uploaded (use the \"pdf\" field)", apperr.ErrValidation)
	}
	return up, nil
}

func (h *PDFHandler) bodyErr(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return fmt.Errorf("%w: file exceeds %d bytes", apperr.ErrPayloadTooLarge, h.MaxBytes)
	}
	return fmt.Errorf("%w: malformed multipart body", apperr.ErrValidation)
}
