package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrValidation            = errors.New("validation error")
	ErrNotFound              = errors.New("not found")
	ErrUnsupportedMediaType  = errors.New("unsupported media type")
	ErrPayloadTooLarge       = errors.New("payload too large")
	ErrExtraction            = errors.New("text extraction failed")
	ErrEmptyContent          = errors.New("no usable text content")
	ErrProviderNotConfigured = errors.New("ai provider not configured")
	ErrProviderUnavailable   = errors.New("ai provider unavailable")
	ErrProviderEmptyResponse = errors.New("ai provider returned no content")
)

// kind ties a sentinel to its wire code and status. Detail is true when
// the wrapped message is safe to show to clients.
type kind struct {
	err    error
	code   string
	status int
	detail bool
}

var kinds = []kind{
	{ErrValidation, "validation_error", http.StatusBadRequest, true},
	{ErrNotFound, "not_found", http.StatusNotFound, true},
	{ErrUnsupportedMediaType, "unsupported_media_type", http.StatusBadRequest, true},
	{ErrPayloadTooLarge, "payload_too_large", http.StatusBadRequest, true},
	{ErrExtraction, "extraction_error", http.StatusInternalServerError, false},
	{ErrEmptyContent, "empty_content", http.StatusInternalServerError, true},
	{ErrProviderNotConfigured, "provider_not_configured", http.StatusInternalServerError, false},
	{ErrProviderUnavailable, "provider_unavailable", http.StatusBadGateway, false},
	{ErrProviderEmptyResponse, "provider_empty_response", http.StatusBadGateway, false},
}

const CodeInternal = "internal_error"

func lookup(err error) (kind, bool) {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k, true
		}
	}
	return kind{}, false
}

// Code returns the machine-readable code for err, or CodeInternal.
func Code(err error) string {
	if k, ok := lookup(err); ok {
		return k.code
	}
	return CodeInternal
}

// Status returns the HTTP status for err.
func Status(err error) int {
	if k, ok := lookup(err); ok {
		return k.status
	}
	return http.StatusInternalServerError
}

// Public returns the text that may be sent to a client: the full message
// for input errors, the bare sentinel text for server-side failures and
// an empty string for anything unclassified.
func Public(err error) string {
	k, ok := lookup(err)
	switch {
	case !ok:
		return ""
	case k.detail:
		return err.Error()
	default:
		return k.err.Error()
	}
}

// Known reports whether err wraps one of the taxonomy sentinels.
func Known(err error) bool {
	_, ok := lookup(err)
	return ok
}

// FromCode maps a wire code back to its sentinel. Unknown codes return nil.
func FromCode(code string) error {
	for _, k := range kinds {
		if k.code == code {
			return k.err
		}
	}
	return nil
}
