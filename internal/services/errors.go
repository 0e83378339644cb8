package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes backend and operation context
// while tagging it with the provided marker for later classification. The
// marker should be one of the exported sentinel errors above.
func Wrap(marker error, backend, operation, message string, err error) error {
	detail := buildDetail(backend, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// MarkerForStatus maps an HTTP status code to the sentinel describing it.
func MarkerForStatus(code int) error {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrConfiguration
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		return ErrValidation
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return ErrTimeout
	default:
		return ErrTransient
	}
}

// Hint returns a short operator-facing suggestion for err.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "check jellyfin.url and jellyfin.api_key"
	case errors.Is(err, ErrNotFound):
		return "the item may have been removed; rescan the library and retry"
	case errors.Is(err, ErrValidation):
		return "the server rejected the request parameters"
	case errors.Is(err, ErrTimeout):
		return "increase jellyfin.request_timeout or reduce library.workers"
	default:
		return "verify the library server is reachable and retry"
	}
}

func buildDetail(backend, operation, message string) string {
	parts := make([]string, 0, 3)
	if backend = strings.TrimSpace(backend); backend != "" {
		parts = append(parts, backend)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
