package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/engage-api/internal/domain"
)

// Paging defaults for list endpoints.
const (
	defaultLimit = 100
	maxLimit     = 1000
)

// getPathID extracts a positive int64 ID from the URL path parameter paramName.
func getPathID(r *http.Request, paramName string) (int64, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return 0, fmt.Errorf("%w: %s is required", domain.ErrInvalidID, paramName)
	}

	id, err := strconv.ParseInt(pathParam, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s has invalid format", domain.ErrInvalidID, paramName)
	}

	return id, nil
}

// getPage reads the skip and limit query parameters. Missing values default
// to 0 and defaultLimit; limit is capped at maxLimit.
func getPage(r *http.Request) (skip, limit int, err error) {
	q := r.URL.Query()

	skip, err = queryInt(q.Get("skip"), 0)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: skip must be an integer", domain.ErrValidation)
	}
	limit, err = queryInt(q.Get("limit"), defaultLimit)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: limit must be an integer", domain.ErrValidation)
	}
	if skip < 0 || limit < 0 {
		return 0, 0, fmt.Errorf("%w: skip and limit must not be negative", domain.ErrValidation)
	}

	return skip, min(limit, maxLimit), nil
}

func queryInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
