package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spendview/spendview/internal/query"
)

// KeyParams is the normalized identity of one API request.
type KeyParams struct {
	Endpoint   string               `json:"endpoint"`
	Path       map[string]string    `json:"path,omitempty"`
	Filters    map[string]string    `json:"filters,omitempty"`
	Pagination *PaginationKeyParams `json:"pagination,omitempty"`
}

// PaginationKeyParams holds the paging part of a key.
type PaginationKeyParams struct {
	Page      int    `json:"page,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// ErrEmptyEndpoint is returned when a key has no endpoint.
var ErrEmptyEndpoint = errors.New("cache key endpoint cannot be empty")

// GenerateKey returns the SHA-256 hex digest of the normalized params.
// Map order, surrounding whitespace and sort-order case do not affect the key.
func GenerateKey(params KeyParams) (string, error) {
	endpoint := strings.TrimSpace(params.Endpoint)
	if endpoint == "" {
		return "", ErrEmptyEndpoint
	}

	normalized := KeyParams{
		Endpoint: endpoint,
		Path:     normalizeMap(params.Path),
		Filters:  normalizeMap(params.Filters),
	}
	if p := params.Pagination; p != nil {
		normalized.Pagination = &PaginationKeyParams{
			Page:      p.Page,
			Limit:     p.Limit,
			SortBy:    strings.TrimSpace(p.SortBy),
			SortOrder: strings.ToLower(strings.TrimSpace(p.SortOrder)),
		}
	}

	// encoding/json writes map keys sorted, so the encoding is canonical.
	data, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// KeyFor builds the key for a request to endpoint with params.
func KeyFor(endpoint string, params query.Params) (string, error) {
	kp := KeyParams{
		Endpoint: endpoint,
		Path:     params.Path,
		Filters:  params.Filters,
	}
	if params.Page != 0 || params.Limit != 0 || params.Sort != "" {
		kp.Pagination = &PaginationKeyParams{
			Page:      params.Page,
			Limit:     params.Limit,
			SortBy:    params.Sort,
			SortOrder: params.Order,
		}
	}
	return GenerateKey(kp)
}

func normalizeMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
