// Package lookup implements the external enrichment sources: SOL/USD rate,
// marketplace collection data, NFT metadata and rarity ranks.
package lookup

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when a source has no record for the asset.
	ErrNotFound = errors.New("lookup: not found")

	// ErrNotRanked is returned when a collection is known but the asset has no rank.
	ErrNotRanked = errors.New("lookup: asset not ranked")
)

// StatusError is a non-2xx HTTP response from a lookup source.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.Code, e.Body)
}

// Is makes a 404 match ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}
