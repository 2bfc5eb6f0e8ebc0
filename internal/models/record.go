// Package models defines the content records managed by the dashboard.
package models

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// FilterAll matches every record a panel lists by default.
const FilterAll = "all"

// Record is a document owned by the remote content store.
type Record interface {
	// GetID returns the store-assigned identifier, empty before the first save.
	GetID() string
	Validate() error
	// SearchText returns the text a free-form search is matched against.
	SearchText() string
	// MatchesFilter reports whether the record belongs to the named filter view.
	MatchesFilter(filter string) bool
}

// Flaggable records expose boolean flags that are toggled through partial updates.
type Flaggable interface {
	FlagValue(flag string) (bool, bool)
	// FlagPatch returns the partial update that sets flag to v.
	FlagPatch(flag string, v bool) map[string]any
}

// Orderable records carry a manual sort key.
type Orderable interface {
	GetOrder() int
	SetOrder(order int)
}

// FieldErrors flattens an ozzo validation error into field -> message.
// It returns nil when err is not a field-level validation error.
func FieldErrors(err error) map[string]string {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for field, ferr := range verrs {
		if ferr == nil {
			continue
		}
		out[field] = ferr.Error()
	}
	return out
}

// MatchesSearch reports whether r's search text contains q, case-insensitively.
// An empty query matches everything.
func MatchesSearch(r Record, q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.SearchText()), q)
}

func joinText(fields ...string) string {
	return strings.Join(fields, "\n")
}
