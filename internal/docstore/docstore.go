// Package docstore defines the document-store contract the client syncs
// against, mirroring the backend's collection/document data model.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for a missing document.
var ErrNotFound = errors.New("document not found")

// Document is a stored record: an id plus loosely-typed fields.
type Document struct {
	ID     string
	Fields map[string]any
}

// Filter narrows a query. Op is one of "==" or "array-contains".
type Filter struct {
	Field string
	Op    string
	Value any
}

// OrderBy sorts query results by a field.
type OrderBy struct {
	Field string
	Desc  bool
}

// Store is the subset of the backend document API the client consumes.
// Implementations must treat BatchDelete as atomic: either every id is
// deleted or none are.
type Store interface {
	Query(ctx context.Context, collection string, filter Filter, orderBy OrderBy) ([]Document, error)
	Get(ctx context.Context, collection, id string) (*Document, error)
	Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error
	Delete(ctx context.Context, collection, id string) error
	BatchDelete(ctx context.Context, collection string, ids []string) error
}

// String reads a string field, tolerating absent or mistyped values.
func (d *Document) String(field string) string {
	if v, ok := d.Fields[field].(string); ok {
		return v
	}
	return ""
}

// Bool reads a bool field.
func (d *Document) Bool(field string) bool {
	v, _ := d.Fields[field].(bool)
	return v
}

// Int reads a numeric field. JSON round-trips land as float64, so both
// representations are accepted.
func (d *Document) Int(field string) int {
	switch v := d.Fields[field].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Strings reads a string-slice field.
func (d *Document) Strings(field string) []string {
	switch v := d.Fields[field].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
