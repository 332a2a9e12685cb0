package docstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Store. It backs tests and serves as the offline
// fallback when no backend is reachable.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]map[string]any)}
}

func (m *Memory) Query(ctx context.Context, collection string, filter Filter, orderBy OrderBy) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var docs []Document
	for id, fields := range m.collections[collection] {
		if !matches(fields, filter) {
			continue
		}
		docs = append(docs, Document{ID: id, Fields: cloneFields(fields)})
	}

	if orderBy.Field != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			a, b := docs[i].Fields[orderBy.Field], docs[j].Fields[orderBy.Field]
			if orderBy.Desc {
				return fieldLess(b, a)
			}
			return fieldLess(a, b)
		})
	}

	return docs, nil
}

func (m *Memory) Get(ctx context.Context, collection, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fields, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{ID: id, Fields: cloneFields(fields)}, nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]map[string]any)
	}

	existing, ok := m.collections[collection][id]
	if !merge || !ok {
		m.collections[collection][id] = cloneFields(fields)
		return nil
	}
	for k, v := range fields {
		existing[k] = v
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections[collection], id)
	return nil
}

func (m *Memory) BatchDelete(ctx context.Context, collection string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.collections[collection], id)
	}
	return nil
}

func matches(fields map[string]any, filter Filter) bool {
	if filter.Field == "" {
		return true
	}
	switch filter.Op {
	case "array-contains":
		for _, item := range asStrings(fields[filter.Field]) {
			if item == filter.Value {
				return true
			}
		}
		return false
	default: // "=="
		return fields[filter.Field] == filter.Value
	}
}

func asStrings(v any) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func fieldLess(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return av < bv
	case int64:
		bv, _ := b.(int64)
		return av < bv
	case float64:
		bv, _ := b.(float64)
		return av < bv
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Before(bv)
	}
	return false
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
