package contentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
)

// Resource is a collection endpoint of the content API.
type Resource[T any] struct {
	c    *Client
	path string
}

// NewResource binds a collection path such as "skills".
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{c: c, path: path}
}

// Path returns the collection path.
func (r *Resource[T]) Path() string {
	return r.path
}

// list responses are either a bare array or wrapped in {"data": [...]}.
type listBody[T any] struct {
	items []T
}

func (l *listBody[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &l.items)
	}
	var env struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	l.items = env.Data
	return nil
}

// List fetches the collection. query carries optional filter/search parameters.
func (r *Resource[T]) List(ctx context.Context, query url.Values) ([]T, error) {
	var body listBody[T]
	if err := r.c.do(ctx, http.MethodGet, r.path, query, nil, &body); err != nil {
		return nil, err
	}
	if body.items == nil {
		return []T{}, nil
	}
	return body.items, nil
}

// Get fetches one record.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	err := r.c.do(ctx, http.MethodGet, r.itemPath(id), nil, nil, &out)
	return out, err
}

// derived is implemented by records whose JSON carries display-only keys the
// store does not hold.
type derived interface {
	DerivedFields() []string
}

// Create stores a new record and returns it with the server-assigned id.
func (r *Resource[T]) Create(ctx context.Context, rec T) (T, error) {
	var out T
	var body any = rec
	if d, ok := any(rec).(derived); ok {
		data, err := json.Marshal(rec)
		if err != nil {
			return out, err
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return out, err
		}
		body = omit(m, d.DerivedFields())
	}
	err := r.c.do(ctx, http.MethodPost, r.path, nil, body, &out)
	return out, err
}

// Update applies a partial update and returns the server representation.
func (r *Resource[T]) Update(ctx context.Context, id string, patch map[string]any) (T, error) {
	var out T
	if d, ok := any(out).(derived); ok {
		patch = omit(patch, d.DerivedFields())
	}
	err := r.c.do(ctx, http.MethodPatch, r.itemPath(id), nil, patch, &out)
	return out, err
}

func omit(m map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if !slices.Contains(keys, k) {
			out[k] = v
		}
	}
	return out
}

// Delete removes one record.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil, nil)
}

// Reorder persists the full ordered id list in one request.
func (r *Resource[T]) Reorder(ctx context.Context, ids []string) error {
	return r.c.do(ctx, http.MethodPut, r.path+"/reorder", nil, map[string][]string{"ids": ids}, nil)
}

func (r *Resource[T]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

// Document is a singleton endpoint holding one record per site.
type Document[T any] struct {
	c    *Client
	path string
}

// NewDocument binds a singleton path such as "content".
func NewDocument[T any](c *Client, path string) *Document[T] {
	return &Document[T]{c: c, path: path}
}

// Get fetches the document.
func (d *Document[T]) Get(ctx context.Context) (T, error) {
	var out T
	err := d.c.do(ctx, http.MethodGet, d.path, nil, nil, &out)
	return out, err
}

// Put replaces the document and returns the stored version.
func (d *Document[T]) Put(ctx context.Context, doc T) (T, error) {
	var out T
	err := d.c.do(ctx, http.MethodPut, d.path, nil, doc, &out)
	return out, err
}
