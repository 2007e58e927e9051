// Package docstore defines the document-store contract the service talks to:
// whole-collection reads, single and batched writes, and live change feeds.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNotFound      = errors.New("docstore: document not found")
	ErrUnavailable   = errors.New("docstore: store unavailable")
	ErrBatchTooLarge = errors.New("docstore: batch exceeds maximum size")
)

// MaxBatchSize is the largest number of operations a single Commit accepts.
const MaxBatchSize = 500

// Fields is a partial document used by Update and merge writes.
// Keys may be dotted paths ("customerInfo.email").
type Fields map[string]any

// Filter is an equality predicate on a (possibly dotted) field path.
type Filter struct {
	Field string
	Value any
}

// Where is shorthand for a single equality filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Query selects documents from one collection. Filters are conjunctive.
// An empty OrderBy keeps insertion order.
type Query struct {
	Where   []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Document is a stored document: its key plus the JSON body.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

// Map returns the document body as a generic map. Numbers decode as json.Number.
func (d Document) Map() (map[string]any, error) {
	return decodeMap(d.Data)
}

type ChangeType int

const (
	Added ChangeType = iota + 1
	Modified
	Removed
)

func (t ChangeType) String() string {
	switch t {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Change is one event on a Watch feed.
type Change struct {
	Type ChangeType
	Doc  Document
}

// Store is implemented by every backend (memory, SQLite, MongoDB).
type Store interface {
	List(ctx context.Context, collection string, q Query) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	// Create stores data under a new server-assigned ID and stamps createdAt.
	Create(ctx context.Context, collection string, data any) (string, error)
	// Set writes data under id. With merge the top-level fields are merged into
	// the existing document; without it the document is replaced.
	Set(ctx context.Context, collection, id string, data any, merge bool) error
	// Update patches an existing document. Missing documents yield ErrNotFound.
	Update(ctx context.Context, collection, id string, fields Fields) error
	Delete(ctx context.Context, collection, id string) error
	// Commit applies every operation in b or none of them.
	Commit(ctx context.Context, b *Batch) error
	// Watch streams changes for documents matching all filters. The feed starts
	// with an Added event per current match and closes when ctx ends.
	Watch(ctx context.Context, collection string, where []Filter) (<-chan Change, error)
	Close() error
}

type OpKind int

const (
	OpSet OpKind = iota + 1
	OpUpdate
	OpDelete
)

// Op is one write inside a Batch.
type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Data       any
	Merge      bool
	Fields     Fields
}

// Batch collects writes to be committed atomically.
type Batch struct {
	Ops []Op
}

func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) Set(collection, id string, data any, merge bool) *Batch {
	b.Ops = append(b.Ops, Op{Kind: OpSet, Collection: collection, ID: id, Data: data, Merge: merge})
	return b
}

func (b *Batch) Update(collection, id string, fields Fields) *Batch {
	b.Ops = append(b.Ops, Op{Kind: OpUpdate, Collection: collection, ID: id, Fields: fields})
	return b
}

func (b *Batch) Delete(collection, id string) *Batch {
	b.Ops = append(b.Ops, Op{Kind: OpDelete, Collection: collection, ID: id})
	return b
}

func (b *Batch) Len() int {
	return len(b.Ops)
}

// Validate checks the batch before any backend touches storage.
func (b *Batch) Validate() error {
	if len(b.Ops) > MaxBatchSize {
		return ErrBatchTooLarge
	}
	for _, op := range b.Ops {
		if op.Collection == "" || op.ID == "" {
			return errors.New("docstore: batch op missing collection or id")
		}
	}
	return nil
}

func decodeMap(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	m := map[string]any{}
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}
