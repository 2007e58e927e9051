// Package repository gives each document collection a typed accessor.
package repository

import (
	"context"
	"fmt"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
)

// Collection reads and writes one collection as values of T.
type Collection[T any] struct {
	Store docstore.Store
	Name  string
	setID func(*T, string)
}

func NewCollection[T any](s docstore.Store, name string, setID func(*T, string)) Collection[T] {
	return Collection[T]{Store: s, Name: name, setID: setID}
}

func (c Collection[T]) decode(d docstore.Document) (T, error) {
	var v T
	if err := d.Decode(&v); err != nil {
		return v, fmt.Errorf("decode %s/%s: %w", c.Name, d.ID, err)
	}
	if c.setID != nil {
		c.setID(&v, d.ID)
	}
	return v, nil
}

// List fetches the whole collection (or the query's subset) in one call.
func (c Collection[T]) List(ctx context.Context, q docstore.Query) ([]T, error) {
	docs, err := c.Store.List(ctx, c.Name, q)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := c.decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// All returns every document, newest first by createdAt.
func (c Collection[T]) All(ctx context.Context) ([]T, error) {
	return c.List(ctx, docstore.Query{OrderBy: "createdAt", Desc: true})
}

func (c Collection[T]) Get(ctx context.Context, id string) (T, error) {
	d, err := c.Store.Get(ctx, c.Name, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.decode(d)
}

// Create stores v and returns the stored copy with its new ID and server timestamps.
func (c Collection[T]) Create(ctx context.Context, v T) (T, error) {
	id, err := c.Store.Create(ctx, c.Name, v)
	if err != nil {
		return v, err
	}
	return c.Get(ctx, id)
}

func (c Collection[T]) Set(ctx context.Context, id string, data any, merge bool) error {
	return c.Store.Set(ctx, c.Name, id, data, merge)
}

func (c Collection[T]) Update(ctx context.Context, id string, fields docstore.Fields) error {
	return c.Store.Update(ctx, c.Name, id, fields)
}

func (c Collection[T]) Delete(ctx context.Context, id string) error {
	return c.Store.Delete(ctx, c.Name, id)
}

// UpdateMany applies the same patch to every id. Each chunk of
// docstore.MaxBatchSize ids commits atomically.
func (c Collection[T]) UpdateMany(ctx context.Context, ids []string, fields docstore.Fields) error {
	return c.commitChunks(ctx, ids, func(b *docstore.Batch, id string) {
		b.Update(c.Name, id, fields)
	})
}

// DeleteMany removes every id, chunked like UpdateMany.
func (c Collection[T]) DeleteMany(ctx context.Context, ids []string) error {
	return c.commitChunks(ctx, ids, func(b *docstore.Batch, id string) {
		b.Delete(c.Name, id)
	})
}

func (c Collection[T]) commitChunks(ctx context.Context, ids []string, add func(*docstore.Batch, string)) error {
	for start := 0; start < len(ids); start += docstore.MaxBatchSize {
		end := min(start+docstore.MaxBatchSize, len(ids))
		b := docstore.NewBatch()
		for _, id := range ids[start:end] {
			add(b, id)
		}
		if err := c.Store.Commit(ctx, b); err != nil {
			return err
		}
	}
	return nil
}
