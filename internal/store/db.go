package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
)

// Store keeps every collection in one SQLite table of JSON documents.
type Store struct {
	DB  *sql.DB
	hub *docstore.Hub
	now func() time.Time

	// mu serializes writes so Watch can snapshot and subscribe without gaps.
	mu sync.Mutex
}

var _ docstore.Store = (*Store)(nil)

func NewStore(dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	return &Store{DB: db, hub: docstore.NewHub(), now: time.Now}, nil
}

// SetClock replaces time.Now for server timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) List(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = ?`)
	args = append(args, collection)
	for _, f := range q.Where {
		sb.WriteString(` AND json_extract(data, '$.' || ?) = ?`)
		args = append(args, f.Field, sqlValue(f.Value))
	}
	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		sb.WriteString(` ORDER BY json_extract(data, '$.' || ?) ` + dir + `, seq ` + dir)
		args = append(args, q.OrderBy)
	} else {
		sb.WriteString(` ORDER BY seq`)
	}
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := s.DB.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var d docstore.Document
		var data string
		if err := rows.Scan(&d.ID, &data); err != nil {
			return nil, err
		}
		d.Data = []byte(data)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var data string
	err := s.DB.QueryRowContext(ctx, `SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return docstore.Document{ID: id, Data: []byte(data)}, nil
}

func (s *Store) Create(ctx context.Context, collection string, data any) (string, error) {
	doc, err := docstore.PrepareCreate(data, s.now())
	if err != nil {
		return "", err
	}
	raw, err := docstore.Marshal(doc)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.DB.ExecContext(ctx, `INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)`, collection, id, string(raw))
	if err != nil {
		return "", fmt.Errorf("create in %s: %w", collection, err)
	}
	s.hub.Publish(collection, nil, &docstore.Document{ID: id, Data: raw})
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data any, merge bool) error {
	return s.Commit(ctx, docstore.NewBatch().Set(collection, id, data, merge))
}

func (s *Store) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	return s.Commit(ctx, docstore.NewBatch().Update(collection, id, fields))
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.Commit(ctx, docstore.NewBatch().Delete(collection, id))
}

type pendingEvent struct {
	collection    string
	before, after *docstore.Document
}

// Commit applies the batch in one transaction and publishes changes after it commits.
func (s *Store) Commit(ctx context.Context, b *docstore.Batch) error {
	if err := b.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := s.now()
	var events []pendingEvent
	for _, op := range b.Ops {
		ev, err := applyOp(ctx, tx, op, now)
		if err != nil {
			return err
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	for _, ev := range events {
		s.hub.Publish(ev.collection, ev.before, ev.after)
	}
	return nil
}

func applyOp(ctx context.Context, tx *sql.Tx, op docstore.Op, now time.Time) (*pendingEvent, error) {
	var existing map[string]any
	var beforeRaw []byte
	var data string
	err := tx.QueryRowContext(ctx, `SELECT data FROM documents WHERE collection = ? AND id = ?`, op.Collection, op.ID).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, err
	default:
		beforeRaw = []byte(data)
		existing, err = (docstore.Document{Data: beforeRaw}).Map()
		if err != nil {
			return nil, err
		}
	}

	ev := &pendingEvent{collection: op.Collection}
	if beforeRaw != nil {
		ev.before = &docstore.Document{ID: op.ID, Data: beforeRaw}
	}

	var next map[string]any
	switch op.Kind {
	case docstore.OpSet:
		next, err = docstore.PrepareSet(existing, op.Data, op.Merge, now)
		if err != nil {
			return nil, err
		}
	case docstore.OpUpdate:
		if existing == nil {
			return nil, fmt.Errorf("update %s/%s: %w", op.Collection, op.ID, docstore.ErrNotFound)
		}
		next = existing
		if err := docstore.ApplyUpdate(next, op.Fields, now); err != nil {
			return nil, err
		}
	case docstore.OpDelete:
		if existing == nil {
			return nil, nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, op.Collection, op.ID); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown op kind %d", op.Kind)
	}

	raw, err := docstore.Marshal(next)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data`,
		op.Collection, op.ID, string(raw))
	if err != nil {
		return nil, fmt.Errorf("write %s/%s: %w", op.Collection, op.ID, err)
	}
	ev.after = &docstore.Document{ID: op.ID, Data: raw}
	return ev, nil
}

// Watch snapshots the matching documents and subscribes under the write lock.
func (s *Store) Watch(ctx context.Context, collection string, where []docstore.Filter) (<-chan docstore.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	initial, err := s.List(ctx, collection, docstore.Query{Where: where})
	if err != nil {
		return nil, err
	}
	slog.Debug("Watch subscribed", "collection", collection, "initial", len(initial))
	return s.hub.Subscribe(ctx, collection, where, initial), nil
}

// sqlValue maps a Go value to what json_extract returns for its JSON encoding.
func sqlValue(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return v
	}
	switch t := decoded.(type) {
	case bool:
		if t {
			return 1
		}
		return 0
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	}
	return decoded
}
