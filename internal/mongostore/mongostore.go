// Package mongostore is the hosted document-database backend. Change streams
// and multi-document transactions need a replica set.
package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

var _ docstore.Store = (*Store)(nil)

// Connect dials uri and pings the primary before returning.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{client: client, db: client.Database(database), now: time.Now}, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) List(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	filter, err := toFilter(q.Where)
	if err != nil {
		return nil, err
	}
	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}, {Key: "_id", Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var docs []docstore.Document
	for cur.Next(ctx) {
		var m bson.M
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		d, err := fromBSON(m)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, cur.Err()
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	m, err := s.find(ctx, s.db.Collection(collection), id)
	if err != nil {
		return docstore.Document{}, err
	}
	if m == nil {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return fromBSON(m)
}

func (s *Store) Create(ctx context.Context, collection string, data any) (string, error) {
	doc, err := docstore.PrepareCreate(data, s.now())
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	b, err := toBSON(id, doc)
	if err != nil {
		return "", err
	}
	if _, err := s.db.Collection(collection).InsertOne(ctx, b); err != nil {
		return "", fmt.Errorf("create in %s: %w", collection, err)
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data any, merge bool) error {
	return s.apply(ctx, docstore.Op{Kind: docstore.OpSet, Collection: collection, ID: id, Data: data, Merge: merge}, s.now())
}

func (s *Store) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	return s.apply(ctx, docstore.Op{Kind: docstore.OpUpdate, Collection: collection, ID: id, Fields: fields}, s.now())
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.apply(ctx, docstore.Op{Kind: docstore.OpDelete, Collection: collection, ID: id}, s.now())
}

// Commit runs the batch in a session transaction.
func (s *Store) Commit(ctx context.Context, b *docstore.Batch) error {
	if err := b.Validate(); err != nil {
		return err
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	now := s.now()
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, op := range b.Ops {
			if err := s.apply(sc, op, now); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// apply does a read-modify-write so stamping rules match the other backends.
func (s *Store) apply(ctx context.Context, op docstore.Op, now time.Time) error {
	coll := s.db.Collection(op.Collection)
	existingBSON, err := s.find(ctx, coll, op.ID)
	if err != nil {
		return err
	}
	var existing map[string]any
	if existingBSON != nil {
		d, err := fromBSON(existingBSON)
		if err != nil {
			return err
		}
		if existing, err = d.Map(); err != nil {
			return err
		}
	}

	var next map[string]any
	switch op.Kind {
	case docstore.OpSet:
		next, err = docstore.PrepareSet(existing, op.Data, op.Merge, now)
		if err != nil {
			return err
		}
	case docstore.OpUpdate:
		if existing == nil {
			return fmt.Errorf("update %s/%s: %w", op.Collection, op.ID, docstore.ErrNotFound)
		}
		next = existing
		if err := docstore.ApplyUpdate(next, op.Fields, now); err != nil {
			return err
		}
	case docstore.OpDelete:
		_, err := coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: op.ID}})
		return err
	default:
		return fmt.Errorf("unknown op kind %d", op.Kind)
	}

	b, err := toBSON(op.ID, next)
	if err != nil {
		return err
	}
	_, err = coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: op.ID}}, b, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", op.Collection, op.ID, err)
	}
	return nil
}

func (s *Store) find(ctx context.Context, coll *mongo.Collection, id string) (bson.M, error) {
	var m bson.M
	err := coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", coll.Name(), id, err)
	}
	return m, nil
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument bson.M `bson:"fullDocument"`
}

// Watch opens the change stream before reading the initial matches so nothing
// committed in between is lost. The set of matching IDs decides whether an
// event is an enter, an in-place change or a leave.
func (s *Store) Watch(ctx context.Context, collection string, where []docstore.Filter) (<-chan docstore.Change, error) {
	coll := s.db.Collection(collection)
	stream, err := coll.Watch(ctx, mongo.Pipeline{}, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", collection, err)
	}
	initial, err := s.List(ctx, collection, docstore.Query{Where: where})
	if err != nil {
		stream.Close(context.Background())
		return nil, err
	}

	out := make(chan docstore.Change)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		matching := make(map[string]docstore.Document, len(initial))
		emit := func(c docstore.Change) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, d := range initial {
			matching[d.ID] = d
			if !emit(docstore.Change{Type: docstore.Added, Doc: d}) {
				return
			}
		}

		for stream.Next(ctx) {
			var ev changeEvent
			if err := stream.Decode(&ev); err != nil {
				slog.Error("Mongo watch: decode failed", "collection", collection, "error", err)
				continue
			}
			id := ev.DocumentKey.ID
			prev, wasIn := matching[id]

			var cur *docstore.Document
			if ev.FullDocument != nil {
				d, err := fromBSON(ev.FullDocument)
				if err == nil {
					if body, err := d.Map(); err == nil && docstore.Matches(body, where) {
						cur = &d
					}
				}
			}

			var change docstore.Change
			switch {
			case cur != nil && !wasIn:
				matching[id] = *cur
				change = docstore.Change{Type: docstore.Added, Doc: *cur}
			case cur != nil && wasIn:
				matching[id] = *cur
				change = docstore.Change{Type: docstore.Modified, Doc: *cur}
			case cur == nil && wasIn:
				delete(matching, id)
				change = docstore.Change{Type: docstore.Removed, Doc: prev}
			default:
				continue
			}
			if !emit(change) {
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			slog.Error("Mongo watch: stream ended", "collection", collection, "error", err)
		}
	}()
	return out, nil
}

func toFilter(where []docstore.Filter) (bson.D, error) {
	filter := bson.D{}
	for _, f := range where {
		v, err := toBSONValue(f.Value)
		if err != nil {
			return nil, err
		}
		filter = append(filter, bson.E{Key: f.Field, Value: v})
	}
	return filter, nil
}

// toBSON converts a document body to BSON through relaxed Extended JSON.
func toBSON(id string, body map[string]any) (bson.M, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.UnmarshalExtJSON(raw, false, &m); err != nil {
		return nil, fmt.Errorf("convert to bson: %w", err)
	}
	m["_id"] = id
	return m, nil
}

func toBSONValue(v any) (any, error) {
	raw, err := json.Marshal(map[string]any{"v": v})
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.UnmarshalExtJSON(raw, false, &m); err != nil {
		return nil, err
	}
	return m["v"], nil
}

func fromBSON(m bson.M) (docstore.Document, error) {
	id, _ := m["_id"].(string)
	body := make(bson.M, len(m))
	for k, v := range m {
		if k != "_id" {
			body[k] = v
		}
	}
	raw, err := bson.MarshalExtJSON(body, false, false)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("convert from bson: %w", err)
	}
	return docstore.Document{ID: id, Data: raw}, nil
}
