package docstore

import "context"

// Deferred is a Store whose every call first waits for the readiness future,
// so services can be built before the backend connection exists.
type Deferred struct {
	ready *Ready
}

var _ Store = (*Deferred)(nil)

func NewDeferred(r *Ready) *Deferred {
	return &Deferred{ready: r}
}

func (d *Deferred) store(ctx context.Context) (Store, error) {
	s, err := d.ready.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrUnavailable
	}
	return s, nil
}

func (d *Deferred) List(ctx context.Context, collection string, q Query) ([]Document, error) {
	s, err := d.store(ctx)
	if err != nil {
		return nil, err
	}
	return s.List(ctx, collection, q)
}

func (d *Deferred) Get(ctx context.Context, collection, id string) (Document, error) {
	s, err := d.store(ctx)
	if err != nil {
		return Document{}, err
	}
	return s.Get(ctx, collection, id)
}

func (d *Deferred) Create(ctx context.Context, collection string, data any) (string, error) {
	s, err := d.store(ctx)
	if err != nil {
		return "", err
	}
	return s.Create(ctx, collection, data)
}

func (d *Deferred) Set(ctx context.Context, collection, id string, data any, merge bool) error {
	s, err := d.store(ctx)
	if err != nil {
		return err
	}
	return s.Set(ctx, collection, id, data, merge)
}

func (d *Deferred) Update(ctx context.Context, collection, id string, fields Fields) error {
	s, err := d.store(ctx)
	if err != nil {
		return err
	}
	return s.Update(ctx, collection, id, fields)
}

func (d *Deferred) Delete(ctx context.Context, collection, id string) error {
	s, err := d.store(ctx)
	if err != nil {
		return err
	}
	return s.Delete(ctx, collection, id)
}

func (d *Deferred) Commit(ctx context.Context, b *Batch) error {
	s, err := d.store(ctx)
	if err != nil {
		return err
	}
	return s.Commit(ctx, b)
}

func (d *Deferred) Watch(ctx context.Context, collection string, where []Filter) (<-chan Change, error) {
	s, err := d.store(ctx)
	if err != nil {
		return nil, err
	}
	return s.Watch(ctx, collection, where)
}

// Close closes the underlying store if it ever became ready.
func (d *Deferred) Close() error {
	select {
	case <-d.ready.Done():
		if d.ready.store != nil {
			return d.ready.store.Close()
		}
	default:
	}
	return nil
}
