package listing

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// FilterFunc tests one item against a filter value such as a status or a date bucket.
type FilterFunc[T any] func(item T, value string, now time.Time) bool

// Config parameterizes a Controller for one entity list.
type Config[T any] struct {
	Name         string
	PageSize     int
	ID           func(T) string
	Fetch        func(ctx context.Context) ([]T, error)
	SearchFields func(T) []string
	Filters      map[string]FilterFunc[T]
	Sorts        map[string]func(a, b T) int
	DefaultSort  string
	Now          func() time.Time
}

// Criteria is what the user picked: a query, named filter values and a sort key.
// Filter values "" and "all" disable that filter.
type Criteria struct {
	Query   string            `json:"query"`
	Filters map[string]string `json:"filters,omitempty"`
	Sort    string            `json:"sort,omitempty"`
}

// Controller owns the snapshot, view, page and selection for one list.
// All state sits behind one mutex; remote writes happen outside it and
// the state is patched only after they succeed.
type Controller[T any] struct {
	cfg Config[T]

	mu       sync.Mutex
	loaded   bool
	snapshot []T
	view     []T
	page     int
	criteria Criteria
	selected map[string]bool
}

func NewController[T any](cfg Config[T]) *Controller[T] {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	return &Controller[T]{cfg: cfg, page: 1, selected: make(map[string]bool)}
}

func (c *Controller[T]) Name() string {
	return c.cfg.Name
}

func (c *Controller[T]) PageSize() int {
	return c.cfg.PageSize
}

// Load fetches the collection once and resets the view and page.
func (c *Controller[T]) Load(ctx context.Context) error {
	items, err := c.cfg.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", c.cfg.Name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = items
	c.loaded = true
	c.recompute()
	c.page = 1

	present := make(map[string]bool, len(items))
	for _, it := range items {
		present[c.cfg.ID(it)] = true
	}
	for id := range c.selected {
		if !present[id] {
			delete(c.selected, id)
		}
	}
	slog.Debug("List loaded", "list", c.cfg.Name, "count", len(items))
	return nil
}

// Reload refetches a loaded controller and stays on the current page where
// it still exists. Unloaded controllers are left alone.
func (c *Controller[T]) Reload(ctx context.Context) error {
	c.mu.Lock()
	loaded, page := c.loaded, c.page
	c.mu.Unlock()
	if !loaded {
		return nil
	}
	if err := c.Load(ctx); err != nil {
		return err
	}
	c.Page(page)
	return nil
}

// EnsureLoaded loads only on first use.
func (c *Controller[T]) EnsureLoaded(ctx context.Context) error {
	c.mu.Lock()
	loaded := c.loaded
	c.mu.Unlock()
	if loaded {
		return nil
	}
	return c.Load(ctx)
}

func (c *Controller[T]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Apply recomputes the view from the snapshot and returns to page 1.
func (c *Controller[T]) Apply(cr Criteria) Page[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.criteria = cr
	c.recompute()
	c.page = 1
	return Paginate(c.view, c.page, c.cfg.PageSize)
}

func (c *Controller[T]) Criteria() Criteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.criteria
}

// Page moves to page n, clamped to the view.
func (c *Controller[T]) Page(n int) Page[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = ClampPage(n, len(c.view), c.cfg.PageSize)
	return Paginate(c.view, c.page, c.cfg.PageSize)
}

func (c *Controller[T]) Current() Page[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Paginate(c.view, c.page, c.cfg.PageSize)
}

func (c *Controller[T]) Snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.snapshot)
}

func (c *Controller[T]) View() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.view)
}

func (c *Controller[T]) Find(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.snapshot {
		if c.cfg.ID(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Mutate awaits write and, only if it succeeds, applies patch to every
// snapshot record with a listed id. The view is re-derived so a record that
// no longer matches the active filters leaves it; the page is kept.
func (c *Controller[T]) Mutate(ctx context.Context, ids []string, write func(context.Context) error, patch func(*T)) error {
	if err := write(ctx); err != nil {
		return err
	}
	want := toSet(ids)

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.snapshot {
		if want[c.cfg.ID(c.snapshot[i])] {
			patch(&c.snapshot[i])
		}
	}
	c.recompute()
	c.page = ClampPage(c.page, len(c.view), c.cfg.PageSize)
	return nil
}

// Replace swaps in item for the snapshot record with the same id, after a
// write made elsewhere. It reports whether such a record was present.
func (c *Controller[T]) Replace(item T) bool {
	id := c.cfg.ID(item)
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.snapshot {
		if c.cfg.ID(c.snapshot[i]) == id {
			c.snapshot[i] = item
			c.recompute()
			c.page = ClampPage(c.page, len(c.view), c.cfg.PageSize)
			return true
		}
	}
	return false
}

// Remove awaits write and then drops the ids from snapshot, view and selection.
func (c *Controller[T]) Remove(ctx context.Context, ids []string, write func(context.Context) error) error {
	if err := write(ctx); err != nil {
		return err
	}
	gone := toSet(ids)
	keep := func(it T) bool { return !gone[c.cfg.ID(it)] }

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = Filter(c.snapshot, keep)
	c.view = Filter(c.view, keep)
	for id := range gone {
		delete(c.selected, id)
	}
	c.page = ClampPage(c.page, len(c.view), c.cfg.PageSize)
	return nil
}

// Upsert inserts item at the front of the snapshot unless a record with its
// id is already present, then re-derives the view. It reports whether it inserted.
func (c *Controller[T]) Upsert(item T) bool {
	id := c.cfg.ID(item)
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return false
	}
	for _, it := range c.snapshot {
		if c.cfg.ID(it) == id {
			return false
		}
	}
	c.snapshot = append([]T{item}, c.snapshot...)
	c.recompute()
	c.page = ClampPage(c.page, len(c.view), c.cfg.PageSize)
	return true
}

// Toggle flips selection of id and reports the new state.
func (c *Controller[T]) Toggle(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected[id] {
		delete(c.selected, id)
		return false
	}
	c.selected[id] = true
	return true
}

func (c *Controller[T]) Select(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.selected[id] = true
	}
}

// SelectPage selects or clears every record on the current page.
func (c *Controller[T]) SelectPage(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range Paginate(c.view, c.page, c.cfg.PageSize).Items {
		id := c.cfg.ID(it)
		if on {
			c.selected[id] = true
		} else {
			delete(c.selected, id)
		}
	}
}

func (c *Controller[T]) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.selected)
}

// Selected lists selected ids in snapshot order.
func (c *Controller[T]) Selected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.selected))
	for _, it := range c.snapshot {
		if id := c.cfg.ID(it); c.selected[id] {
			out = append(out, id)
		}
	}
	return out
}

// recompute derives the view; callers hold mu.
func (c *Controller[T]) recompute() {
	now := c.cfg.Now()
	items := Search(c.snapshot, c.criteria.Query, c.cfg.SearchFields)
	for name, value := range c.criteria.Filters {
		if value == "" || value == "all" {
			continue
		}
		f, ok := c.cfg.Filters[name]
		if !ok {
			continue
		}
		items = Filter(items, func(it T) bool { return f(it, value, now) })
	}

	key := c.criteria.Sort
	if key == "" {
		key = c.cfg.DefaultSort
	}
	if cmp, ok := c.cfg.Sorts[key]; ok {
		slices.SortStableFunc(items, cmp)
	}
	c.view = items
}

func toSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
