// Package optimistic keeps an ordered in-memory collection that is mutated
// before the remote write completes and rolled back when the write fails.
package optimistic

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const tempPrefix = "temp-"

var ErrNotFound = errors.New("not_found")

// Entity is implemented by the pointer type of every collection element.
type Entity interface {
	EntityID() string
	SetEntityID(id string)
	SetTimestamps(createdAt, updatedAt time.Time)
	Touch(updatedAt time.Time)
}

// Cloner lets elements holding slices or maps snapshot themselves deeply.
type Cloner[T any] interface {
	Clone() T
}

// Remote is the authoritative store the collection mirrors.
type Remote[T any] interface {
	Create(ctx context.Context, draft T) (T, error)
	Update(ctx context.Context, item T) (T, error)
	Delete(ctx context.Context, id string) error
}

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

type Option[T any] func(*options[T])

type options[T any] struct {
	now      func() time.Time
	onChange func(op Op, item T)
}

// WithClock overrides the time source used for synthesised timestamps.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(o *options[T]) { o.now = now }
}

// WithOnChange registers a hook fired after every successful mutation.
func WithOnChange[T any](fn func(op Op, item T)) Option[T] {
	return func(o *options[T]) { o.onChange = fn }
}

// Collection is safe for concurrent use. Remote calls run outside the lock,
// so two mutations in flight may complete in either order.
type Collection[T any, P interface {
	*T
	Entity
}] struct {
	mu     sync.Mutex
	items  []T
	remote Remote[T]
	opts   options[T]
}

func New[T any, P interface {
	*T
	Entity
}](remote Remote[T], opts ...Option[T]) *Collection[T, P] {
	o := options[T]{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	return &Collection[T, P]{remote: remote, opts: o}
}

// IsTemp reports whether id was synthesised locally.
func IsTemp(id string) bool {
	return strings.HasPrefix(id, tempPrefix)
}

// Items returns a copy of the current elements.
func (c *Collection[T, P]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Replace loads a freshly fetched list.
func (c *Collection[T, P]) Replace(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = cloneAll[T](items)
}

func (c *Collection[T, P]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		var zero T
		return zero, false
	}
	return cloneOne(c.items[i]), true
}

func (c *Collection[T, P]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Upsert stores an authoritative element received outside a mutation,
// replacing the element with the same id or prepending it.
func (c *Collection[T, P]) Upsert(item T) {
	id := P(&item).EntityID()
	c.mu.Lock()
	if i := c.indexLocked(id); i >= 0 {
		c.items[i] = cloneOne(item)
	} else {
		c.items = slices.Insert(c.items, 0, cloneOne(item))
	}
	c.mu.Unlock()
}

// Create prepends draft under a temporary id and swaps in the stored object
// once the remote accepts it.
func (c *Collection[T, P]) Create(ctx context.Context, draft T) (T, error) {
	tempID := tempPrefix + ulid.Make().String()
	now := c.opts.now()

	local := cloneOne(draft)
	P(&local).SetEntityID(tempID)
	P(&local).SetTimestamps(now, now)

	c.mu.Lock()
	c.items = slices.Insert(c.items, 0, local)
	c.mu.Unlock()

	created, err := c.remote.Create(ctx, draft)

	c.mu.Lock()
	i := c.indexLocked(tempID)
	if err != nil {
		if i >= 0 {
			c.items = slices.Delete(c.items, i, i+1)
		}
		c.mu.Unlock()
		var zero T
		return zero, err
	}
	if i >= 0 {
		c.items[i] = cloneOne(created)
	} else {
		c.items = slices.Insert(c.items, 0, cloneOne(created))
	}
	c.mu.Unlock()

	c.notify(OpCreate, created)
	return created, nil
}

// Update applies patch in place, then sends the merged element to the remote.
// The whole collection reverts to its prior value if the remote rejects it.
func (c *Collection[T, P]) Update(ctx context.Context, id string, patch func(P)) (T, error) {
	var zero T

	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return zero, ErrNotFound
	}
	snapshot := c.snapshotLocked()
	patch(P(&c.items[i]))
	P(&c.items[i]).SetEntityID(id)
	P(&c.items[i]).Touch(c.opts.now())
	merged := cloneOne(c.items[i])
	c.mu.Unlock()

	updated, err := c.remote.Update(ctx, merged)

	c.mu.Lock()
	if err != nil {
		c.items = snapshot
		c.mu.Unlock()
		return zero, err
	}
	if j := c.indexLocked(id); j >= 0 {
		c.items[j] = cloneOne(updated)
	}
	c.mu.Unlock()

	c.notify(OpUpdate, updated)
	return updated, nil
}

// Delete removes the element and restores the prior collection on failure.
func (c *Collection[T, P]) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return ErrNotFound
	}
	snapshot := c.snapshotLocked()
	removed := c.items[i]
	c.items = slices.Delete(c.items, i, i+1)
	c.mu.Unlock()

	if err := c.remote.Delete(ctx, id); err != nil {
		c.mu.Lock()
		c.items = snapshot
		c.mu.Unlock()
		return err
	}

	c.notify(OpDelete, removed)
	return nil
}

func (c *Collection[T, P]) notify(op Op, item T) {
	if c.opts.onChange != nil {
		c.opts.onChange(op, item)
	}
}

func (c *Collection[T, P]) indexLocked(id string) int {
	return slices.IndexFunc(c.items, func(item T) bool {
		return P(&item).EntityID() == id
	})
}

func (c *Collection[T, P]) snapshotLocked() []T {
	return cloneAll[T](c.items)
}

func cloneAll[T any](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	out := make([]T, len(items))
	for i := range items {
		out[i] = cloneOne(items[i])
	}
	return out
}

func cloneOne[T any](item T) T {
	if c, ok := any(item).(Cloner[T]); ok {
		return c.Clone()
	}
	if c, ok := any(&item).(Cloner[T]); ok {
		return c.Clone()
	}
	return item
}
