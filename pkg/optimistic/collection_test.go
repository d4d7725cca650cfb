package optimistic

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	ID        string
	Title     string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (n *note) EntityID() string          { return n.ID }
func (n *note) SetEntityID(id string)     { n.ID = id }
func (n *note) Touch(updatedAt time.Time) { n.UpdatedAt = updatedAt }
func (n *note) SetTimestamps(createdAt, updatedAt time.Time) {
	n.CreatedAt = createdAt
	n.UpdatedAt = updatedAt
}

func (n note) Clone() note {
	n.Tags = slices.Clone(n.Tags)
	return n
}

var errRemote = errors.New("remote_unavailable")

type fakeRemote struct {
	mu      sync.Mutex
	seq     int
	fail    bool
	block   chan struct{}
	created []note
	deleted []string
}

func (f *fakeRemote) Create(ctx context.Context, draft note) (note, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return note{}, errRemote
	}
	f.seq++
	draft.ID = fmt.Sprintf("srv-%d", f.seq)
	draft.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	draft.UpdatedAt = draft.CreatedAt
	f.created = append(f.created, draft)
	return draft, nil
}

func (f *fakeRemote) Update(ctx context.Context, item note) (note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return note{}, errRemote
	}
	return item, nil
}

func (f *fakeRemote) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errRemote
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func seeded(remote Remote[note], opts ...Option[note]) *Collection[note, *note] {
	c := New[note](remote, opts...)
	c.Replace([]note{
		{ID: "a", Title: "first", Tags: []string{"x"}},
		{ID: "b", Title: "second", Tags: []string{"y"}},
	})
	return c
}

func TestCreateReplacesTemporaryElement(t *testing.T) {
	remote := &fakeRemote{}
	c := seeded(remote)

	created, err := c.Create(context.Background(), note{Title: "third"})
	require.NoError(t, err)
	assert.Equal(t, "srv-1", created.ID)

	items := c.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "srv-1", items[0].ID)
	assert.Equal(t, "third", items[0].Title)
	for _, item := range items {
		assert.False(t, IsTemp(item.ID))
	}
}

func TestCreateShowsTemporaryElementWhileInFlight(t *testing.T) {
	remote := &fakeRemote{block: make(chan struct{})}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := seeded(remote, WithClock[note](func() time.Time { return now }))

	done := make(chan error, 1)
	go func() {
		_, err := c.Create(context.Background(), note{Title: "pending"})
		done <- err
	}()

	require.Eventually(t, func() bool { return c.Len() == 3 }, time.Second, 5*time.Millisecond)
	head := c.Items()[0]
	assert.True(t, IsTemp(head.ID))
	assert.Equal(t, now, head.CreatedAt)
	assert.Equal(t, now, head.UpdatedAt)

	close(remote.block)
	require.NoError(t, <-done)
	assert.Equal(t, "srv-1", c.Items()[0].ID)
}

func TestCreateRollbackRestoresCollection(t *testing.T) {
	remote := &fakeRemote{fail: true}
	c := seeded(remote)
	before := c.Items()

	_, err := c.Create(context.Background(), note{Title: "lost"})
	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, before, c.Items())
}

func TestCreateRollbackOnEmptyCollection(t *testing.T) {
	c := New[note](&fakeRemote{fail: true})

	_, err := c.Create(context.Background(), note{Title: "lost"})
	assert.ErrorIs(t, err, errRemote)
	assert.Empty(t, c.Items())
}

func TestUpdateMergesAndTouches(t *testing.T) {
	now := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	var changes []Op
	c := seeded(&fakeRemote{},
		WithClock[note](func() time.Time { return now }),
		WithOnChange[note](func(op Op, _ note) { changes = append(changes, op) }),
	)

	updated, err := c.Update(context.Background(), "b", func(n *note) {
		n.Title = "renamed"
		n.ID = "ignored"
	})
	require.NoError(t, err)
	assert.Equal(t, "b", updated.ID)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, now, updated.UpdatedAt)

	got, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, []Op{OpUpdate}, changes)
}

func TestUpdateRollbackRestoresSnapshot(t *testing.T) {
	c := seeded(&fakeRemote{fail: true})
	before := c.Items()

	_, err := c.Update(context.Background(), "a", func(n *note) {
		n.Title = "changed"
		n.Tags[0] = "mutated"
	})
	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, before, c.Items())
}

func TestUpdateUnknownID(t *testing.T) {
	c := seeded(&fakeRemote{})
	_, err := c.Update(context.Background(), "missing", func(n *note) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	remote := &fakeRemote{}
	c := seeded(remote)

	require.NoError(t, c.Delete(context.Background(), "a"))
	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, []string{"a"}, remote.deleted)
}

func TestDeleteRollbackRestoresOrder(t *testing.T) {
	c := seeded(&fakeRemote{fail: true})
	before := c.Items()

	err := c.Delete(context.Background(), "a")
	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, before, c.Items())
	assert.ErrorIs(t, c.Delete(context.Background(), "zzz"), ErrNotFound)
}

func TestItemsReturnsCopy(t *testing.T) {
	c := seeded(&fakeRemote{})
	items := c.Items()
	items[0].Title = "local edit"
	items[0].Tags[0] = "local tag"

	got, _ := c.Get("a")
	assert.Equal(t, "first", got.Title)
	assert.Equal(t, []string{"x"}, got.Tags)
}
