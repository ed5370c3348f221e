package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hit struct {
	ID    uint64
	Layer int
}

func TestStore_AddGet(t *testing.T) {
	s := NewStore("EventStore#0", nil)

	require.NoError(t, s.Add("hits", []hit{{ID: 1, Layer: 2}}))
	require.NoError(t, s.Add("count", 3))

	hits, err := Get[[]hit](s, "hits")
	require.NoError(t, err)
	assert.Equal(t, []hit{{ID: 1, Layer: 2}}, hits)

	n, err := Get[int](s, "count")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"count", "hits"}, s.Keys())
}

func TestStore_WriteOnce(t *testing.T) {
	s := NewStore("EventStore#1", nil)

	require.NoError(t, s.Add("particles", "v1"))

	err := s.Add("particles", "v2")
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))

	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ErrCodeDuplicateKey, se.Code)
	assert.Equal(t, "particles", se.Key)
	assert.Equal(t, "EventStore#1", se.Store)

	// First value survives the failed write.
	v, err := Get[string](s, "particles")
	require.NoError(t, err)
	assert.Equal(t, "v1", v)
	assert.Equal(t, 1, s.Len())
}

func TestStore_DuplicateWithDifferentTypeStillFails(t *testing.T) {
	s := NewStore("EventStore#2", nil)
	require.NoError(t, s.Add("k", 1))

	err := s.Add("k", "one")
	assert.ErrorIs(t, err, ErrDuplicateKey)

	v, err := Get[int](s, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestStore_KeyNotFound(t *testing.T) {
	s := NewStore("EventStore#3", nil)

	_, err := Get[int](s, "missing")
	require.Error(t, err)
	assert.True(t, IsKeyNotFound(err))
	assert.Contains(t, err.Error(), "KEY_NOT_FOUND")
	assert.Contains(t, err.Error(), "missing")
}

func TestStore_TypeMismatch(t *testing.T) {
	s := NewStore("EventStore#4", nil)
	require.NoError(t, s.Add("hits", []hit{{ID: 1}}))

	_, err := Get[[]int](s, "hits")
	require.Error(t, err)
	assert.True(t, IsTypeMismatch(err))

	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "[]event.hit", se.Stored)
	assert.Equal(t, "[]int", se.Requested)
}

func TestStore_PointerAndValueAreDistinctTypes(t *testing.T) {
	s := NewStore("EventStore#5", nil)
	require.NoError(t, s.Add("h", &hit{ID: 9}))

	_, err := Get[hit](s, "h")
	assert.True(t, IsTypeMismatch(err))

	p, err := Get[*hit](s, "h")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), p.ID)
}

func TestStore_InterfaceRequestIsMismatch(t *testing.T) {
	s := NewStore("EventStore#6", nil)
	require.NoError(t, s.Add("v", 42))

	_, err := Get[any](s, "v")
	assert.True(t, IsTypeMismatch(err))
}

func TestStore_EmptyKeyAndNilValue(t *testing.T) {
	s := NewStore("EventStore#7", nil)

	assert.ErrorIs(t, s.Add("", 1), ErrEmptyKey)
	assert.ErrorIs(t, s.Add("k", nil), ErrNilValue)
	assert.Equal(t, 0, s.Len())

	_, err := Get[int](s, "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestStore_MustGetPanicsOnMissingKey(t *testing.T) {
	s := NewStore("EventStore#8", nil)
	assert.Panics(t, func() { MustGet[int](s, "nope") })
}

func TestStore_ConcurrentWritersSingleWinner(t *testing.T) {
	s := NewStore("JobStore", nil)
	const writers = 50

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Add("shared", i)
		}(i)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, IsDuplicateKey(err))
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, s.Len())
}

func TestContext_Immutability(t *testing.T) {
	s := NewStore("EventStore#9", nil)
	ctx := NewContext(9, 2, 10, s, nil, NewHandles(map[string]any{"geo": "tracker"}))

	mutate := func(c Context) {
		c.StageIndex = 99
		c.EventIndex = 99
	}
	mutate(ctx)

	assert.Equal(t, uint64(9), ctx.EventIndex)
	assert.Equal(t, uint64(2), ctx.StageIndex)
	assert.Equal(t, "event=9 stage=2", ctx.String())
}

func TestHandles(t *testing.T) {
	src := map[string]any{"geo": "tracker", "field": 2.0}
	h := NewHandles(src)
	src["geo"] = "changed"

	geo, err := Handle[string](h, "geo")
	require.NoError(t, err)
	assert.Equal(t, "tracker", geo)

	_, err = Handle[int](h, "field")
	assert.Error(t, err)

	_, err = Handle[string](h, "calib")
	assert.Error(t, err)

	_, ok := NewHandles(nil).Lookup("geo")
	assert.False(t, ok)
	assert.Equal(t, 2, h.Len())
}

func TestProcessCode_String(t *testing.T) {
	assert.Equal(t, "SUCCESS", Success.String())
	assert.Equal(t, "ABORT", Abort.String())
	assert.Equal(t, "END_OF_DATA", EndOfData.String())
	assert.Equal(t, "ProcessCode(7)", ProcessCode(7).String())
}
