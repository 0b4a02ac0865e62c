package memory

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type countingHooks struct {
	hits, misses, expired, evicted, size atomic.Int64
}

func (h *countingHooks) Hit()          { h.hits.Add(1) }
func (h *countingHooks) Miss()         { h.misses.Add(1) }
func (h *countingHooks) Expired(n int) { h.expired.Add(int64(n)) }
func (h *countingHooks) Evicted(n int) { h.evicted.Add(int64(n)) }
func (h *countingHooks) Size(n int)    { h.size.Store(int64(n)) }

func newTestStore(t *testing.T, opts Options) (*Store, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	if opts.Now == nil {
		opts.Now = clock.Now
	}
	s := New(opts)
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func TestNewDefaults(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	assert.Equal(t, DefaultMaxEntries, s.MaxEntries())
	assert.Equal(t, 0, s.Len())

	s.Put("k", "v", 0)
	e, ok := s.Peek("k")
	require.True(t, ok)
	assert.Equal(t, DefaultTTL, e.ExpiresAt.Sub(e.CreatedAt))
}

func TestPutGetCountsAccess(t *testing.T) {
	s, _ := newTestStore(t, Options{})

	s.Put("k", "hello", time.Minute)
	e, ok := s.Peek("k")
	require.True(t, ok)
	assert.Equal(t, 1, e.AccessCount)

	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "hello", v)

	e, _ = s.Peek("k")
	assert.Equal(t, 2, e.AccessCount)

	_, ok = s.Get("other")
	assert.False(t, ok)

	st := s.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
}

func TestPeekDoesNotMutate(t *testing.T) {
	s, clock := newTestStore(t, Options{})
	s.Put("k", "v", time.Minute)

	for range 3 {
		e, ok := s.Peek("k")
		require.True(t, ok)
		assert.Equal(t, 1, e.AccessCount)
	}

	clock.Advance(2 * time.Minute)
	e, ok := s.Peek("k")
	require.True(t, ok, "peek must not remove expired entries")
	assert.True(t, e.Expired(clock.Now()))
	assert.Equal(t, 1, s.Len())
}

func TestGetExpiredRemovesEntry(t *testing.T) {
	s, clock := newTestStore(t, Options{})
	s.Put("k", "v", time.Minute)

	clock.Advance(59 * time.Second)
	_, ok := s.Get("k")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = s.Get("k")
	assert.False(t, ok, "entry is expired once now reaches ExpiresAt")
	assert.Equal(t, 0, s.Len())
}

func TestPutReplacesAndResetsAccess(t *testing.T) {
	s, clock := newTestStore(t, Options{})
	s.Put("k", "old", time.Minute)
	s.Get("k")
	s.Get("k")

	clock.Advance(30 * time.Second)
	s.Put("k", "new", time.Minute)

	e, ok := s.Peek("k")
	require.True(t, ok)
	assert.Equal(t, "new", e.Value)
	assert.Equal(t, 1, e.AccessCount)
	assert.Equal(t, clock.Now(), e.CreatedAt)
	assert.Equal(t, 1, s.Len())
}

func TestStatsClassifiesWithoutRemoving(t *testing.T) {
	s, clock := newTestStore(t, Options{MaxEntries: 50})
	s.Put("short", "a", time.Second)
	s.Put("long", "b", time.Hour)
	s.Get("long")

	clock.Advance(5 * time.Second)
	st := s.Stats()
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Valid)
	assert.Equal(t, 1, st.Expired)
	assert.Equal(t, int64(3), st.TotalAccesses)
	assert.Equal(t, 50, st.MaxCapacity)
	assert.Equal(t, 2, s.Len())
}

func TestClear(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	for i := range 5 {
		s.Put(fmt.Sprintf("k%d", i), "v", 0)
	}
	assert.Equal(t, 5, s.Clear())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Stats().Total)
	assert.Equal(t, 0, s.Clear())
}

func TestEvictExpiredOnly(t *testing.T) {
	s, clock := newTestStore(t, Options{MaxEntries: 10})
	s.Put("a", "1", time.Second)
	s.Put("b", "2", time.Second)
	s.Put("c", "3", time.Hour)

	clock.Advance(time.Minute)
	res := s.Evict()
	assert.Equal(t, EvictResult{Expired: 2, Trimmed: 0, Remaining: 1}, res)
	_, ok := s.Peek("c")
	assert.True(t, ok)
}

func TestEvictTrimsLeastAccessedToHalf(t *testing.T) {
	s, _ := newTestStore(t, Options{MaxEntries: 10})
	for i := range 15 {
		s.Put(fmt.Sprintf("k%02d", i), "v", time.Hour)
	}
	// k10..k14 get two extra hits, k05..k09 one.
	for i := 5; i < 15; i++ {
		s.Get(fmt.Sprintf("k%02d", i))
		if i >= 10 {
			s.Get(fmt.Sprintf("k%02d", i))
		}
	}

	res := s.Evict()
	assert.Equal(t, 0, res.Expired)
	assert.Equal(t, 10, res.Trimmed)
	assert.Equal(t, 5, res.Remaining)
	assert.LessOrEqual(t, s.Len(), s.MaxEntries()/2)

	for i := 10; i < 15; i++ {
		e, ok := s.Peek(fmt.Sprintf("k%02d", i))
		require.True(t, ok, "k%02d should survive", i)
		assert.Equal(t, 3, e.AccessCount)
	}
	assert.Equal(t, int64(10), s.Stats().Evictions)
}

func TestEvictTieBreaksOnAge(t *testing.T) {
	s, clock := newTestStore(t, Options{MaxEntries: 4})
	for _, k := range []string{"e", "d", "c", "b", "a"} {
		s.Put(k, "v", time.Hour)
		clock.Advance(time.Second)
	}

	res := s.Evict()
	assert.Equal(t, 3, res.Trimmed)

	// equal access counts: the oldest inserts go first
	for _, k := range []string{"e", "d", "c"} {
		_, ok := s.Peek(k)
		assert.False(t, ok, "%s should be evicted", k)
	}
	for _, k := range []string{"b", "a"} {
		_, ok := s.Peek(k)
		assert.True(t, ok, "%s should survive", k)
	}
}

func TestEvictTieBreaksOnKey(t *testing.T) {
	s, _ := newTestStore(t, Options{MaxEntries: 2})
	for _, k := range []string{"c", "a", "b"} {
		s.Put(k, "v", time.Hour)
	}
	s.Evict()
	_, ok := s.Peek("a")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
	_, ok = s.Peek("c")
	assert.True(t, ok)
}

func TestEvictWithinCapacityIsNoop(t *testing.T) {
	s, _ := newTestStore(t, Options{MaxEntries: 10})
	for i := range 10 {
		s.Put(fmt.Sprintf("k%d", i), "v", time.Hour)
	}
	assert.Equal(t, EvictResult{Remaining: 10}, s.Evict())
}

func TestPutWithoutAutoEvictGrowsPastCapacity(t *testing.T) {
	s, _ := newTestStore(t, Options{MaxEntries: 3})
	for i := range 6 {
		s.Put(fmt.Sprintf("k%d", i), "v", time.Hour)
	}
	assert.Equal(t, 6, s.Len())
	s.Evict()
	assert.Equal(t, 1, s.Len())
}

func TestAutoEvict(t *testing.T) {
	s, _ := newTestStore(t, Options{MaxEntries: 4, AutoEvict: true})
	for i := range 4 {
		s.Put(fmt.Sprintf("k%d", i), "v", time.Hour)
	}
	assert.Equal(t, 4, s.Len())

	s.Put("k4", "v", time.Hour)
	assert.Equal(t, 2, s.Len())
	_, ok := s.Peek("k4")
	assert.True(t, ok, "newest entry survives the trim")
}

func TestHooks(t *testing.T) {
	h := &countingHooks{}
	s, clock := newTestStore(t, Options{MaxEntries: 2, Hooks: h})

	s.Put("a", "v", time.Second)
	s.Get("a")
	s.Get("missing")
	clock.Advance(time.Minute)
	s.Get("a")

	assert.Equal(t, int64(1), h.hits.Load())
	assert.Equal(t, int64(2), h.misses.Load())
	assert.Equal(t, int64(1), h.expired.Load())

	for _, k := range []string{"x", "y", "z"} {
		s.Put(k, "v", time.Hour)
	}
	assert.Equal(t, int64(3), h.size.Load())
	s.Evict()
	assert.Equal(t, int64(2), h.evicted.Load())
	assert.Equal(t, int64(1), h.size.Load())
}

func TestJanitorEvicts(t *testing.T) {
	s := New(Options{CleanupInterval: 5 * time.Millisecond})
	defer s.Close()

	s.Put("k", "v", time.Millisecond)
	require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestCloseIdempotent(t *testing.T) {
	s := New(Options{CleanupInterval: time.Hour})
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	plain := New(Options{})
	require.NoError(t, plain.Close())
}

func TestConcurrentAccess(t *testing.T) {
	s, _ := newTestStore(t, Options{MaxEntries: 64, AutoEvict: true})

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				k := fmt.Sprintf("g%d-%d", g, i%40)
				s.Put(k, "v", time.Hour)
				s.Get(k)
				if i%50 == 0 {
					s.Stats()
					s.Evict()
				}
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, s.Len(), 64)
}

func TestSizeHookSettlesOnFinalCount(t *testing.T) {
	h := &countingHooks{}
	s, _ := newTestStore(t, Options{MaxEntries: 1000, Hooks: h})

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				s.Put(fmt.Sprintf("g%d-%d", g, i), "v", time.Hour)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, s.Len())
	assert.Equal(t, int64(800), h.size.Load())
}
