// Package query is a keyed cache for server-derived data read by the terminal client.
//
// Reads go through [Get], which fetches lazily on a miss and coalesces concurrent fetches of one
// key. Mutations never write server data into the cache; they call [Cache.Invalidate] and the next
// read refetches. Every key carries a generation that invalidation bumps, so a fetch that started
// before an invalidation is handed back to its caller but never stored as fresh.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/reeltrack/internal/shared"
)

// HydrationElementID is the id of the script element pages embed their snapshot in.
const HydrationElementID = "__hydration"

// Entry is a snapshot of one cached key.
type Entry struct {
	Value      any
	Err        error
	Stale      bool
	FetchedAt  time.Time
	Generation uint64
}

type entry struct {
	value     any
	err       error
	hasValue  bool
	stale     bool
	fetchedAt time.Time
}

// Listener is called after a key is fetched, invalidated or set.
type Listener func(key string, e Entry)

// Cache holds entries by key. The zero value is not usable; call [New].
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	gens      map[string]uint64
	listeners map[string]map[int]Listener
	nextID    int
	group     singleflight.Group
	staleTime time.Duration
	now       func() time.Time
}

// Option configures a [Cache].
type Option func(*Cache)

// WithStaleTime makes entries stale once they are older than d.
func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) { c.staleTime = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:   make(map[string]*entry),
		gens:      make(map[string]uint64),
		listeners: make(map[string]map[int]Listener),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key joins parts with ":".
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

func (c *Cache) freshLocked(e *entry) bool {
	if e == nil || !e.hasValue || e.stale || e.err != nil {
		return false
	}
	return c.staleTime <= 0 || c.now().Sub(e.fetchedAt) < c.staleTime
}

func (c *Cache) snapshotLocked(key string) Entry {
	e := c.entries[key]
	if e == nil {
		return Entry{Stale: true, Generation: c.gens[key]}
	}
	return Entry{
		Value:      e.value,
		Err:        e.err,
		Stale:      !c.freshLocked(e),
		FetchedAt:  e.fetchedAt,
		Generation: c.gens[key],
	}
}

// Get returns the value cached under key, calling fetch when it is missing or stale.
func Get[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	c.mu.Lock()
	if e := c.entries[key]; c.freshLocked(e) {
		v, err := convert[T](e.value)
		if err == nil {
			e.value = v
			c.mu.Unlock()
			return v, nil
		}
	}
	gen := c.gens[key]
	c.mu.Unlock()

	// Reads only share a fetch issued within the same generation.
	res, err, _ := c.group.Do(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		v, err := fetch(ctx)
		c.store(key, gen, v, err)
		return v, err
	})
	if err != nil {
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("%w: cached value for %s has type %T", shared.ErrInvalidInput, key, res)
	}
	return v, nil
}

// convert returns v as T, decoding hydrated JSON on first use.
func convert[T any](v any) (T, error) {
	var out T
	switch raw := v.(type) {
	case T:
		return raw, nil
	case json.RawMessage:
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
		return out, nil
	}
	return out, fmt.Errorf("%w: unexpected cached type %T", shared.ErrInvalidInput, v)
}

// store records a fetch result unless the key was invalidated or set while it was in flight.
func (c *Cache) store(key string, gen uint64, value any, err error) {
	c.mu.Lock()
	if c.gens[key] != gen {
		c.mu.Unlock()
		return
	}

	e := c.entries[key]
	if e == nil {
		e = &entry{}
		c.entries[key] = e
	}
	e.err = err
	e.fetchedAt = c.now()
	if err == nil {
		e.value = value
		e.hasValue = true
		e.stale = false
	} else {
		e.stale = true
	}
	c.mu.Unlock()

	c.notify(key)
}

// Invalidate marks key stale so the next read refetches it.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	c.invalidateLocked(key)
	c.mu.Unlock()
	c.notify(key)
}

func (c *Cache) invalidateLocked(key string) {
	c.gens[key]++
	if e := c.entries[key]; e != nil {
		e.stale = true
	}
}

// InvalidatePrefix invalidates every known key that starts with prefix.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	var keys []string
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	for _, key := range keys {
		c.invalidateLocked(key)
	}
	c.mu.Unlock()

	for _, key := range keys {
		c.notify(key)
	}
}

// Set stores value as fresh. In-flight fetches for key are discarded.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	c.gens[key]++
	c.entries[key] = &entry{value: value, hasValue: true, fetchedAt: c.now()}
	c.mu.Unlock()
	c.notify(key)
}

// Peek returns the entry for key without fetching.
func (c *Cache) Peek(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return Entry{}, false
	}
	return c.snapshotLocked(key), true
}

// Hydrate loads a JSON object of key to value, as embedded by server-rendered pages. Values are
// decoded on their first [Get].
func (c *Cache) Hydrate(data []byte) error {
	var snapshot map[string]json.RawMessage
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("%w: invalid hydration snapshot: %v", shared.ErrInvalidInput, err)
	}
	for key, raw := range snapshot {
		c.Set(key, raw)
	}
	return nil
}

// Subscribe registers fn for changes to key. The returned func removes it.
func (c *Cache) Subscribe(key string, fn Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	if c.listeners[key] == nil {
		c.listeners[key] = make(map[int]Listener)
	}
	c.listeners[key][id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners[key], id)
		if len(c.listeners[key]) == 0 {
			delete(c.listeners, key)
		}
	}
}

func (c *Cache) notify(key string) {
	c.mu.Lock()
	snap := c.snapshotLocked(key)
	fns := make([]Listener, 0, len(c.listeners[key]))
	for _, fn := range c.listeners[key] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(key, snap)
	}
}
