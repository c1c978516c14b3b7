package cache

import (
	"container/list"
	"sync"
	"time"
)

var _ Cache[[]byte] = (*LRUCache[[]byte])(nil)

// LRUCache keeps at most capacity values, each for ttl. The front of order is
// the most recently used entry. A zero ttl turns Set into a no-op.
type LRUCache[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	index    map[string]*list.Element
	order    *list.List
	now      func() time.Time
	gen      uint64
}

type entry[T any] struct {
	key     string
	value   T
	expires time.Time
}

func (e *entry[T]) expired(now time.Time) bool { return !now.Before(e.expires) }

func NewLRUCache[T any](capacity int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		capacity: max(capacity, 1),
		ttl:      ttl,
		index:    make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

func (c *LRUCache[T]) Get(key string) (value T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el := c.index[key]
	if el == nil {
		return value, false
	}
	e := el.Value.(*entry[T])
	if e.expired(c.now()) {
		c.drop(el)
		return value, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value)
}

// Generation changes on every Purge. A value computed from data read before a
// Purge must not be stored after it; see SetIfGeneration.
func (c *LRUCache[T]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// SetIfGeneration stores value only if no Purge happened since gen was read.
func (c *LRUCache[T]) SetIfGeneration(key string, value T, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.set(key, value)
	return true
}

// set must be called with mu held.
func (c *LRUCache[T]) set(key string, value T) {
	if c.ttl <= 0 {
		return
	}
	e := &entry[T]{key: key, value: value, expires: c.now().Add(c.ttl)}
	if el := c.index[key]; el != nil {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}
	c.index[key] = c.order.PushFront(e)
	for c.order.Len() > c.capacity {
		c.drop(c.order.Back())
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el := c.index[key]; el != nil {
		c.drop(el)
	}
}

func (c *LRUCache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.index)
	c.order.Init()
	c.gen++
}

// CleanExpired drops every entry past its ttl and reports how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	dropped := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*entry[T]).expired(now) {
			c.drop(el)
			dropped++
		}
		el = next
	}
	return dropped
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// drop must be called with mu held.
func (c *LRUCache[T]) drop(el *list.Element) {
	delete(c.index, el.Value.(*entry[T]).key)
	c.order.Remove(el)
}
