// Package params implements the ambient parameter bag shared by channel build
// stages and by the channels they produce. Items are kept in insertion order and
// looked up by type; the first item assignable to the requested type wins.
package params

import "sync"

// Collection is an ordered, concurrency-safe bag of parameters.
type Collection struct {
	mu    sync.RWMutex
	items []any
}

// New creates a collection holding items in order.
func New(items ...any) *Collection {
	c := &Collection{}
	for _, item := range items {
		if item != nil {
			c.items = append(c.items, item)
		}
	}
	return c
}

// Add appends an item.
func (c *Collection) Add(item any) {
	if item == nil {
		return
	}
	c.mu.Lock()
	c.items = append(c.items, item)
	c.mu.Unlock()
}

// Len returns the number of items.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Items returns a snapshot of the items.
func (c *Collection) Items() []any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]any, len(c.items))
	copy(out, c.items)
	return out
}

// Clone returns a shallow copy of the collection.
func (c *Collection) Clone() *Collection {
	return New(c.Items()...)
}

// Find returns the first item assignable to T.
func Find[T any](c *Collection) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if v, ok := item.(T); ok {
			return v, true
		}
	}
	return zero, false
}

// Remove deletes the first item assignable to T and returns it.
func Remove[T any](c *Collection) (T, bool) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, item := range c.items {
		if v, ok := item.(T); ok {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			return v, true
		}
	}
	return zero, false
}

// Contains reports whether any item is assignable to T.
func Contains[T any](c *Collection) bool {
	_, ok := Find[T](c)
	return ok
}
