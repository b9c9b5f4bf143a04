package overlay

import "sync"

// Layer is the rendered aggregate of one overlay: every feature handle the
// surface produced for it, alongside the records they were built from.
type Layer struct {
	name     Name
	features []Feature
	records  []Record
}

// Name returns the overlay the layer belongs to.
func (l *Layer) Name() Name { return l.name }

// Features returns the rendered feature handles.
func (l *Layer) Features() []Feature { return l.features }

// Records returns the records the layer was built from.
func (l *Layer) Records() []Record { return l.records }

// Len returns the number of rendered features.
func (l *Layer) Len() int { return len(l.features) }

// Cache holds at most one layer per overlay. Entries are never evicted.
type Cache struct {
	mu     sync.RWMutex
	layers map[Name]*Layer
}

// NewCache creates an empty overlay cache.
func NewCache() *Cache {
	return &Cache{layers: make(map[Name]*Layer)}
}

// Get returns the cached layer for name.
func (c *Cache) Get(name Name) (*Layer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	l, ok := c.layers[name]
	return l, ok
}

// Put stores the layer for name. A second Put for the same name panics.
func (c *Cache) Put(name Name, l *Layer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.layers[name]; exists {
		violate("layer for %q cached twice", name)
	}
	c.layers[name] = l
}

// Len returns the number of cached layers.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.layers)
}
