package embedding

import (
	"container/list"
	"context"
	"sync"
)

// CachingEncoder decorates an Encoder with an LRU cache over query and pooled
// encodings, keyed by text. Document encodings are not cached; documents are
// typically inserted once.
type CachingEncoder struct {
	inner    Encoder
	capacity int
	mu       sync.Mutex
	queries  map[string]*list.Element
	texts    map[string]*list.Element
	lru      *list.List
}

type cacheEntry struct {
	key     string
	queries [][]float32
	text    []float32
	kind    byte // 'q' or 't'
}

// NewCachingEncoder wraps inner with a cache of the given capacity.
func NewCachingEncoder(inner Encoder, capacity int) *CachingEncoder {
	if capacity <= 0 {
		capacity = 1024
	}
	return &CachingEncoder{
		inner:    inner,
		capacity: capacity,
		queries:  make(map[string]*list.Element),
		texts:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// EncodeDocument delegates to the inner encoder.
func (c *CachingEncoder) EncodeDocument(ctx context.Context, markdown string) ([]Chunk, error) {
	return c.inner.EncodeDocument(ctx, markdown)
}

// EncodeQuery returns cached token vectors when available.
func (c *CachingEncoder) EncodeQuery(ctx context.Context, text string) ([][]float32, error) {
	c.mu.Lock()
	if elem, ok := c.queries[text]; ok {
		c.lru.MoveToFront(elem)
		vectors := elem.Value.(*cacheEntry).queries
		c.mu.Unlock()
		return vectors, nil
	}
	c.mu.Unlock()

	vectors, err := c.inner.EncodeQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(&cacheEntry{key: text, queries: vectors, kind: 'q'})
	return vectors, nil
}

// EncodeText returns a cached pooled vector when available.
func (c *CachingEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	if elem, ok := c.texts[text]; ok {
		c.lru.MoveToFront(elem)
		vector := elem.Value.(*cacheEntry).text
		c.mu.Unlock()
		return vector, nil
	}
	c.mu.Unlock()

	vector, err := c.inner.EncodeText(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(&cacheEntry{key: text, text: vector, kind: 't'})
	return vector, nil
}

// Dimensions delegates to the inner encoder.
func (c *CachingEncoder) Dimensions() int {
	return c.inner.Dimensions()
}

func (c *CachingEncoder) store(entry *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	index := c.indexFor(entry.kind)
	if elem, ok := index[entry.key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value = entry
		return
	}
	elem := c.lru.PushFront(entry)
	index[entry.key] = elem
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			old := oldest.Value.(*cacheEntry)
			delete(c.indexFor(old.kind), old.key)
		}
	}
}

func (c *CachingEncoder) indexFor(kind byte) map[string]*list.Element {
	if kind == 'q' {
		return c.queries
	}
	return c.texts
}
