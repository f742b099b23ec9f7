// Package cache keeps recently produced conversions in memory so repeated
// uploads of the same image with the same options skip the pixel pipeline.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"log"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/nvr-ai/asciidraw/ascii"
)

// Stats is a point-in-time view of cache usage.
type Stats struct {
	Entries         int
	Hits            uint64
	Misses          uint64
	Evictions       uint64
	StoredBytes     int
	UncompressedLen int
}

// Cache is a fixed-capacity LRU of encoded conversions. Values are held
// zstd-compressed; the encodings are highly repetitive (escape sequences and
// JSON punctuation) and shrink by an order of magnitude.
type Cache struct {
	capacity int

	mu    sync.Mutex
	ll    *list.List
	items map[string]*list.Element
	stats Stats

	codec zstdCodec
}

type entry struct {
	key  string
	data []byte
	size int
}

// New creates a cache holding at most capacity entries. A non-positive
// capacity yields a disabled cache on which every Get misses and Put is a
// no-op.
func New(capacity int) *Cache {
	if capacity < 0 {
		capacity = 0
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c != nil && c.capacity > 0
}

// Key derives the cache key for a buffer converted with opts. Options are
// normalised first, so options that produce the same output share a key.
//
// Arguments:
// - data: The encoded image.
// - opts: The conversion options.
//
// Returns:
// - A hex-encoded SHA-256 digest.
func Key(data []byte, opts ascii.Options) string {
	opts = opts.Normalized()

	h := sha256.New()
	h.Write(data)

	var scratch [8]byte
	binary.BigEndian.PutUint64(scratch[:], uint64(opts.Width))
	h.Write(scratch[:])
	binary.BigEndian.PutUint64(scratch[:], uint64(len(opts.Chars)))
	h.Write(scratch[:])
	h.Write([]byte(opts.Chars))
	if opts.IsTerminal {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	binary.BigEndian.PutUint64(scratch[:], math.Float64bits(opts.Contrast))
	h.Write(scratch[:])

	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the value stored under key and marks it most recently used.
func (c *Cache) Get(key string) (string, bool) {
	if !c.Enabled() {
		return "", false
	}

	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		c.mu.Unlock()
		return "", false
	}
	c.ll.MoveToFront(el)
	data := el.Value.(*entry).data
	c.stats.Hits++
	c.mu.Unlock()

	value, err := c.codec.decompress(data)
	if err != nil {
		log.Printf("[WARN] Dropping unreadable cache entry %s: %v", key, err)
		c.remove(key)
		return "", false
	}
	return value, true
}

// Put stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache) Put(key, value string) {
	if !c.Enabled() {
		return
	}

	data, err := c.codec.compress(value)
	if err != nil {
		log.Printf("[WARN] Not caching %s: %v", key, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		c.stats.StoredBytes += len(data) - len(e.data)
		c.stats.UncompressedLen += len(value) - e.size
		e.data, e.size = data, len(value)
		c.ll.MoveToFront(el)
		return
	}

	c.items[key] = c.ll.PushFront(&entry{key: key, data: data, size: len(value)})
	c.stats.StoredBytes += len(data)
	c.stats.UncompressedLen += len(value)

	for c.ll.Len() > c.capacity {
		c.evictOldest()
	}
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Stats returns a snapshot of usage counters.
func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.ll.Len()
	return s
}

// CollectMetrics reports usage as gauges for the profiler.
func (c *Cache) CollectMetrics() map[string]float64 {
	s := c.Stats()
	return map[string]float64{
		"cache.entries":      float64(s.Entries),
		"cache.hits":         float64(s.Hits),
		"cache.misses":       float64(s.Misses),
		"cache.evictions":    float64(s.Evictions),
		"cache.stored_bytes": float64(s.StoredBytes),
	}
}

func (c *Cache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// evictOldest must be called with mu held.
func (c *Cache) evictOldest() {
	if el := c.ll.Back(); el != nil {
		c.removeElement(el)
		c.stats.Evictions++
	}
}

// removeElement must be called with mu held.
func (c *Cache) removeElement(el *list.Element) {
	e := c.ll.Remove(el).(*entry)
	delete(c.items, e.key)
	c.stats.StoredBytes -= len(e.data)
	c.stats.UncompressedLen -= e.size
}

// zstdCodec lazily builds one encoder and one decoder per cache. EncodeAll
// and DecodeAll may be called concurrently on a shared instance.
type zstdCodec struct {
	once sync.Once
	enc  *zstd.Encoder
	dec  *zstd.Decoder
	err  error
}

func (z *zstdCodec) init() error {
	z.once.Do(func() {
		z.enc, z.err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if z.err != nil {
			z.err = errors.Wrap(z.err, "failed to create zstd encoder")
			return
		}
		z.dec, z.err = zstd.NewReader(nil)
		if z.err != nil {
			z.err = errors.Wrap(z.err, "failed to create zstd decoder")
		}
	})
	return z.err
}

func (z *zstdCodec) compress(value string) ([]byte, error) {
	if err := z.init(); err != nil {
		return nil, err
	}
	return z.enc.EncodeAll([]byte(value), nil), nil
}

func (z *zstdCodec) decompress(data []byte) (string, error) {
	if err := z.init(); err != nil {
		return "", err
	}
	out, err := z.dec.DecodeAll(data, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to decompress cache entry")
	}
	return string(out), nil
}
