package texel

import (
	"bytes"
	"encoding/binary"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"

	"github.com/jchantrell/arcbank/internal/arc"
)

// Cache memoizes encoded textures by content, so banks that share texture
// data across a batch are only decoded once.
type Cache struct {
	lfu    *tinylfu.T[uint64, []byte]
	hits   int
	misses int
}

// NewCache returns a cache holding up to size encoded images. A size of
// zero disables caching.
func NewCache(size int) *Cache {
	c := &Cache{}
	if size > 0 {
		c.lfu = tinylfu.New[uint64, []byte](size, size*10, func(k uint64) uint64 { return k })
	}
	return c
}

// Key hashes a texture's header, pixel data and the target format.
func Key(tex *arc.Texture, format string) uint64 {
	h := xxhash.New()
	binary.Write(h, binary.LittleEndian, tex.TextureHeader)
	h.WriteString(format)
	h.Write(tex.Data)
	return h.Sum64()
}

// Encoded returns tex encoded in format, decoding it on a miss.
func (c *Cache) Encoded(tex *arc.Texture, format string) ([]byte, error) {
	var key uint64
	if c.lfu != nil {
		key = Key(tex, format)
		if data, ok := c.lfu.Get(key); ok {
			c.hits++
			return data, nil
		}
	}
	c.misses++

	img, err := Decode(tex)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img, format); err != nil {
		return nil, err
	}

	if c.lfu != nil {
		c.lfu.Add(key, buf.Bytes())
	}
	return buf.Bytes(), nil
}

// LogStats reports hit counts at debug level.
func (c *Cache) LogStats() {
	slog.Debug("Texture cache", "hits", c.hits, "misses", c.misses)
}
