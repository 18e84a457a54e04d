package blogcas

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/blogcas/codec"
)

// Loader is a typed view over a Cache.
type Loader[V any] struct {
	c     Cache
	codec codec.Codec[V]
}

func NewLoader[V any](c Cache, cd codec.Codec[V]) Loader[V] {
	return Loader[V]{c: c, codec: cd}
}

// GetOrCompute is Cache.GetOrCompute for V. The caller that computed the
// value gets it back as returned by fn; every other caller gets a freshly
// decoded copy.
func (l Loader[V]) GetOrCompute(ctx context.Context, key Key, ttl time.Duration, fn func(context.Context) (V, error)) (V, error) {
	var (
		zero     V
		fresh    V
		computed bool
	)
	raw, err := l.c.GetOrCompute(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		b, err := l.codec.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("blogcas: encode %s: %w", key.Name, err)
		}
		fresh, computed = v, true
		return b, nil
	})
	if err != nil {
		return zero, err
	}
	if computed {
		return fresh, nil
	}

	v, err := l.codec.Decode(raw)
	if err == nil {
		return v, nil
	}

	// an entry we cannot decode (codec changed between deploys, or a shared
	// provider returned someone else's bytes) is dropped; the next read
	// repopulates it
	if h, ok := l.c.(interface{ decodeFailed(Key, error) }); ok {
		h.decodeFailed(key, err)
	}
	if err := l.c.Invalidate(ctx, key.Name); err != nil {
		if h, ok := l.c.(interface{ invalidateFailed(string, error) }); ok {
			h.invalidateFailed(key.Name, err)
		}
	}
	return fn(ctx)
}
