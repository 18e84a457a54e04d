package codec

import "fmt"

// LimitCodec rejects payloads larger than MaxDecode before handing them to
// Inner. Encode is forwarded unchanged. MaxDecode <= 0 disables the check.
//
// Use it in front of a shared provider where another writer could plant an
// oversized value.
type LimitCodec[V any] struct {
	Inner     Codec[V]
	MaxDecode int
}

func (c LimitCodec[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }
func (c LimitCodec[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("payload too large: %d > %d", len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}

// Limit wraps inner when max > 0 and returns it unchanged otherwise.
func Limit[V any](inner Codec[V], max int) Codec[V] {
	if max <= 0 {
		return inner
	}
	return LimitCodec[V]{Inner: inner, MaxDecode: max}
}
