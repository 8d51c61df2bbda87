package cache

import "context"

// KeyType selects one of the (up to four) logical key spaces a MultiCache
// multiplexes over, per spec §4.7 ("supports up to four logical
// key-types in one table, keyed by (type, key)"). Mixing the type into
// the composite key below is this package's equivalent of the source's
// type-specific hash multiplier: it keeps the four spaces from colliding
// without needing four separate maps.
type KeyType int

const (
	KeyTypeA KeyType = iota
	KeyTypeB
	KeyTypeC
	KeyTypeD
)

type multiKey struct {
	kind KeyType
	key  string
}

// MultiCache is a single table holding up to four independently-keyed
// logical caches, single-flighted per (type, key) pair.
type MultiCache[V any] struct {
	sf *singleFlight[multiKey, V]
}

// NewMultiCache builds a MultiCache bounded to capacity total entries
// across all four key types combined, matching spec §4.7's single
// rehash-on-size-threshold table rather than four independent ones.
func NewMultiCache[V any](capacity int, onEvict func(kind KeyType, key string, value V)) *MultiCache[V] {
	var wrapped func(multiKey, V)
	if onEvict != nil {
		wrapped = func(k multiKey, v V) { onEvict(k.kind, k.key, v) }
	}
	return &MultiCache[V]{sf: newSingleFlight[multiKey, V](capacity, wrapped)}
}

// Obtain single-flights construction of (kind, key), per spec §4.7's
// three-step obtain.
func (c *MultiCache[V]) Obtain(ctx context.Context, kind KeyType, key string, build func(ctx context.Context, kind KeyType, key string) (V, error)) (V, error) {
	return c.sf.Obtain(ctx, multiKey{kind, key}, func(ctx context.Context, k multiKey) (V, error) {
		return build(ctx, k.kind, k.key)
	})
}

// Invalidate drops (kind, key) if present.
func (c *MultiCache[V]) Invalidate(kind KeyType, key string) {
	c.sf.Invalidate(multiKey{kind, key})
}

// Len reports the total number of entries across all key types.
func (c *MultiCache[V]) Len() int { return c.sf.Len() }
