package cache

import "context"

// Canonicalizer reports query's canonical form. ok is false when query is
// already canonical (or has no distinct canonical form), in which case
// QueryFactoryCache builds it directly instead of aliasing.
type Canonicalizer func(query string) (canonical string, ok bool)

// QueryFactoryCache is the string-keyed cache for generated query-factory
// handles, per spec §4.7's SoftCache/QueryFactoryCache variant: "on
// insert, if the parsed query's canonical form differs from the key, the
// factory under the canonical key is obtained recursively and aliased
// back."
type QueryFactoryCache[V any] struct {
	sf    *singleFlight[string, V]
	canon Canonicalizer
}

// NewQueryFactoryCache builds a QueryFactoryCache bounded to capacity
// entries. canon may be nil, in which case every query builds directly
// with no canonical-key aliasing.
func NewQueryFactoryCache[V any](capacity int, canon Canonicalizer, onEvict func(query string, value V)) *QueryFactoryCache[V] {
	return &QueryFactoryCache[V]{sf: newSingleFlight[string, V](capacity, onEvict), canon: canon}
}

// Obtain single-flights construction of query's factory. If query is not
// already canonical, the canonical key's factory is obtained instead and
// aliased back under query, so two distinct query strings with the same
// canonical form share one built factory.
func (c *QueryFactoryCache[V]) Obtain(ctx context.Context, query string, build func(ctx context.Context, query string) (V, error)) (V, error) {
	return c.sf.Obtain(ctx, query, func(ctx context.Context, key string) (V, error) {
		if c.canon != nil {
			if canonical, ok := c.canon(key); ok && canonical != key {
				return c.Obtain(ctx, canonical, build)
			}
		}
		return build(ctx, key)
	})
}

// Invalidate drops query's cached factory, if any. It does not cascade to
// the canonical key's own entry.
func (c *QueryFactoryCache[V]) Invalidate(query string) { c.sf.Invalidate(query) }

// Len reports the number of cached entries.
func (c *QueryFactoryCache[V]) Len() int { return c.sf.Len() }
