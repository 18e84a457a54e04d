// Package blogcas is a read-through cache with compare-and-swap write-back,
// used by the blog services to memoize post, listing and statistics reads.
//
// Every entry is stamped with the generation of its name (and of its scope,
// for grouped keys such as paginated listings) taken before the value was
// computed. Invalidating a name bumps its generation and deletes the entry,
// so neither a late write-back from an in-flight computation nor a surviving
// copy in a shared provider can be served afterwards.
//
// Components:
//   - Provider: byte store with TTL (memory, Ristretto, BigCache, Redis).
//   - GenStore: generation per name. Local by default, Redis for replicas.
//   - Loader[V]: typed view over a Cache using a codec.Codec[V].
//
// Keys:
//
//	rt:<ns>:<name>  - entry for a name; scoped entries are also tracked under their scope
//
// Read-through:
//
//	posts := blogcas.NewLoader[[]Post](cache, codec.JSON[[]Post]{})
//	v, err := posts.GetOrCompute(ctx, blogcas.Scoped("posts:list", "posts:list:"+h), 30*time.Minute, loadFromDB)
//	...
//	_ = cache.InvalidateSet(ctx, []string{"posts:list", "post:42"})
package blogcas
