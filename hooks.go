package blogcas

// Hooks are callbacks for high-signal cache events.
// Implementations MUST be cheap and non-blocking; the cache calls them on
// hot paths. Wrap slow sinks with hooks/async.
type Hooks interface {
	// Every read through GetOrCompute.
	Lookup(storageKey string, hit bool)

	// An entry was deleted by the cache on read.
	// reason ∈ {"corrupt", "expired", "gen_mismatch", "value_decode"}
	SelfHeal(storageKey, reason string)

	// The provider failed; the operation degraded to a miss or a skipped write.
	// op ∈ {"get", "set", "del"}
	ProviderError(op, storageKey string, err error)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// GenStore errors. count is the number of names involved.
	GenSnapshotError(count int, err error)
	GenBumpError(name string, err error)

	// Both gen bump and delete failed during Invalidate (likely backend outage).
	InvalidateOutage(name string, bumpErr, delErr error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Lookup(string, bool)                   {}
func (NopHooks) SelfHeal(string, string)               {}
func (NopHooks) ProviderError(string, string, error)   {}
func (NopHooks) ProviderSetRejected(string)            {}
func (NopHooks) GenSnapshotError(int, error)           {}
func (NopHooks) GenBumpError(string, error)            {}
func (NopHooks) InvalidateOutage(string, error, error) {}

// MultiHooks fans every event out to each member in order.
type MultiHooks []Hooks

func (m MultiHooks) Lookup(k string, hit bool) {
	for _, h := range m {
		h.Lookup(k, hit)
	}
}

func (m MultiHooks) SelfHeal(k, reason string) {
	for _, h := range m {
		h.SelfHeal(k, reason)
	}
}

func (m MultiHooks) ProviderError(op, k string, err error) {
	for _, h := range m {
		h.ProviderError(op, k, err)
	}
}

func (m MultiHooks) ProviderSetRejected(k string) {
	for _, h := range m {
		h.ProviderSetRejected(k)
	}
}

func (m MultiHooks) GenSnapshotError(n int, err error) {
	for _, h := range m {
		h.GenSnapshotError(n, err)
	}
}

func (m MultiHooks) GenBumpError(name string, err error) {
	for _, h := range m {
		h.GenBumpError(name, err)
	}
}

func (m MultiHooks) InvalidateOutage(name string, bumpErr, delErr error) {
	for _, h := range m {
		h.InvalidateOutage(name, bumpErr, delErr)
	}
}
