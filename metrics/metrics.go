// Package metrics exports cache and write-path counters to Prometheus.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/blogcas"
)

type Metrics struct {
	keyPrefix string

	lookups     *prometheus.CounterVec
	selfHeals   *prometheus.CounterVec
	providerErr *prometheus.CounterVec
	rejected    prometheus.Counter
	genErrors   *prometheus.CounterVec
	outages     prometheus.Counter
	conflicts   *prometheus.CounterVec
	mutations   *prometheus.CounterVec
	dropped     *prometheus.CounterVec
}

var _ blogcas.Hooks = (*Metrics)(nil)

// New registers the collectors on reg. cacheNamespace must match
// blogcas.Options.Namespace so lookups can be grouped by key family.
func New(reg prometheus.Registerer, cacheNamespace string) (*Metrics, error) {
	m := &Metrics{
		keyPrefix: "rt:" + cacheNamespace + ":",
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blogcas", Subsystem: "cache", Name: "lookups_total",
			Help: "Read-through lookups by key family and result.",
		}, []string{"family", "result"}),
		selfHeals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blogcas", Subsystem: "cache", Name: "self_heals_total",
			Help: "Entries deleted on read.",
		}, []string{"reason"}),
		providerErr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blogcas", Subsystem: "cache", Name: "provider_errors_total",
			Help: "Cache provider failures that degraded to a miss.",
		}, []string{"op"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blogcas", Subsystem: "cache", Name: "set_rejected_total",
			Help: "Writes rejected by the provider under pressure.",
		}),
		genErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blogcas", Subsystem: "cache", Name: "gen_errors_total",
			Help: "Generation store failures.",
		}, []string{"op"}),
		outages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blogcas", Subsystem: "cache", Name: "invalidate_outages_total",
			Help: "Invalidations where both the bump and the delete failed.",
		}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blogcas", Subsystem: "write", Name: "conflicts_total",
			Help: "Writes rejected for a stale version token.",
		}, []string{"entity"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blogcas", Subsystem: "write", Name: "mutations_total",
			Help: "Committed mutations.",
		}, []string{"entity", "op"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blogcas", Subsystem: "async", Name: "dropped_total",
			Help: "Background work dropped because a queue was full.",
		}, []string{"queue"}),
	}
	for _, c := range []prometheus.Collector{
		m.lookups, m.selfHeals, m.providerErr, m.rejected, m.genErrors,
		m.outages, m.conflicts, m.mutations, m.dropped,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// family maps "rt:<ns>:posts:list:abc" to "posts".
func (m *Metrics) family(storageKey string) string {
	rest := strings.TrimPrefix(storageKey, m.keyPrefix)
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		return rest[:i]
	}
	return rest
}

func (m *Metrics) Lookup(storageKey string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.WithLabelValues(m.family(storageKey), result).Inc()
}

func (m *Metrics) SelfHeal(_, reason string) { m.selfHeals.WithLabelValues(reason).Inc() }

func (m *Metrics) ProviderError(op, _ string, _ error) { m.providerErr.WithLabelValues(op).Inc() }

func (m *Metrics) ProviderSetRejected(string) { m.rejected.Inc() }

func (m *Metrics) GenSnapshotError(int, error) { m.genErrors.WithLabelValues("snapshot").Inc() }

func (m *Metrics) GenBumpError(string, error) { m.genErrors.WithLabelValues("bump").Inc() }

func (m *Metrics) InvalidateOutage(string, error, error) { m.outages.Inc() }

// Conflict counts a stale-token rejection.
func (m *Metrics) Conflict(entity string) { m.conflicts.WithLabelValues(entity).Inc() }

// Mutation counts a committed write.
func (m *Metrics) Mutation(entity, op string) { m.mutations.WithLabelValues(entity, op).Inc() }

// Dropped counts work lost to a full queue.
func (m *Metrics) Dropped(queue string) { m.dropped.WithLabelValues(queue).Inc() }
