package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mugiisha/sop-sub001/internal/infra/config"
)

// Provider bundles the Prometheus collectors for ledger and ingest activity.
type Provider struct {
	versionsAppended  prometheus.Counter
	reverts           prometheus.Counter
	eventsConsumed    prometheus.Counter
	eventsDropped     prometheus.Counter
	duplicatesSkipped prometheus.Counter
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	ingestLag         prometheus.Histogram
}

// Attach registers the collectors with the given registerer (the default one
// when nil) and returns a provider handle.
func Attach(cfg *config.AppConfig, reg prometheus.Registerer) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	namespace := cfg.Telemetry.Namespace
	if namespace == "" {
		namespace = "sop"
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Provider{
		versionsAppended: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "versions_appended_total",
			Help:      "Total number of versions appended to the ledger.",
		}),
		reverts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reverts_total",
			Help:      "Total number of successful revert operations.",
		}),
		eventsConsumed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_consumed_total",
			Help:      "Total number of inbound document events processed.",
		}),
		eventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Total number of inbound document events dropped as malformed.",
		}),
		duplicatesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_events_total",
			Help:      "Total number of redelivered events skipped by the idempotency check.",
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "current_version_cache_hits_total",
			Help:      "Total number of current-version cache hits.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "current_version_cache_misses_total",
			Help:      "Total number of current-version cache misses.",
		}),
		ingestLag: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_lag_seconds",
			Help:      "Delay between event capture upstream and ledger append.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}, nil
}

func (p *Provider) IncAppend() { p.versionsAppended.Inc() }
func (p *Provider) IncRevert() { p.reverts.Inc() }
func (p *Provider) IncConsumed() { p.eventsConsumed.Inc() }
func (p *Provider) IncDropped() { p.eventsDropped.Inc() }
func (p *Provider) IncDuplicate() { p.duplicatesSkipped.Inc() }
func (p *Provider) IncCacheHit() { p.cacheHits.Inc() }
func (p *Provider) IncCacheMiss() { p.cacheMisses.Inc() }

func (p *Provider) ObserveIngestLag(d time.Duration) {
	if d < 0 {
		d = 0
	}
	p.ingestLag.Observe(d.Seconds())
}
