// Package metrics exports govel cache activity as OpenTelemetry metrics.
//
// CacheMetrics implements cache.Observer, so it can be handed to
// resolve.WithObserver (or govel.WithMeter) to count accessor cache hits and
// misses per table. ObserveOccupancy adds a gauge with the number of cached
// members per owner type.
package metrics

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sandrolain/govel/pkg/cache"
)

// Instrument names.
const (
	HitsName      = "govel.accessor_cache.hits"
	MissesName    = "govel.accessor_cache.misses"
	OccupancyName = "govel.accessor_cache.entries"
)

// CacheMetrics records accessor cache lookups.
type CacheMetrics struct {
	meter     metric.Meter
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	occupancy metric.Int64ObservableGauge

	mu  sync.Mutex
	reg metric.Registration
}

// NewCacheMetrics creates the instruments on meter.
func NewCacheMetrics(meter metric.Meter) (*CacheMetrics, error) {
	hits, err := meter.Int64Counter(HitsName,
		metric.WithDescription("Accessor cache lookups answered from the cache"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(MissesName,
		metric.WithDescription("Accessor cache lookups that had to resolve the member"),
	)
	if err != nil {
		return nil, err
	}

	occupancy, err := meter.Int64ObservableGauge(OccupancyName,
		metric.WithDescription("Cached members per owner type and table"),
	)
	if err != nil {
		return nil, err
	}

	return &CacheMetrics{
		meter:     meter,
		hits:      hits,
		misses:    misses,
		occupancy: occupancy,
	}, nil
}

// Hit implements cache.Observer.
func (m *CacheMetrics) Hit(table cache.Table) {
	m.hits.Add(context.Background(), 1, tableAttr(table))
}

// Miss implements cache.Observer.
func (m *CacheMetrics) Miss(table cache.Table) {
	m.misses.Add(context.Background(), 1, tableAttr(table))
}

// ObserveOccupancy reports the result of report through the occupancy gauge
// on every collection. A later call replaces the earlier source.
func (m *CacheMetrics) ObserveOccupancy(report func() []cache.Occupancy) error {
	reg, err := m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for _, occ := range report() {
			o.ObserveInt64(m.occupancy, int64(occ.Entries), metric.WithAttributes(
				attribute.String("table", occ.Table.String()),
				attribute.String("owner", ownerName(occ)),
			))
		}
		return nil
	}, m.occupancy)
	if err != nil {
		return err
	}

	m.mu.Lock()
	prev := m.reg
	m.reg = reg
	m.mu.Unlock()

	if prev != nil {
		return prev.Unregister()
	}
	return nil
}

// Close stops the occupancy gauge.
func (m *CacheMetrics) Close() error {
	m.mu.Lock()
	reg := m.reg
	m.reg = nil
	m.mu.Unlock()

	if reg == nil {
		return nil
	}
	if err := reg.Unregister(); err != nil {
		return errors.Join(errors.New("metrics: unregister occupancy callback"), err)
	}
	return nil
}

func tableAttr(table cache.Table) metric.AddOption {
	return metric.WithAttributes(attribute.String("table", table.String()))
}

func ownerName(occ cache.Occupancy) string {
	if occ.Owner == nil {
		return "<nil>"
	}
	return occ.Owner.String()
}
