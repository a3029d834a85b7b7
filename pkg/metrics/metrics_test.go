package metrics_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/sandrolain/govel/pkg/cache"
	"github.com/sandrolain/govel/pkg/metrics"
	"github.com/sandrolain/govel/pkg/resolve"
)

type point struct {
	X, Y int
}

func newTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return reader, mp
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func sumFor(t *testing.T, m *metricdata.Metrics, table string) int64 {
	t.Helper()
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64], got %T", m.Data)
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key("table")); ok && v.AsString() == table {
			total += dp.Value
		}
	}
	return total
}

func TestCacheMetricsCountsLookups(t *testing.T) {
	reader, mp := newTestMeter()
	m, err := metrics.NewCacheMetrics(mp.Meter("test"))
	require.NoError(t, err)

	r := resolve.New(resolve.WithObserver(m))
	owner := reflect.TypeOf(point{})
	for i := 0; i < 3; i++ {
		r.ResolveRead(owner, "X")
	}
	r.ResolveWrite(owner, "Y")

	rm := collect(t, reader)
	assert.Equal(t, int64(2), sumFor(t, findMetric(rm, metrics.HitsName), "read"))
	assert.Equal(t, int64(1), sumFor(t, findMetric(rm, metrics.MissesName), "read"))
	assert.Equal(t, int64(1), sumFor(t, findMetric(rm, metrics.MissesName), "write"))
}

func TestCacheMetricsOccupancy(t *testing.T) {
	reader, mp := newTestMeter()
	m, err := metrics.NewCacheMetrics(mp.Meter("test"))
	require.NoError(t, err)

	r := resolve.New(resolve.WithObserver(m))
	owner := reflect.TypeOf(point{})
	r.ResolveRead(owner, "X")
	r.ResolveRead(owner, "Y")

	require.NoError(t, m.ObserveOccupancy(r.Report))

	rm := collect(t, reader)
	occ := findMetric(rm, metrics.OccupancyName)
	require.NotNil(t, occ)
	gauge, ok := occ.Data.(metricdata.Gauge[int64])
	require.True(t, ok, "expected Gauge[int64], got %T", occ.Data)

	var found bool
	for _, dp := range gauge.DataPoints {
		table, _ := dp.Attributes.Value(attribute.Key("table"))
		ownerAttr, _ := dp.Attributes.Value(attribute.Key("owner"))
		if table.AsString() == "read" && ownerAttr.AsString() == owner.String() {
			found = true
			assert.Equal(t, int64(2), dp.Value)
		}
	}
	assert.True(t, found, "no read occupancy for %s", owner)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestCacheMetricsReplaceSource(t *testing.T) {
	reader, mp := newTestMeter()
	m, err := metrics.NewCacheMetrics(mp.Meter("test"))
	require.NoError(t, err)

	require.NoError(t, m.ObserveOccupancy(func() []cache.Occupancy {
		return []cache.Occupancy{{Table: cache.TableMethod, Owner: reflect.TypeOf(""), Entries: 7}}
	}))
	require.NoError(t, m.ObserveOccupancy(func() []cache.Occupancy {
		return []cache.Occupancy{{Table: cache.TableMethod, Owner: reflect.TypeOf(""), Entries: 3}}
	}))

	rm := collect(t, reader)
	occ := findMetric(rm, metrics.OccupancyName)
	require.NotNil(t, occ)
	gauge := occ.Data.(metricdata.Gauge[int64])
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(3), gauge.DataPoints[0].Value)
}
