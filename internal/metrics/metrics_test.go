package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("failed to read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)

	BackendRequestsTotal.WithLabelValues("content.popular", "200").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected registered metric families")
	}
}

func TestCacheResult(t *testing.T) {
	beforeHits := counterValue(t, CacheHitsTotal.WithLabelValues("test"))
	beforeMisses := counterValue(t, CacheMissesTotal.WithLabelValues("test"))

	CacheResult("test", true)
	CacheResult("test", false)
	CacheResult("test", false)

	if got := counterValue(t, CacheHitsTotal.WithLabelValues("test")) - beforeHits; got != 1 {
		t.Errorf("expected 1 hit, got %v", got)
	}
	if got := counterValue(t, CacheMissesTotal.WithLabelValues("test")) - beforeMisses; got != 2 {
		t.Errorf("expected 2 misses, got %v", got)
	}
}
