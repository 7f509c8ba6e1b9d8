package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counts(t *testing.T) {
	c := NewCollector("test")

	c.ObserveRefresh(RefreshApplied)
	c.ObserveRefresh(RefreshApplied)
	c.ObserveRefresh(RefreshStale)
	c.ObserveEdit("entity", "update", nil)
	c.ObserveEdit("entity", "update", errors.New("boom"))
	c.ObserveLayout("ring", 12, 2*time.Millisecond)
	c.SetActiveViews(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Refreshes.WithLabelValues(RefreshApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Refreshes.WithLabelValues(RefreshStale)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Edits.WithLabelValues("entity", "update", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.ActiveViews))
	assert.Equal(t, 1, testutil.CollectAndCount(c.LayoutDuration))
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveRefresh(RefreshFailed)
		c.ObserveEdit("relation", "delete", nil)
		c.ObserveLayout("tree", 1, time.Millisecond)
		c.ObserveHTTP("GET", "/health", "200", time.Millisecond)
		c.SetActiveViews(1)
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("kgraph")
	c.ObserveHTTP("GET", "/health", "200", time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "kgraph_http_requests_total")
	assert.Contains(t, string(body), "kgraph_active_views")
}
