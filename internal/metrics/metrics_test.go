package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.FriendshipTransition("accepted")
	m.FriendshipTransition("accepted")
	m.PostMutation("created")
	m.EventPublishFailed("brewfeed-posts")
	m.ObserveHTTP("/posts/{id}", "GET", "200", 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.friendshipEvents.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.postEvents.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventPublishFailure.WithLabelValues("brewfeed-posts")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/posts/{id}", "GET", "200")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FriendshipTransition("requested")
		m.PostMutation("deleted")
		m.EventPublishFailed("x")
		m.ObserveHTTP("/", "GET", "200", 0)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.PostMutation("created")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `brewfeed_post_mutations_total{mutation="created"} 1`))
}
