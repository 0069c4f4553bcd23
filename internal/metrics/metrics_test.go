package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStorageWriteCounts(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.StorageWrite("cart", "put", nil, time.Millisecond)
	m.StorageWrite("cart", "put", nil, time.Millisecond)
	m.StorageWrite("cart", "put", errors.New("disk full"), time.Millisecond)

	if got := testutil.ToFloat64(m.storageWrites.WithLabelValues("cart", "put", "ok")); got != 2 {
		t.Errorf("ok writes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.storageWrites.WithLabelValues("cart", "put", "error")); got != 1 {
		t.Errorf("failed writes = %v, want 1", got)
	}
}

func TestAPIRequestStatusClass(t *testing.T) {
	m := New(nil)

	m.APIRequest("login", 200, time.Millisecond)
	m.APIRequest("login", 401, time.Millisecond)
	m.APIRequest("login", 0, time.Millisecond)

	for _, class := range []string{"2xx", "4xx", "network_error"} {
		if got := testutil.ToFloat64(m.apiRequests.WithLabelValues("login", class)); got != 1 {
			t.Errorf("%s = %v, want 1", class, got)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.StorageWrite("k", "put", nil, 0)
	m.StoreFault("cart", "persist")
	m.APIRequest("x", 200, 0)
	m.LiveClientConnected()
	m.LiveClientDisconnected()
}

func TestLiveClientsGauge(t *testing.T) {
	m := New(nil)
	m.LiveClientConnected()
	m.LiveClientConnected()
	m.LiveClientDisconnected()
	if got := testutil.ToFloat64(m.liveClients); got != 1 {
		t.Errorf("live clients = %v, want 1", got)
	}
}
