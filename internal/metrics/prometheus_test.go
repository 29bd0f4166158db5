package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"unifimon/internal/model"
)

func TestSnapshotCollector_EmptyBeforeFirstPoll(t *testing.T) {
	t.Parallel()

	c := NewSnapshotCollector(model.EmptySnapshot)
	if n := testutil.CollectAndCount(c); n != 0 {
		t.Fatalf("count=%d", n)
	}
}

func TestSnapshotCollector_ExportsSnapshot(t *testing.T) {
	t.Parallel()

	snap := Derive(model.Sample{
		SystemUptimeSeconds: 61,
		RxRate:              1000,
		TxRate:              2000,
		MaxRxRate:           3000,
		MaxTxRate:           4000,
		MonthlyBytes:        5000,
	}, time.Unix(10, 0))
	c := NewSnapshotCollector(func() model.Snapshot { return snap })

	expected := `
# HELP unifimon_wan_rate_bytes_per_second Current WAN throughput in bytes per second
# TYPE unifimon_wan_rate_bytes_per_second gauge
unifimon_wan_rate_bytes_per_second{direction="download"} 1000
unifimon_wan_rate_bytes_per_second{direction="upload"} 2000
# HELP unifimon_wan_max_rate_bytes_per_second Max WAN throughput reported by the gateway in bytes per second
# TYPE unifimon_wan_max_rate_bytes_per_second gauge
unifimon_wan_max_rate_bytes_per_second{direction="download"} 3000
unifimon_wan_max_rate_bytes_per_second{direction="upload"} 4000
# HELP unifimon_wan_monthly_bytes WAN traffic in the current monthly cycle in bytes
# TYPE unifimon_wan_monthly_bytes gauge
unifimon_wan_monthly_bytes 5000
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"unifimon_wan_rate_bytes_per_second",
		"unifimon_wan_max_rate_bytes_per_second",
		"unifimon_wan_monthly_bytes",
	)
	if err != nil {
		t.Fatalf("CollectAndCompare: %v", err)
	}
	if n := testutil.CollectAndCount(c); n != 7 {
		t.Fatalf("count=%d", n)
	}
}

func TestFailureRecorder_CountsByKind(t *testing.T) {
	t.Parallel()

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_failures_total", Help: "test"}, []string{"kind"})
	r := &FailureRecorder{failures: vec}

	r.PollFailed(model.FailureHTTPStatus, errors.New("503"))
	r.PollFailed(model.FailureHTTPStatus, errors.New("503"))
	r.PollFailed(model.FailureDecode, errors.New("bad json"))

	if got := testutil.ToFloat64(vec.WithLabelValues("http_status")); got != 2 {
		t.Fatalf("http_status=%v", got)
	}
	if got := testutil.ToFloat64(vec.WithLabelValues("decode")); got != 1 {
		t.Fatalf("decode=%v", got)
	}
	if got := testutil.ToFloat64(vec.WithLabelValues("network")); got != 0 {
		t.Fatalf("network=%v", got)
	}
}
