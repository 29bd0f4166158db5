package metrics

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"unifimon/internal/model"
)

// Registry holds every unifimon collector. The panel serves it on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// PollFailuresTotal counts failed polls by failure kind.
	PollFailuresTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "unifimon_poll_failures_total",
			Help: "Total number of failed gateway polls by failure kind",
		},
		[]string{"kind"},
	)

	// PollsTotal counts successful polls.
	PollsTotal = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "unifimon_polls_total",
			Help: "Total number of successful gateway polls",
		},
	)
)

var (
	uptimeDesc = prometheus.NewDesc(
		"unifimon_system_uptime_seconds",
		"Gateway system uptime in seconds",
		nil, nil,
	)
	rateDesc = prometheus.NewDesc(
		"unifimon_wan_rate_bytes_per_second",
		"Current WAN throughput in bytes per second",
		[]string{"direction"}, nil,
	)
	maxRateDesc = prometheus.NewDesc(
		"unifimon_wan_max_rate_bytes_per_second",
		"Max WAN throughput reported by the gateway in bytes per second",
		[]string{"direction"}, nil,
	)
	monthlyDesc = prometheus.NewDesc(
		"unifimon_wan_monthly_bytes",
		"WAN traffic in the current monthly cycle in bytes",
		nil, nil,
	)
	updatedDesc = prometheus.NewDesc(
		"unifimon_last_success_timestamp_seconds",
		"Unix time of the last successful poll",
		nil, nil,
	)
)

// SnapshotCollector exports the current snapshot on every scrape. All values
// of one scrape come from the same snapshot.
type SnapshotCollector struct {
	source func() model.Snapshot
}

// NewSnapshotCollector returns a collector reading from source.
func NewSnapshotCollector(source func() model.Snapshot) *SnapshotCollector {
	return &SnapshotCollector{source: source}
}

func (c *SnapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- uptimeDesc
	ch <- rateDesc
	ch <- maxRateDesc
	ch <- monthlyDesc
	ch <- updatedDesc
}

func (c *SnapshotCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source()
	if s.UpdatedAt.IsZero() {
		return
	}
	ch <- prometheus.MustNewConstMetric(uptimeDesc, prometheus.GaugeValue, float64(s.SystemUptime))
	ch <- prometheus.MustNewConstMetric(rateDesc, prometheus.GaugeValue, float64(s.Download.Bytes), "download")
	ch <- prometheus.MustNewConstMetric(rateDesc, prometheus.GaugeValue, float64(s.Upload.Bytes), "upload")
	ch <- prometheus.MustNewConstMetric(maxRateDesc, prometheus.GaugeValue, float64(s.MaxDownload.Bytes), "download")
	ch <- prometheus.MustNewConstMetric(maxRateDesc, prometheus.GaugeValue, float64(s.MaxUpload.Bytes), "upload")
	ch <- prometheus.MustNewConstMetric(monthlyDesc, prometheus.GaugeValue, float64(s.MonthlyTrafficBytes))
	ch <- prometheus.MustNewConstMetric(updatedDesc, prometheus.GaugeValue, float64(s.UpdatedAt.UnixNano())/1e9)
}

// FailureRecorder logs failed polls and counts them by kind.
type FailureRecorder struct {
	failures *prometheus.CounterVec
}

// NewFailureRecorder returns a recorder counting into PollFailuresTotal.
func NewFailureRecorder() *FailureRecorder {
	return &FailureRecorder{failures: PollFailuresTotal}
}

func (r *FailureRecorder) PollFailed(kind model.FailureKind, err error) {
	r.failures.WithLabelValues(string(kind)).Inc()
	log.Printf("poll failed kind=%s: %v", kind, err)
}

func (r *FailureRecorder) PollSucceeded(model.Snapshot) {
	PollsTotal.Inc()
}
