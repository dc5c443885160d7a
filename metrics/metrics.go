// Package metrics exposes fleet-wide certificate figures to prometheus.
// Counts are computed from the inventory at scrape time rather than kept
// as in-process counters, so they survive restarts and stay correct when
// certificates are created or deleted out of band.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/certmint/certmint/internal/logging"
	"github.com/certmint/certmint/internal/server/data"
)

var (
	expiringDesc = prometheus.NewDesc(
		"certificates_expiring_soon",
		"Certificates expiring within the reporting window, by issuing CA.",
		[]string{"issuer"}, nil)

	byStatusDesc = prometheus.NewDesc(
		"certificates_total",
		"Tracked certificates by rotation status.",
		[]string{"active"}, nil)
)

type certificateCollector struct {
	db *gorm.DB
}

func (c *certificateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- expiringDesc
	ch <- byStatusDesc
}

func (c *certificateCollector) Collect(ch chan<- prometheus.Metric) {
	stats, err := data.CountCertificatesBy(c.db, data.StatsOptions{Metric: "not_after"})
	if err != nil {
		logging.L.Warn().Err(err).Msg("collecting expiring certificate counts")
	} else {
		for i, label := range stats.Labels {
			ch <- prometheus.MustNewConstMetric(expiringDesc,
				prometheus.GaugeValue, float64(stats.Values[i]), label)
		}
	}

	stats, err = data.CountCertificatesBy(c.db, data.StatsOptions{Metric: "active"})
	if err != nil {
		logging.L.Warn().Err(err).Msg("collecting certificate status counts")
		return
	}
	for i, label := range stats.Labels {
		ch <- prometheus.MustNewConstMetric(byStatusDesc,
			prometheus.GaugeValue, float64(stats.Values[i]), label)
	}
}

// NewRegistry creates a registry with the standard process and go
// collectors plus the certificate inventory collector backed by db.
func NewRegistry(db *gorm.DB) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(&certificateCollector{db: db})
	return registry
}

// NewHandler serves 'GET /metrics' from promRegistry.
func NewHandler(promRegistry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.InstrumentMetricHandler(
		promRegistry,
		promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})))
	return mux
}
