// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persona_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"status", "route"})
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "persona_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	HTTPErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persona_http_errors_total",
		Help: "Total number of HTTP requests answered with a 5xx",
	}, []string{"route"})
	ProfileSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persona_profile_saves_total",
		Help: "Profile saves by outcome",
	}, []string{"outcome"})
	VisitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persona_public_visits_total",
		Help: "Public page visit token redemptions by outcome",
	}, []string{"outcome"})
	UploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "persona_upload_bytes_total",
		Help: "Bytes accepted into user vaults",
	})
)

// TrackEditorSessions exposes the number of open editor sessions. Call it
// once per process.
func TrackEditorSessions(count func() int) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "persona_editor_sessions_open",
		Help: "Editor sessions currently held in memory",
	}, func() float64 { return float64(count()) })
}
