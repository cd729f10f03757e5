// Package metrics provides Prometheus metrics for the scanning gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesScanned counts scanned messages by transport and verdict.
	MessagesScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mimesentry",
			Subsystem: "scan",
			Name:      "messages_total",
			Help:      "Total number of messages scanned by transport and verdict",
		},
		[]string{"transport", "verdict"},
	)

	// AnomaliesRaised counts anomaly flags by kind.
	AnomaliesRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mimesentry",
			Subsystem: "scan",
			Name:      "anomalies_total",
			Help:      "Total number of anomaly flags raised by kind",
		},
		[]string{"kind"},
	)

	// ScanDuration measures scan duration in seconds.
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mimesentry",
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Message scan duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
	)

	// NestingDepth observes the maximum multipart nesting per message.
	NestingDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mimesentry",
			Subsystem: "scan",
			Name:      "nesting_depth",
			Help:      "Maximum multipart nesting level observed per message",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
		},
	)

	// MessageSize observes scanned message sizes in bytes.
	MessageSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mimesentry",
			Subsystem: "scan",
			Name:      "message_size_bytes",
			Help:      "Scanned message size in bytes",
			Buckets:   []float64{1024, 10240, 102400, 1048576, 10485760, 104857600},
		},
	)
)

var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mimesentry",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mimesentry",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)

var (
	// SMTPConnectionsTotal counts total SMTP connections.
	SMTPConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mimesentry",
			Subsystem: "smtp",
			Name:      "connections_total",
			Help:      "Total number of SMTP connections accepted",
		},
	)

	// SMTPMessagesRejected counts messages rejected at the SMTP layer.
	SMTPMessagesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mimesentry",
			Subsystem: "smtp",
			Name:      "messages_rejected_total",
			Help:      "Total number of messages rejected at the SMTP layer by reason",
		},
		[]string{"reason"},
	)
)

// ObserveScan records the outcome of one scan in the scan metric family.
func ObserveScan(transport, verdict string, anomalies []string, seconds float64, depth, sizeBytes int) {
	MessagesScanned.WithLabelValues(transport, verdict).Inc()
	for _, kind := range anomalies {
		AnomaliesRaised.WithLabelValues(kind).Inc()
	}
	ScanDuration.Observe(seconds)
	NestingDepth.Observe(float64(depth))
	MessageSize.Observe(float64(sizeBytes))
}
