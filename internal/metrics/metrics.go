package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK    = "ok"
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

var (
	// Puts - stored payloads by outcome (ok|error).
	Puts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payloadstore_puts_total",
			Help: "Total number of put operations by result",
		},
		[]string{"result"},
	)

	// Gets - lookups by outcome (hit|miss|error). Expired entries count as miss.
	Gets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payloadstore_gets_total",
			Help: "Total number of get operations by result",
		},
		[]string{"result"},
	)

	// Reclaimed - entries physically removed by reclamation sweeps.
	Reclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payloadstore_reclaimed_total",
		Help: "Total number of expired entries deleted by sweeps",
	})

	// Sweeps - reclamation sweeps by outcome (ok|error).
	Sweeps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payloadstore_sweeps_total",
			Help: "Total number of reclamation sweeps by result",
		},
		[]string{"result"},
	)

	// RequestDuration - HTTP request latency by route pattern.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payloadstore_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
