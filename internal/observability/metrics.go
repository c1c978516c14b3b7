package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "screentime"

var (
	writesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "writes_total",
		Help:      "Number of store writes grouped by operation and outcome.",
	}, []string{"operation", "outcome"})

	recordsWrittenCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "records_written_total",
		Help:      "Number of records written to the store, counting every row of an overwrite.",
	})

	lastWriteGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "last_write_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful store write.",
	})

	loadsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "loader",
		Name:      "loads_total",
		Help:      "Number of source loads grouped by source and result (loaded, absent, error).",
	}, []string{"source", "result"})

	eventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Number of record events handed to the broker grouped by kind and outcome.",
	}, []string{"kind", "outcome"})

	mirroredCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mirror",
		Name:      "events_applied_total",
		Help:      "Number of record events applied to the mirror store grouped by kind and outcome.",
	}, []string{"kind", "outcome"})

	httpRequestsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of HTTP requests grouped by method and status code.",
	}, []string{"method", "code"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency grouped by method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)

func init() {
	prometheus.MustRegister(writesCounter, recordsWrittenCounter, lastWriteGauge, loadsCounter,
		eventsCounter, mirroredCounter, httpRequestsCounter, httpDuration)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordWrite counts a store write of n records.
func RecordWrite(operation string, n int, err error) {
	writesCounter.WithLabelValues(operation, outcome(err)).Inc()
	if err != nil {
		return
	}
	recordsWrittenCounter.Add(float64(n))
	lastWriteGauge.Set(float64(time.Now().Unix()))
}

// RecordLoad counts one load of source ("store" or "document").
func RecordLoad(source string, found bool, err error) {
	result := "loaded"
	switch {
	case err != nil:
		result = "error"
	case !found:
		result = "absent"
	}
	loadsCounter.WithLabelValues(source, result).Inc()
}

// RecordPublish counts one event publication.
func RecordPublish(kind string, err error) {
	eventsCounter.WithLabelValues(kind, outcome(err)).Inc()
}

// RecordMirror counts one event applied by the mirror worker.
func RecordMirror(kind string, err error) {
	mirroredCounter.WithLabelValues(kind, outcome(err)).Inc()
}

// ObserveHTTPRequest counts one served request and its latency.
func ObserveHTTPRequest(method string, status int, elapsed time.Duration) {
	httpRequestsCounter.WithLabelValues(method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}
