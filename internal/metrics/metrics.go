// Package metrics exposes prometheus collectors for the HTTP API and timesheet events.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/balkashynov/hourly/internal/events"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hourly",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of handled API requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hourly",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency of API requests by method and route.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"method", "route"})

	timesheetsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hourly",
		Subsystem: "timesheet",
		Name:      "started_total",
		Help:      "Number of started timesheet records.",
	})

	timesheetsStopped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hourly",
		Subsystem: "timesheet",
		Name:      "stopped_total",
		Help:      "Number of stopped timesheet records.",
	})

	// running records across all users, as seen by this process
	activeTimesheets = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hourly",
		Subsystem: "timesheet",
		Name:      "active",
		Help:      "Timesheet records currently running.",
	})

	exportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hourly",
		Subsystem: "export",
		Name:      "created_total",
		Help:      "Number of exports rendered, labeled by format.",
	}, []string{"format"})

	invoicesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hourly",
		Subsystem: "invoice",
		Name:      "created_total",
		Help:      "Number of invoices created.",
	})

	logins = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hourly",
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Number of successful password logins.",
	})
)

func init() {
	prometheus.MustRegister(httpRequests, httpDuration, timesheetsStarted, timesheetsStopped,
		activeTimesheets, exportsTotal, invoicesCreated, logins)
}

// RecordRequest observes one handled API request.
func RecordRequest(method, route string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SetActiveTimesheets sets the running gauge, used on startup.
func SetActiveTimesheets(n int) {
	activeTimesheets.Set(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

type runner interface {
	IsRunning() bool
}

// Subscriber turns domain events into metric updates.
func Subscriber() events.Subscriber {
	return events.SubscriberFunc(func(_ context.Context, e events.Event) error {
		switch e.Name {
		case events.TimesheetStarted:
			timesheetsStarted.Inc()
			activeTimesheets.Inc()
		case events.TimesheetStopped:
			timesheetsStopped.Inc()
			activeTimesheets.Dec()
		case events.TimesheetDeleted:
			if r, ok := e.Payload.(runner); ok && r.IsRunning() {
				activeTimesheets.Dec()
			}
		case events.ExportCreated:
			format := "unknown"
			if payload, ok := e.Payload.(map[string]interface{}); ok {
				if f, ok := payload["format"].(string); ok {
					format = f
				}
			}
			exportsTotal.WithLabelValues(format).Inc()
		case events.InvoiceCreated:
			invoicesCreated.Inc()
		case events.UserLogin:
			logins.Inc()
		}
		return nil
	})
}
