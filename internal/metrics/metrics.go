package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Freeeeeet/ltrc_platform/internal/booking"
	"github.com/Freeeeeet/ltrc_platform/internal/identity"
	"github.com/Freeeeeet/ltrc_platform/internal/model"
)

const namespace = "ltrc"

type Metrics struct {
	registry *prometheus.Registry

	bookingSubmissions *prometheus.CounterVec
	signIns            *prometheus.CounterVec
	sinkWrites         *prometheus.CounterVec
	sinkLatency        prometheus.Histogram
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		bookingSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_submissions_total",
			Help:      "Booking submissions by outcome.",
		}, []string{"result"}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sign_ins_total",
			Help:      "Sign-in attempts by outcome.",
		}, []string{"result"}),
		sinkWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meeting_writes_total",
			Help:      "Meeting store writes by outcome.",
		}, []string{"result"}),
		sinkLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "meeting_write_duration_seconds",
			Help:      "Latency of meeting store writes.",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.bookingSubmissions,
		m.signIns,
		m.sinkWrites,
		m.sinkLatency,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSubmission counts one Submit outcome.
func (m *Metrics) ObserveSubmission(err error) {
	m.bookingSubmissions.WithLabelValues(submissionResult(err)).Inc()
}

func submissionResult(err error) string {
	var (
		ve *booking.ValidationError
		se *booking.SubmissionError
	)
	switch {
	case err == nil:
		return "created"
	case errors.As(err, &ve):
		return "invalid"
	case errors.Is(err, booking.ErrSubmissionInFlight):
		return "in_flight"
	case errors.As(err, &se):
		return "store_failed"
	default:
		return "error"
	}
}

// ObserveSignIn counts one sign-in outcome, labelled with the auth code on
// failure.
func (m *Metrics) ObserveSignIn(err error) {
	result := "ok"
	if err != nil {
		var ae *identity.AuthError
		if errors.As(err, &ae) {
			result = string(ae.Code)
		} else {
			result = "error"
		}
	}
	m.signIns.WithLabelValues(result).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// InstrumentedSink times and counts every write to the wrapped sink.
type InstrumentedSink struct {
	next booking.Sink
	m    *Metrics
}

func (m *Metrics) InstrumentSink(next booking.Sink) *InstrumentedSink {
	return &InstrumentedSink{next: next, m: m}
}

func (s *InstrumentedSink) CreateMeeting(ctx context.Context, meeting *model.Meeting) error {
	start := time.Now()
	err := s.next.CreateMeeting(ctx, meeting)
	s.m.sinkLatency.Observe(time.Since(start).Seconds())

	result := "ok"
	if err != nil {
		result = "error"
	}
	s.m.sinkWrites.WithLabelValues(result).Inc()
	return err
}
