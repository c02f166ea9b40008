package polyjuice

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelMethod  = "method"
	labelOutcome = "outcome"

	outcomeOK    = "ok"
	outcomeEmpty = "empty"
	outcomeError = "error"
)

// ErrWrongMetricType indicates a collector name is already registered with another type.
var ErrWrongMetricType = errors.New("polyjuice: collector already registered with different type")

// Metrics records RPC gateway activity.
type Metrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	cacheHits *prometheus.CounterVec
}

// NewMetrics creates the gateway collectors and registers them with prom.
// Collectors already registered under the same name are reused.
func NewMetrics(prom prometheus.Registerer) (*Metrics, error) {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyjuice_rpc_requests_total",
			Help: "JSON-RPC requests issued, by method and outcome.",
		},
		[]string{labelMethod, labelOutcome},
	)
	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polyjuice_rpc_request_duration_seconds",
			Help:    "JSON-RPC request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{labelMethod},
	)
	cacheHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyjuice_rpc_cache_hits_total",
			Help: "Lookups served from the client cache.",
		},
		[]string{labelMethod},
	)

	var err error
	if requests, err = registerCollector(prom, requests); err != nil {
		return nil, err
	}
	if latency, err = registerCollector(prom, latency); err != nil {
		return nil, err
	}
	if cacheHits, err = registerCollector(prom, cacheHits); err != nil {
		return nil, err
	}

	return &Metrics{
		requests:  requests,
		latency:   latency,
		cacheHits: cacheHits,
	}, nil
}

func (m *Metrics) observe(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.With(prometheus.Labels{labelMethod: method, labelOutcome: outcome}).Inc()
	m.latency.With(prometheus.Labels{labelMethod: method}).Observe(elapsed.Seconds())
}

func (m *Metrics) cacheHit(method string) {
	if m == nil {
		return
	}
	m.cacheHits.With(prometheus.Labels{labelMethod: method}).Inc()
}

// registerCollector registers c, returning the existing collector if one
// with the same descriptor is already registered.
func registerCollector[T prometheus.Collector](prom prometheus.Registerer, c T) (T, error) {
	err := prom.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, err
	}

	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return c, ErrWrongMetricType
	}
	return existing, nil
}
