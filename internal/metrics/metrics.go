package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing, so components can run without instrumentation.
type Metrics struct {
	cartOperations   *prometheus.CounterVec
	persistWrites    *prometheus.CounterVec
	rehydrateDropped prometheus.Counter
	activeSessions   prometheus.Gauge
	catalogRequests  *prometheus.CounterVec
	ordersPlaced     prometheus.Counter
}

// New registers the collectors with reg. Use prometheus.NewRegistry() in
// tests to avoid duplicate registration on the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		cartOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "operations_total",
			Help:      "Committed cart mutations by operation",
		}, []string{"op"}),

		persistWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "persist_writes_total",
			Help:      "Cart persistence writes by result",
		}, []string{"result"}),

		rehydrateDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "rehydrate_corrected_entries_total",
			Help:      "Persisted cart entries dropped or merged during rehydration",
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "active_sessions",
			Help:      "Cart stores currently held in memory",
		}),

		catalogRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "requests_total",
			Help:      "Catalog API requests by endpoint and result",
		}, []string{"endpoint", "result"}),

		ordersPlaced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "orders_placed_total",
			Help:      "Orders accepted at checkout",
		}),
	}
}

func (m *Metrics) CartOperation(op string) {
	if m == nil {
		return
	}
	m.cartOperations.WithLabelValues(op).Inc()
}

func (m *Metrics) PersistWrite(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.persistWrites.WithLabelValues(result).Inc()
}

func (m *Metrics) RehydrateCorrected(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rehydrateDropped.Add(float64(n))
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *Metrics) CatalogRequest(endpoint string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.catalogRequests.WithLabelValues(endpoint, result).Inc()
}

func (m *Metrics) OrderPlaced() {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
}
