// Package metrics expone métricas Prometheus del API y de la lógica de stock/aprobación.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/medstock-api/internal/application/ports"
)

var _ ports.MetricsRecorder = (*Recorder)(nil)

// Recorder colectores del servicio. Se registran en el Registerer recibido.
type Recorder struct {
	requestCounter *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	mutations      *prometheus.CounterVec
	decisions      *prometheus.CounterVec
}

// NewRecorder crea y registra los colectores. Con reg nil usa el registro global.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medstock_http_requests_total",
				Help: "Total de peticiones HTTP por método, ruta y código",
			},
			[]string{"method", "route", "status"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "medstock_http_request_duration_seconds",
				Help:    "Latencia de las peticiones HTTP",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medstock_stock_mutations_total",
				Help: "Mutaciones de stock aplicadas por tipo",
			},
			[]string{"kind"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medstock_approvals_total",
				Help: "Decisiones sobre solicitudes por tipo y resultado",
			},
			[]string{"type", "decision"},
		),
	}
	reg.MustRegister(r.requestCounter, r.requestLatency, r.mutations, r.decisions)
	return r
}

// StockMutation implementa ports.MetricsRecorder.
func (r *Recorder) StockMutation(kind string) {
	r.mutations.WithLabelValues(kind).Inc()
}

// Decision implementa ports.MetricsRecorder.
func (r *Recorder) Decision(operationType, decision string) {
	r.decisions.WithLabelValues(operationType, decision).Inc()
}

// Middleware registra conteo y latencia por ruta (plantilla de ruta, no la URL concreta).
func (r *Recorder) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		route := c.Route().Path
		r.requestCounter.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		r.requestLatency.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}
