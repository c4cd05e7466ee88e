package ports

// MetricsRecorder registra métricas de negocio (implementado con Prometheus en infraestructura).
type MetricsRecorder interface {
	StockMutation(kind string)
	Decision(operationType, decision string)
}

// NoopMetrics no registra nada.
type NoopMetrics struct{}

func (NoopMetrics) StockMutation(string)    {}
func (NoopMetrics) Decision(string, string) {}
