package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

// Results counted by climate_ingest_total.
const (
	resultAccepted = "accepted"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	ingestTotal *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	sinkErrors  *prometheus.CounterVec
	duration    prometheus.Histogram
	outdoorTemp *prometheus.GaugeVec
	pressure    *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg when it is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "climate_ingest_total",
			Help: "Bundles processed by result (accepted, rejected, failed).",
		}, []string{"result"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "climate_ingest_errors_total",
			Help: "Rejected or failed bundles by error kind.",
		}, []string{"kind"}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "climate_ingest_sink_errors_total",
			Help: "Non-fatal sink failures by sink.",
		}, []string{"sink"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "climate_ingest_duration_seconds",
			Help:    "Time to validate and fan out one bundle.",
			Buckets: prometheus.DefBuckets,
		}),
		outdoorTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "climate_outdoor_temperature_celsius",
			Help: "Last reported outdoor temperature per system.",
		}, []string{"system_id"}),
		pressure: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "climate_water_pressure_bar",
			Help: "Last reported system water pressure per system.",
		}, []string{"system_id"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ingestTotal,
			m.errorsTotal,
			m.sinkErrors,
			m.duration,
			m.outdoorTemp,
			m.pressure,
		)
	}
	return m
}

func (m *Metrics) accepted(sys *climate.System, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(resultAccepted).Inc()
	m.duration.Observe(elapsed.Seconds())
	if v, err := sys.OutdoorTemperature(); err == nil {
		m.outdoorTemp.WithLabelValues(sys.ID()).Set(v)
	}
	if v, err := sys.WaterPressure(); err == nil {
		m.pressure.WithLabelValues(sys.ID()).Set(v)
	}
}

func (m *Metrics) rejected(result, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(result).Inc()
	m.errorsTotal.WithLabelValues(kind).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) sinkError(sink string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(sink).Inc()
}
