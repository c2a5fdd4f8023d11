package observability

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records render outcomes.
type Metrics interface {
	ObserveRender(format, outcome string, d time.Duration)
	FieldSkipped(reason string)
	ObserveConversion(backend string, d time.Duration, err error)
	CertificatePages(n int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRender(string, string, time.Duration)    {}
func (nopMetrics) FieldSkipped(string)                            {}
func (nopMetrics) ObserveConversion(string, time.Duration, error) {}
func (nopMetrics) CertificatePages(int)                           {}

// NopMetrics discards everything.
func NopMetrics() Metrics { return nopMetrics{} }

// PrometheusMetrics exports the standard metrics as Prometheus collectors.
type PrometheusMetrics struct {
	renderTime     *prometheus.HistogramVec
	renderCount    *prometheus.CounterVec
	skipped        *prometheus.CounterVec
	conversionTime *prometheus.HistogramVec
	certificates   prometheus.Counter
}

func promName(namespace, metric string) (string, string) {
	return namespace, strings.ReplaceAll(metric, ".", "_")
}

// NewMetrics creates the collectors and registers them with reg. A nil
// registerer leaves them unregistered.
func NewMetrics(namespace string, reg prometheus.Registerer) (*PrometheusMetrics, error) {
	ns, name := promName(namespace, MetricRenderTime)
	m := &PrometheusMetrics{
		renderTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: name + "_seconds",
			Help:    "Render duration by source format and outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"format", "outcome"}),
	}
	_, name = promName(namespace, MetricRenderCount)
	m.renderCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: name, Help: "Renders by source format and outcome.",
	}, []string{"format", "outcome"})
	_, name = promName(namespace, MetricSkippedFields)
	m.skipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: name + "_total", Help: "Fields skipped during rendering by reason.",
	}, []string{"reason"})
	_, name = promName(namespace, MetricConversionTime)
	m.conversionTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Name: name + "_seconds",
		Help:    "Flow to fixed-layout conversion duration.",
		Buckets: []float64{.25, .5, 1, 2, 5, 10, 30, 60},
	}, []string{"backend", "outcome"})
	_, name = promName(namespace, MetricCertificates)
	m.certificates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: name + "_total", Help: "Certificate pages appended.",
	})

	if reg != nil {
		for _, c := range []prometheus.Collector{m.renderTime, m.renderCount, m.skipped, m.conversionTime, m.certificates} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) ObserveRender(format, outcome string, d time.Duration) {
	m.renderTime.WithLabelValues(format, outcome).Observe(d.Seconds())
	m.renderCount.WithLabelValues(format, outcome).Inc()
}

func (m *PrometheusMetrics) FieldSkipped(reason string) {
	m.skipped.WithLabelValues(reason).Inc()
}

func (m *PrometheusMetrics) ObserveConversion(backend string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.conversionTime.WithLabelValues(backend, outcome).Observe(d.Seconds())
}

func (m *PrometheusMetrics) CertificatePages(n int) {
	m.certificates.Add(float64(n))
}
