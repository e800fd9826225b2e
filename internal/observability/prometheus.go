package observability

import (
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
)

// PrometheusExporter bridges OTel instruments into a private Prometheus
// registry. Each exporter owns its registry so several can coexist.
type PrometheusExporter struct {
	registry *prometheus.Registry
	reader   *promexporter.Exporter
}

// NewPrometheusExporter creates an exporter; pass it to Init through
// Config.Prometheus or attach reader to a MeterProvider directly.
func NewPrometheusExporter() (*PrometheusExporter, error) {
	registry := prometheus.NewRegistry()

	reader, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &PrometheusExporter{registry: registry, reader: reader}, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// WriteText gathers the registry and writes it in the text exposition format.
func (p *PrometheusExporter) WriteText(w io.Writer) error {
	families, err := p.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	encoder := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))

	for _, family := range families {
		err = encoder.Encode(family)
		if err != nil {
			return fmt.Errorf("encode %s: %w", family.GetName(), err)
		}
	}

	return nil
}
