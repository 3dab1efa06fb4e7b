package metrics

import (
	"net/http"
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements Recorder with Prometheus collectors.
type Prometheus struct {
	reg prometheus.Gatherer

	cells           *prometheus.CounterVec
	skippedMappings *prometheus.CounterVec
	overlaps        prometheus.Counter
	monthDuration   prometheus.Histogram
	monthPeople     prometheus.Histogram
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus registers the engine collectors on reg. A nil reg gets a
// fresh registry; namespace defaults to "calendar".
func NewPrometheus(reg *prometheus.Registry, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "calendar"
	}

	p := &Prometheus{
		reg: reg,
		cells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "cells_total",
			Help:      "Resolved person-day cells by provenance of the winning state.",
		}, []string{"source", "multiple"}),
		skippedMappings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "skipped_mappings_total",
			Help:      "Source mappings skipped because they could not be bound or fetched.",
		}, []string{"kind"}),
		overlaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assignments",
			Name:      "overlap_rejections_total",
			Help:      "Assignment writes rejected because of an overlapping active assignment.",
		}),
		monthDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "month_duration_seconds",
			Help:      "Time spent pre-fetching and resolving a month grid.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		monthPeople: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "month_people",
			Help:      "People per resolved month grid.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}

	reg.MustRegister(p.cells, p.skippedMappings, p.overlaps, p.monthDuration, p.monthPeople)
	return p
}

func (p *Prometheus) CellResolved(source models.Source, multiple bool) {
	label := string(source)
	if label == "" {
		label = "none"
	}
	m := "false"
	if multiple {
		m = "true"
	}
	p.cells.WithLabelValues(label, m).Inc()
}

func (p *Prometheus) MappingSkipped(kind string) {
	p.skippedMappings.WithLabelValues(kind).Inc()
}

func (p *Prometheus) OverlapRejected() {
	p.overlaps.Inc()
}

func (p *Prometheus) MonthResolved(people int, elapsed time.Duration) {
	p.monthDuration.Observe(elapsed.Seconds())
	p.monthPeople.Observe(float64(people))
}

// Handler serves the registry in the Prometheus exposition format
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}
