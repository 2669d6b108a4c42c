// Package telemetry exports index metrics in Prometheus format.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/lexgo/engine"
)

// Collector samples one or more engines on every scrape. Register it with a
// prometheus.Registerer.
type Collector struct {
	engines []*engine.Engine

	documents  *prometheus.Desc
	storeBytes *prometheus.Desc
	inFlight   *prometheus.Desc

	docsIndexed   *prometheus.Desc
	docsDeleted   *prometheus.Desc
	batches       *prometheus.Desc
	batchFailures *prometheus.Desc
	batchAvg      *prometheus.Desc
	queries       *prometheus.Desc
	queryFailures *prometheus.Desc
	queryAvg      *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds a collector over the given engines. The namespace
// prefixes every metric name; pass "" for the default "lexgo".
func NewCollector(namespace string, engines ...*engine.Engine) *Collector {
	if namespace == "" {
		namespace = "lexgo"
	}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", name),
			help, []string{"index"}, nil,
		)
	}
	return &Collector{
		engines: engines,

		documents:  desc("documents", "Number of indexed documents."),
		storeBytes: desc("store_size_bytes", "Size of the backing store in bytes."),
		inFlight:   desc("searches_in_flight", "Searches currently executing."),

		docsIndexed:   desc("documents_indexed_total", "Documents added or replaced since start."),
		docsDeleted:   desc("documents_deleted_total", "Documents deleted since start."),
		batches:       desc("batches_applied_total", "Update batches committed since start."),
		batchFailures: desc("batch_failures_total", "Update batches rejected or rolled back since start."),
		batchAvg:      desc("batch_duration_seconds_avg", "Mean wall time of committed batches."),
		queries:       desc("queries_served_total", "Queries answered since start."),
		queryFailures: desc("query_failures_total", "Queries that returned an error since start."),
		queryAvg:      desc("query_duration_seconds_avg", "Mean wall time of answered queries."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.documents
	ch <- c.storeBytes
	ch <- c.inFlight
	ch <- c.docsIndexed
	ch <- c.docsDeleted
	ch <- c.batches
	ch <- c.batchFailures
	ch <- c.batchAvg
	ch <- c.queries
	ch <- c.queryFailures
	ch <- c.queryAvg
}

// Collect implements prometheus.Collector. Engines whose stats cannot be
// read are skipped for the scrape.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, eng := range c.engines {
		stats, err := eng.Stats()
		if err != nil {
			continue
		}
		name := eng.Name()
		cs := stats.Counters

		gauge := func(d *prometheus.Desc, v float64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, name)
		}
		counter := func(d *prometheus.Desc, v float64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, name)
		}

		gauge(c.documents, float64(stats.Documents))
		gauge(c.storeBytes, float64(stats.StoreSizeBytes))
		gauge(c.inFlight, float64(stats.InFlightSearches))

		counter(c.docsIndexed, float64(cs.DocumentsIndexed))
		counter(c.docsDeleted, float64(cs.DocumentsDeleted))
		counter(c.batches, float64(cs.BatchesApplied))
		counter(c.batchFailures, float64(cs.BatchFailures))
		gauge(c.batchAvg, float64(cs.BatchAvgNanos)/1e9)
		counter(c.queries, float64(cs.QueriesServed))
		counter(c.queryFailures, float64(cs.QueryFailures))
		gauge(c.queryAvg, float64(cs.QueryAvgNanos)/1e9)
	}
}
