package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FilesLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lens_files_loaded_total",
		Help: "Files processed by the loader, by format and status",
	}, []string{"format", "status"})

	BytesRead = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lens_bytes_read_total",
		Help: "Bytes read from model files",
	}, []string{"format"})

	DecodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lens_decode_duration_seconds",
		Help:    "Time spent decoding one file's header section",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"format", "status"})

	DecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lens_decode_errors_total",
		Help: "Decode failures by kind",
	}, []string{"kind"})

	TensorsDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lens_tensors_decoded_total",
		Help: "Tensor records decoded",
	})

	MetadataDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lens_metadata_entries_decoded_total",
		Help: "Metadata entries decoded",
	})

	TreeBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lens_tree_build_duration_seconds",
		Help:    "Time spent building the namespace tree",
		Buckets: []float64{.00001, .0001, .001, .01, .1, 1},
	})

	TreeNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lens_tree_nodes",
		Help: "Nodes in the most recently built tree",
	})

	VisibleRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lens_tree_visible_rows",
		Help: "Rows produced by the last flatten",
	})

	FlightRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lens_flight_requests_total",
		Help: "Arrow Flight requests served, by method and ticket",
	}, []string{"method", "ticket"})
)

// RecordFileLoaded records the outcome of loading one file.
func RecordFileLoaded(format string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	FilesLoaded.WithLabelValues(format, status).Inc()
}

func RecordBytesRead(format string, n int) {
	BytesRead.WithLabelValues(format).Add(float64(n))
}

func RecordDecode(format string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DecodeDuration.WithLabelValues(format, status).Observe(d.Seconds())
}

func RecordDecodeError(kind string) {
	DecodeErrors.WithLabelValues(kind).Inc()
}

func RecordEntries(tensors, kv int) {
	TensorsDecoded.Add(float64(tensors))
	MetadataDecoded.Add(float64(kv))
}

func RecordTreeBuild(d time.Duration, nodes int) {
	TreeBuildDuration.Observe(d.Seconds())
	TreeNodes.Set(float64(nodes))
}

func RecordVisibleRows(n int) {
	VisibleRows.Set(float64(n))
}

func RecordFlightRequest(method, ticket string) {
	FlightRequests.WithLabelValues(method, ticket).Inc()
}

// WriteTextfile dumps the default registry in the Prometheus text
// format, for collection by a node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
