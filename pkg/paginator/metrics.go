package paginator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PageFetchesTotal counts page fetch outcomes by kind.
	PageFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jsonpaginate_page_fetches_total",
		Help: "Total page fetches by outcome kind",
	}, []string{"kind"})

	// PageFetchDuration tracks page fetch latency.
	PageFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jsonpaginate_page_fetch_duration_seconds",
		Help:    "Page fetch duration in seconds, including parsing",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	})

	// PagesInFlight tracks concurrent page fetches.
	PagesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jsonpaginate_pages_in_flight",
		Help: "Page fetches currently in flight",
	})

	// OutcomesDiscardedTotal counts outcomes that arrived after a run failed.
	OutcomesDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jsonpaginate_outcomes_discarded_total",
		Help: "Page outcomes discarded because the run had already failed",
	})

	// LoginsTotal counts login exchanges by result.
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jsonpaginate_logins_total",
		Help: "Total login exchanges by result",
	}, []string{"result"}) // "success", "failed"

	// RunsTotal counts download runs by final state.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jsonpaginate_runs_total",
		Help: "Total download runs by final state",
	}, []string{"state"}) // "done", "failed"

	// RecordsDownloadedTotal counts records returned by successful runs.
	RecordsDownloadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jsonpaginate_records_downloaded_total",
		Help: "Total records returned by successful runs",
	})
)
