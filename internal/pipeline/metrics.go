package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Definition
var (
	chunksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattlens_chunks_processed_total", // Follow Prometheus naming conventions
			Help: "Total number of sample chunks accepted by the analyzer.",
		},
		[]string{"device", "signal"},
	)
	chunksInvalid = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wattlens_chunks_invalid_total",
			Help: "Total number of payloads that failed chunk parsing or validation.",
		},
	)
	chunksOutOfOrder = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattlens_chunks_out_of_order_total",
			Help: "Total number of chunks dropped for arriving behind the stream cursor.",
		},
		[]string{"device", "signal"},
	)
	streamGaps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattlens_stream_gaps_total",
			Help: "Total number of sample gaps observed between consecutive chunks.",
		},
		[]string{"device", "signal"},
	)
	eventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattlens_events_dropped_total",
			Help: "Total number of events or payloads dropped on a full channel.",
		},
		[]string{"stage"}, // Label: pipeline stage doing the dropping
	)
	detectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattlens_detections_total",
			Help: "Total number of chunks in which a detector condition was satisfied.",
		},
		[]string{"device", "signal", "detector"},
	)
	triggerEdges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattlens_trigger_edges_total",
			Help: "Total number of trigger transitions, split by edge direction.",
		},
		[]string{"device", "signal", "edge"}, // edge: rising | falling
	)
	triggerActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wattlens_trigger_active",
			Help: "Whether the dual-threshold trigger is currently active (1) or idle (0).",
		},
		[]string{"device", "signal"},
	)
	regionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattlens_regions_completed_total",
			Help: "Total number of GPI regions emitted with full statistics.",
		},
		[]string{"device", "signal"},
	)
	regionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wattlens_regions_open",
			Help: "Number of GPI regions currently open or awaiting analog data.",
		},
		[]string{"device", "signal"},
	)
	regionLastLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wattlens_region_last_length_samples",
			Help: "Sample length of the most recently completed region.",
		},
		[]string{"device", "signal"},
	)
	intervalMean = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wattlens_interval_mean_value",
			Help: "Mean value for a signal over the last flush interval.",
		},
		[]string{"device", "signal"},
	)
	intervalStdDev = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wattlens_interval_stddev_value",
			Help: "Standard deviation for a signal over the last flush interval.",
		},
		[]string{"device", "signal"},
	)
	chargeTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wattlens_charge_coulombs",
			Help: "Charge integrated from the current signal since startup.",
		},
		[]string{"device"},
	)
	energyTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wattlens_energy_joules",
			Help: "Energy integrated from the power signal since startup.",
		},
		[]string{"device"},
	)
)
