package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ListingsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quebracell_listings_submitted_total",
		Help: "Total number of device listings successfully submitted.",
	})

	QuotesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quebracell_quotes_sent_total",
		Help: "Total number of proposals sent by the operator.",
	})

	ResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quebracell_responses_total",
		Help: "Total number of owner responses to proposals.",
	},
		[]string{"decision"},
	)

	PaymentsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quebracell_payments_confirmed_total",
		Help: "Total number of listings marked as paid.",
	})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quebracell_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)

	FeedEventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quebracell_feed_events_dropped_total",
		Help: "Change feed events dropped because a subscriber was too slow.",
	})

	ProjectionListings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quebracell_projection_listings",
		Help: "Current number of listings held by the admin projection.",
	})
)
