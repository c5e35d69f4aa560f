package engine

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Armandase/seconde-main/pkg/database"
)

var (
	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_store_operation_duration_seconds",
			Help:    "Duration of document store operations in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine", "operation"},
	)

	storeOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_store_operation_errors_total",
			Help: "Total number of failed document store operations.",
		},
		[]string{"engine", "operation"},
	)
)

// Instrument traces a store operation and records its duration. Call the
// returned function with the operation's error when it completes.
func Instrument(ctx context.Context, engineName, operation, index string) (context.Context, func(error)) {
	start := time.Now()
	ctx, end := database.TraceOperation(ctx, engineName, operation, index)
	return ctx, func(err error) {
		storeOperationDuration.WithLabelValues(engineName, operation).Observe(time.Since(start).Seconds())
		if err != nil {
			storeOperationErrors.WithLabelValues(engineName, operation).Inc()
		}
		end(err)
	}
}
