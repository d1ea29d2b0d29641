package metrics

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	LoginsTotal        metric.Int64Counter
	RegistrationsTotal metric.Int64Counter
	BulkItemsTotal     metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments once, using the
// globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("adminkit")
		var err error
		m := &AppMetrics{}

		m.LoginsTotal, err = meter.Int64Counter(
			"logins_total",
			metric.WithDescription("Total number of successful logins"),
			metric.WithUnit("{login}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create logins_total: %v", err)
		}

		m.RegistrationsTotal, err = meter.Int64Counter(
			"registrations_total",
			metric.WithDescription("Total number of accounts created"),
			metric.WithUnit("{account}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create registrations_total: %v", err)
		}

		m.BulkItemsTotal, err = meter.Int64Counter(
			"bulk_items_total",
			metric.WithDescription("Total number of items processed by bulk operations"),
			metric.WithUnit("{item}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create bulk_items_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance. Panics if
// InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}

// RecordLogin counts one successful login, labeled by method ("password",
// "github", "google"). A no-op before InitAppMetrics.
func RecordLogin(ctx context.Context, method string) {
	if appMetrics == nil {
		return
	}
	appMetrics.LoginsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// RecordRegistration counts one account creation. A no-op before
// InitAppMetrics.
func RecordRegistration(ctx context.Context) {
	if appMetrics == nil {
		return
	}
	appMetrics.RegistrationsTotal.Add(ctx, 1)
}

// RecordBulkItems counts items processed by a bulk operation, labeled by
// outcome. A no-op before InitAppMetrics.
func RecordBulkItems(ctx context.Context, op string, succeeded, failed int) {
	if appMetrics == nil {
		return
	}
	if succeeded > 0 {
		appMetrics.BulkItemsTotal.Add(ctx, int64(succeeded), metric.WithAttributes(
			attribute.String("op", op), attribute.String("outcome", "ok")))
	}
	if failed > 0 {
		appMetrics.BulkItemsTotal.Add(ctx, int64(failed), metric.WithAttributes(
			attribute.String("op", op), attribute.String("outcome", "error")))
	}
}
