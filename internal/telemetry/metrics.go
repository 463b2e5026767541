package telemetry

import (
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	OrdersCreated   metric.Int64Counter // by outcome: submitted, queued, rejected, failed
	OrderValueCents metric.Int64Histogram

	PendingDepth    metric.Int64UpDownCounter
	RetryPasses     metric.Int64Counter // by result: drained, aborted, coalesced
	OrdersDelivered metric.Int64Counter
	RetryPassTime   metric.Float64Histogram

	MenuFetches metric.Int64Counter // by result: ok, error
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	ordersCreated, err := meter.Int64Counter("orders_created_total",
		metric.WithDescription("Orders accepted by the kiosk, by outcome"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	orderValue, err := meter.Int64Histogram("order_value_cents",
		metric.WithDescription("Order value in cents"),
		metric.WithUnit("cents"),
		metric.WithExplicitBucketBoundaries(100, 500, 1000, 2500, 5000, 10000),
	)
	if err != nil {
		return nil, err
	}

	pendingDepth, err := meter.Int64UpDownCounter("pending_orders",
		metric.WithDescription("Orders currently queued for retry"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	retryPasses, err := meter.Int64Counter("retry_passes_total",
		metric.WithDescription("Retry passes over the pending queue, by result"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, err
	}

	delivered, err := meter.Int64Counter("orders_delivered_total",
		metric.WithDescription("Queued orders accepted by the remote during retry"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	retryTime, err := meter.Float64Histogram("retry_pass_duration_seconds",
		metric.WithDescription("Duration of one retry pass"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.5, 1.0, 5.0, 15.0),
	)
	if err != nil {
		return nil, err
	}

	menuFetches, err := meter.Int64Counter("menu_fetches_total",
		metric.WithDescription("Menu fetches, by result"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		OrdersCreated:   ordersCreated,
		OrderValueCents: orderValue,
		PendingDepth:    pendingDepth,
		RetryPasses:     retryPasses,
		OrdersDelivered: delivered,
		RetryPassTime:   retryTime,
		MenuFetches:     menuFetches,
	}, nil
}
