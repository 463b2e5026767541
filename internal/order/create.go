package order

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"coffee-kiosk/internal/models"
	"coffee-kiosk/internal/pending"
	"coffee-kiosk/internal/remote"
	"coffee-kiosk/internal/telemetry"
)

var ErrEmptyCart = errors.New("cart is empty")

type OutcomeKind string

const (
	Submitted OutcomeKind = "submitted"
	Queued    OutcomeKind = "queued"
	Rejected  OutcomeKind = "rejected"
	Failed    OutcomeKind = "failed"
)

// Outcome is the only thing the presentation layer ever sees for an order:
// raw transport errors stop at this boundary.
type Outcome struct {
	Kind   OutcomeKind
	Order  models.Order
	Reason string
}

type CreateUseCase struct {
	repo    *Repository
	metrics *telemetry.Metrics
	log     *zap.Logger
	tracer  trace.Tracer
}

func NewCreateUseCase(repo *Repository, metrics *telemetry.Metrics, log *zap.Logger, tracer trace.Tracer) *CreateUseCase {
	return &CreateUseCase{repo: repo, metrics: metrics, log: log, tracer: tracer}
}

// Place builds an order from the cart and submits it. Per invocation exactly
// one of {remote acceptance, durable enqueue} happens: a rejected order is
// discarded, an unreachable or transient failure queues it, and a queue that
// cannot be written surfaces as Failed rather than pretending success.
func (uc *CreateUseCase) Place(ctx context.Context, items []models.OrderItem) (Outcome, error) {
	if len(items) == 0 {
		return Outcome{}, ErrEmptyCart
	}

	ctx, span := uc.tracer.Start(ctx, "PlaceOrder",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("order.items_count", len(items))),
	)
	defer span.End()

	o := models.NewOrder(items)
	span.SetAttributes(
		attribute.String("order.id", o.ID),
		attribute.Int64("order.total_cents", o.TotalCents),
	)

	err := uc.repo.Submit(ctx, o)
	if err == nil {
		span.SetStatus(codes.Ok, "")
		uc.count(ctx, Submitted)
		uc.metrics.OrderValueCents.Record(ctx, o.TotalCents)
		uc.log.Info("order submitted",
			zap.String("order_id", o.ID),
			zap.Int64("total_cents", o.TotalCents),
		)
		return Outcome{Kind: Submitted, Order: o}, nil
	}

	var rej *remote.RejectedError
	if errors.As(err, &rej) {
		span.SetStatus(codes.Error, "order rejected")
		uc.count(ctx, Rejected)
		uc.log.Warn("order rejected",
			zap.String("order_id", o.ID),
			zap.String("reason", rej.Reason),
		)
		return Outcome{Kind: Rejected, Order: o, Reason: rej.Reason}, nil
	}

	if remote.Retryable(err) {
		if qerr := uc.repo.Enqueue(ctx, o); qerr != nil && !errors.Is(qerr, pending.ErrDuplicateOrder) {
			span.RecordError(qerr)
			span.SetStatus(codes.Error, qerr.Error())
			uc.count(ctx, Failed)
			return Outcome{Kind: Failed, Order: o, Reason: "order could not be saved"},
				fmt.Errorf("queue order %s: %w", o.ID, qerr)
		}
		span.SetStatus(codes.Ok, "queued")
		uc.count(ctx, Queued)
		uc.metrics.PendingDepth.Add(ctx, 1)
		uc.log.Info("order queued for retry",
			zap.String("order_id", o.ID),
			zap.NamedError("cause", err),
		)
		return Outcome{Kind: Queued, Order: o}, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	uc.count(ctx, Failed)
	uc.log.Error("order submission failed", zap.String("order_id", o.ID), zap.Error(err))
	return Outcome{Kind: Failed, Order: o, Reason: err.Error()}, err
}

func (uc *CreateUseCase) count(ctx context.Context, kind OutcomeKind) {
	uc.metrics.OrdersCreated.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", string(kind))),
	)
}
