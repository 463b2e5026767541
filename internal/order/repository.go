package order

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"coffee-kiosk/internal/models"
	"coffee-kiosk/internal/pending"
	"coffee-kiosk/internal/remote"
)

// Repository fronts the remote ordering API and the durable pending queue
// behind one contract. Failure classification happens at the remote boundary
// and passes through Submit unchanged; no retry logic lives here.
type Repository struct {
	api    remote.API
	store  pending.Store
	log    *zap.Logger
	tracer trace.Tracer
}

func NewRepository(api remote.API, store pending.Store, log *zap.Logger, tracer trace.Tracer) *Repository {
	return &Repository{api: api, store: store, log: log, tracer: tracer}
}

func (r *Repository) Submit(ctx context.Context, o models.Order) error {
	ctx, span := r.tracer.Start(ctx, "SubmitOrder",
		trace.WithAttributes(
			attribute.String("order.id", o.ID),
			attribute.Int64("order.total_cents", o.TotalCents),
		),
	)
	defer span.End()

	if err := r.api.CreateOrder(ctx, o); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (r *Repository) Menu(ctx context.Context) ([]models.MenuItem, error) {
	ctx, span := r.tracer.Start(ctx, "GetMenu")
	defer span.End()

	menu, err := r.api.GetMenu(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return menu, nil
}

func (r *Repository) Enqueue(ctx context.Context, o models.Order) error {
	return r.store.Enqueue(ctx, o)
}

func (r *Repository) Pending(ctx context.Context) ([]models.PendingOrderRecord, error) {
	return r.store.ListOrdered(ctx)
}

func (r *Repository) Remove(ctx context.Context, orderID string) error {
	return r.store.Remove(ctx, orderID)
}

func (r *Repository) RecordFailure(ctx context.Context, orderID string) error {
	return r.store.RecordAttemptFailure(ctx, orderID)
}
