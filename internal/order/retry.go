package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"coffee-kiosk/internal/remote"
	"coffee-kiosk/internal/telemetry"
)

// Rejection is a terminal remote rejection found while draining the queue.
// The order is gone from the store; the caller decides how to tell the user.
type Rejection struct {
	OrderID string
	Reason  string
}

// Report summarizes one Run, including any coalesced follow-up pass.
type Report struct {
	Attempted  int
	Delivered  int
	Rejections []Rejection
	Aborted    bool // connectivity dropped mid-drain; remaining orders stay queued
	Coalesced  bool // another Run was in progress; this trigger folded into it
}

func (r *Report) merge(o Report) {
	r.Attempted += o.Attempted
	r.Delivered += o.Delivered
	r.Rejections = append(r.Rejections, o.Rejections...)
	r.Aborted = o.Aborted
}

// RetryUseCase drains the pending queue against the remote service, oldest
// order first. At most one pass runs at a time; a trigger that arrives while
// a pass is in flight schedules exactly one follow-up pass, which the
// in-flight Run executes before returning.
type RetryUseCase struct {
	repo    *Repository
	metrics *telemetry.Metrics
	log     *zap.Logger
	tracer  trace.Tracer

	mu       sync.Mutex
	running  bool
	followUp bool
}

func NewRetryUseCase(repo *Repository, metrics *telemetry.Metrics, log *zap.Logger, tracer trace.Tracer) *RetryUseCase {
	return &RetryUseCase{repo: repo, metrics: metrics, log: log, tracer: tracer}
}

func (uc *RetryUseCase) Run(ctx context.Context) (Report, error) {
	uc.mu.Lock()
	if uc.running {
		uc.followUp = true
		uc.mu.Unlock()
		uc.metrics.RetryPasses.Add(ctx, 1, passResult("coalesced"))
		return Report{Coalesced: true}, nil
	}
	uc.running = true
	uc.mu.Unlock()

	var total Report
	for {
		rep, err := uc.pass(ctx)
		total.merge(rep)

		uc.mu.Lock()
		again := uc.followUp && err == nil && !rep.Aborted
		uc.followUp = false
		if !again {
			uc.running = false
		}
		uc.mu.Unlock()

		if !again {
			return total, err
		}
	}
}

func (uc *RetryUseCase) pass(ctx context.Context) (Report, error) {
	ctx, span := uc.tracer.Start(ctx, "RetryPendingOrders")
	defer span.End()
	start := time.Now()

	recs, err := uc.repo.Pending(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Report{}, fmt.Errorf("list pending orders: %w", err)
	}

	var rep Report
	for _, rec := range recs {
		rep.Attempted++
		err := uc.repo.Submit(ctx, rec.Order)
		if err == nil {
			if rerr := uc.repo.Remove(ctx, rec.Order.ID); rerr != nil {
				span.RecordError(rerr)
				span.SetStatus(codes.Error, rerr.Error())
				return rep, fmt.Errorf("remove delivered order %s: %w", rec.Order.ID, rerr)
			}
			rep.Delivered++
			uc.metrics.OrdersDelivered.Add(ctx, 1)
			uc.metrics.PendingDepth.Add(ctx, -1)
			uc.log.Info("pending order delivered",
				zap.String("order_id", rec.Order.ID),
				zap.Int("attempt_count", rec.AttemptCount),
			)
			continue
		}

		if errors.Is(err, remote.ErrUnreachable) {
			// Connectivity likely dropped again; leave everything
			// untried for the next trigger.
			rep.Aborted = true
			uc.log.Info("retry pass aborted, remote unreachable",
				zap.Int("remaining", len(recs)-rep.Attempted+1),
			)
			break
		}

		var rej *remote.RejectedError
		if errors.As(err, &rej) {
			if rerr := uc.repo.Remove(ctx, rec.Order.ID); rerr != nil {
				span.RecordError(rerr)
				span.SetStatus(codes.Error, rerr.Error())
				return rep, fmt.Errorf("remove rejected order %s: %w", rec.Order.ID, rerr)
			}
			rep.Rejections = append(rep.Rejections, Rejection{OrderID: rec.Order.ID, Reason: rej.Reason})
			uc.metrics.PendingDepth.Add(ctx, -1)
			uc.log.Warn("pending order rejected",
				zap.String("order_id", rec.Order.ID),
				zap.String("reason", rej.Reason),
			)
			continue
		}

		// Transient or unclassified: count the attempt and keep going so
		// one bad order does not block the rest.
		if rerr := uc.repo.RecordFailure(ctx, rec.Order.ID); rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
			return rep, fmt.Errorf("record attempt for order %s: %w", rec.Order.ID, rerr)
		}
		uc.log.Info("pending order attempt failed",
			zap.String("order_id", rec.Order.ID),
			zap.Error(err),
		)
	}

	result := "drained"
	if rep.Aborted {
		result = "aborted"
	}
	uc.metrics.RetryPasses.Add(ctx, 1, passResult(result))
	uc.metrics.RetryPassTime.Record(ctx, time.Since(start).Seconds())

	span.SetAttributes(
		attribute.Int("retry.attempted", rep.Attempted),
		attribute.Int("retry.delivered", rep.Delivered),
		attribute.Bool("retry.aborted", rep.Aborted),
	)
	span.SetStatus(codes.Ok, "")
	return rep, nil
}

func passResult(result string) metric.AddOption {
	return metric.WithAttributes(attribute.String("result", result))
}
