package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"coffee-kiosk/internal/kafka"
	"coffee-kiosk/internal/models"
	"coffee-kiosk/internal/telemetry"
)

// Fulfillment display: drains the accepted-orders topic and shows each order
// to the barista. Offsets commit only after an order is displayed, so a
// crash never loses a ticket.

const (
	acceptedTopic = "orders.accepted"
	groupID       = "barista"
)

func brokerAddr() string {
	if b := os.Getenv("KAFKA_BROKER"); b != "" {
		return b
	}
	return "localhost:9092"
}

var (
	log    *zap.Logger
	tracer trace.Tracer
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		shutdown func(context.Context)
		err      error
	)
	log, tracer, _, shutdown, err = telemetry.Setup(ctx, "barista")
	if err != nil {
		panic("failed to initialize telemetry: " + err.Error())
	}
	defer shutdown(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down barista...")
		cancel()
	}()

	consumer := kafka.NewConsumer([]string{brokerAddr()}, acceptedTopic, groupID)
	defer consumer.Close()

	log.Info("barista display started", zap.String("topic", acceptedTopic))

	if err := consumer.Listen(ctx, displayOrder); err != nil {
		log.Error("consumer error", zap.Error(err))
	}
}

func displayOrder(ctx context.Context, key, value []byte) error {
	ctx, span := tracer.Start(ctx, "DisplayOrder",
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	var o models.Order
	if err := json.Unmarshal(value, &o); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to unmarshal order")
		return err
	}

	span.SetAttributes(
		attribute.String("order.id", o.ID),
		attribute.Int64("order.total_cents", o.TotalCents),
	)

	names := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		names = append(names, it.Name)
	}

	span.SetStatus(codes.Ok, "")
	log.Info("order up",
		zap.String("order_id", o.ID),
		zap.Strings("items", names),
		zap.Int64("total_cents", o.TotalCents),
	)
	return nil
}
