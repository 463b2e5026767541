package main

import (
	"context"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"coffee-kiosk/internal/kafka"
	"coffee-kiosk/internal/models"
	"coffee-kiosk/internal/telemetry"
)

// Demo implementation of the remote ordering service the kiosk talks to.
// Accepts orders idempotently by ID, rejects carts containing unavailable
// items, fails a configurable fraction of requests to exercise the kiosk's
// retry path, and publishes accepted orders for fulfillment.

const acceptedTopic = "orders.accepted"

func listenAddr() string {
	if a := os.Getenv("REMOTE_ADDR"); a != "" {
		return a
	}
	return ":9090"
}

func brokerAddr() string {
	if b := os.Getenv("KAFKA_BROKER"); b != "" {
		return b
	}
	return "localhost:9092"
}

func failRate() float64 {
	if v := os.Getenv("REMOTE_FAIL_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			return f
		}
	}
	return 0
}

func unavailableItems() map[string]bool {
	out := make(map[string]bool)
	for _, id := range strings.Split(os.Getenv("REMOTE_UNAVAILABLE"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			out[id] = true
		}
	}
	return out
}

func demoMenu(unavailable map[string]bool) []models.MenuItem {
	items := []models.MenuItem{
		{ID: "espresso", Name: "Espresso", PriceCents: 350},
		{ID: "cappuccino", Name: "Cappuccino", PriceCents: 475},
		{ID: "latte", Name: "Latte", PriceCents: 525},
		{ID: "croissant", Name: "Croissant", PriceCents: 325},
		{ID: "muffin", Name: "Blueberry Muffin", PriceCents: 350},
	}
	for i := range items {
		items[i].Available = !unavailable[items[i].ID]
	}
	return items
}

type service struct {
	log         *zap.Logger
	publisher   *kafka.Publisher
	failRate    float64
	unavailable map[string]bool

	mu       sync.Mutex
	accepted map[string]bool
}

func (s *service) menu(c *fiber.Ctx) error {
	return c.JSON(demoMenu(s.unavailable))
}

func (s *service) createOrder(c *fiber.Ctx) error {
	var o models.Order
	if err := c.BodyParser(&o); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if o.ID == "" || len(o.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id and items are required"})
	}

	// Replays of an already accepted order succeed without a second
	// fulfillment event; the kiosk retries blind after a crash.
	s.mu.Lock()
	if s.accepted[o.ID] {
		s.mu.Unlock()
		return c.JSON(fiber.Map{"status": "accepted"})
	}
	s.mu.Unlock()

	for _, it := range o.Items {
		if s.unavailable[it.MenuItemID] {
			s.log.Info("order rejected",
				zap.String("order_id", o.ID),
				zap.String("item", it.MenuItemID),
			)
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "out of stock"})
		}
	}

	if rand.Float64() < s.failRate {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "espresso machine warming up"})
	}

	s.mu.Lock()
	s.accepted[o.ID] = true
	s.mu.Unlock()

	if s.publisher != nil {
		if err := s.publisher.Publish(c.UserContext(), o.ID, o); err != nil {
			s.log.Error("failed to publish accepted order", zap.Error(err))
		}
	}

	s.log.Info("order accepted",
		zap.String("order_id", o.ID),
		zap.Int64("total_cents", o.TotalCents),
		zap.Int("items", len(o.Items)),
	)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "accepted"})
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, _, _, shutdown, err := telemetry.Setup(ctx, "orders-remote")
	if err != nil {
		panic("failed to initialize telemetry: " + err.Error())
	}
	defer shutdown(context.Background())

	// KAFKA_BROKER=off runs the service standalone, without fulfillment
	// events.
	broker := brokerAddr()
	var publisher *kafka.Publisher
	if broker != "off" {
		if err := kafka.EnsureTopic(ctx, broker, acceptedTopic, 3, 1); err != nil {
			log.Warn("failed to create topic (may already exist)", zap.Error(err))
		}
		publisher = kafka.NewPublisher([]string{broker}, acceptedTopic)
		defer publisher.Close()
	}

	svc := &service{
		log:         log,
		publisher:   publisher,
		failRate:    failRate(),
		unavailable: unavailableItems(),
		accepted:    make(map[string]bool),
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(otelfiber.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/menu", svc.menu)
	app.Post("/orders", svc.createOrder)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down orders-remote...")
		_ = app.Shutdown()
		cancel()
	}()

	log.Info("orders-remote listening",
		zap.String("addr", listenAddr()),
		zap.Float64("fail_rate", svc.failRate),
	)
	if err := app.Listen(listenAddr()); err != nil {
		log.Error("server error", zap.Error(err))
	}
}
