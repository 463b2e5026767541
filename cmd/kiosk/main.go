package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"coffee-kiosk/internal/connectivity"
	"coffee-kiosk/internal/order"
	"coffee-kiosk/internal/pending"
	"coffee-kiosk/internal/remote"
	"coffee-kiosk/internal/screen"
	"coffee-kiosk/internal/telemetry"
)

func remoteAddr() string {
	if a := os.Getenv("KIOSK_REMOTE_ADDR"); a != "" {
		return a
	}
	return "http://localhost:9090"
}

func listenAddr() string {
	if a := os.Getenv("KIOSK_ADDR"); a != "" {
		return a
	}
	return ":8080"
}

func dataDir() string {
	if d := os.Getenv("KIOSK_DATA_DIR"); d != "" {
		return d
	}
	return "data"
}

func probeInterval() time.Duration {
	if v := os.Getenv("KIOSK_PROBE_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return 3 * time.Second
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, tracer, meter, shutdown, err := telemetry.Setup(ctx, "kiosk")
	if err != nil {
		panic("failed to initialize telemetry: " + err.Error())
	}
	defer shutdown(context.Background())

	metrics, err := telemetry.NewMetrics(meter)
	if err != nil {
		panic("failed to create metrics: " + err.Error())
	}

	dir := dataDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		log.Fatal("failed to create data dir", zap.String("dir", dir), zap.Error(err))
	}
	store := pending.NewFileStore(dir, log)

	addr := remoteAddr()
	api := remote.NewClient(addr, log)

	monitor := connectivity.NewProber(addr+"/health", probeInterval(), log)
	monitor.Start(ctx)
	defer monitor.Stop()

	repo := order.NewRepository(api, store, log, tracer)
	create := order.NewCreateUseCase(repo, metrics, log, tracer)
	retry := order.NewRetryUseCase(repo, metrics, log, tracer)

	vm := screen.NewMenuListViewModel(repo, create, retry, monitor, log)
	vm.Start(ctx)
	defer vm.Close()

	// Orders queued before the last shutdown are still on disk; try them as
	// soon as we are up rather than waiting for a connectivity transition.
	go func() {
		if _, err := vm.RetryPending(ctx); err != nil {
			log.Error("startup retry pass failed", zap.Error(err))
		}
	}()

	ctrl := screen.NewController(vm, log)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(otelfiber.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "connectivity": monitor.State()})
	})
	app.Get("/menu", ctrl.Menu)
	app.Get("/screen", ctrl.Screen)
	app.Post("/screen/alert/dismiss", ctrl.DismissAlert)
	app.Post("/orders", ctrl.Create)
	app.Post("/orders/retry", ctrl.Retry)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down kiosk...")
		_ = app.Shutdown()
		cancel()
	}()

	log.Info("kiosk listening",
		zap.String("addr", listenAddr()),
		zap.String("remote", addr),
		zap.String("data_dir", dir),
	)
	if err := app.Listen(listenAddr()); err != nil {
		log.Error("server error", zap.Error(err))
	}
}
