package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"coffee-kiosk/internal/models"
	"coffee-kiosk/internal/telemetry"
)

// Walk-up customer simulator: fetches the kiosk's menu once, then places a
// random cart on an interval. Useful for watching the queue fill and drain
// while the remote service is toggled on and off.

func kioskAddr() string {
	if v := os.Getenv("KIOSK_API_ADDR"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, _, _, shutdown, err := telemetry.Setup(ctx, "kiosk-sim")
	if err != nil {
		panic("failed to initialize telemetry: " + err.Error())
	}
	defer shutdown(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down kiosk-sim...")
		cancel()
	}()

	interval := 2 * time.Second
	if v := os.Getenv("INTERVAL_MS"); v != "" {
		if ms, err := time.ParseDuration(v + "ms"); err == nil {
			interval = ms
		}
	}

	addr := kioskAddr()
	client := &http.Client{Timeout: 5 * time.Second}

	menu := fetchMenu(ctx, client, addr, log)
	if len(menu) == 0 {
		log.Warn("kiosk returned no menu yet, using item IDs blind")
		menu = []models.MenuItem{
			{ID: "espresso", Name: "Espresso", PriceCents: 350},
			{ID: "latte", Name: "Latte", PriceCents: 525},
		}
	}

	log.Info("kiosk-sim started",
		zap.String("target", addr),
		zap.Duration("interval", interval),
		zap.Int("menu_items", len(menu)),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			placeOrder(ctx, client, addr, menu, log)
		}
	}
}

func fetchMenu(ctx context.Context, client *http.Client, addr string, log *zap.Logger) []models.MenuItem {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/menu", nil)
	if err != nil {
		return nil
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Warn("menu fetch failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	var screen struct {
		Menu []models.MenuItem `json:"menu"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&screen); err != nil {
		log.Warn("menu decode failed", zap.Error(err))
		return nil
	}
	return screen.Menu
}

func placeOrder(ctx context.Context, client *http.Client, addr string, menu []models.MenuItem, log *zap.Logger) {
	n := 1 + rand.IntN(3)
	items := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		item := menu[rand.IntN(len(menu))]
		items = append(items, map[string]any{
			"menu_item_id": item.ID,
			"name":         item.Name,
			"price_cents":  item.PriceCents,
			"quantity":     1 + rand.IntN(2),
		})
	}

	body, _ := json.Marshal(map[string]any{"items": items})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/orders", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		log.Warn("request failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	status := "submitted"
	switch {
	case resp.StatusCode == http.StatusAccepted:
		status = "queued"
	case resp.StatusCode == http.StatusUnprocessableEntity:
		status = "rejected"
	case resp.StatusCode >= 500:
		status = "failed"
	}

	log.Info("order placed",
		zap.String("status", status),
		zap.Int("http_status", resp.StatusCode),
		zap.Int("items", n),
	)
}
