package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"coffee-kiosk/internal/models"
)

// Client talks to the remote ordering service over HTTP and classifies every
// failure into the package error taxonomy: transport errors become
// ErrUnreachable, 5xx and 429 become *TransientError, any other non-2xx
// becomes *RejectedError.
type Client struct {
	baseURL    string
	http       *http.Client
	log        *zap.Logger
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

func NewClient(baseURL string, log *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 5 * time.Second},
		log:        log,
		tracer:     otel.Tracer("remote/client"),
		propagator: propagation.TraceContext{},
	}
}

func (c *Client) CreateOrder(ctx context.Context, order models.Order) error {
	ctx, span := c.tracer.Start(ctx, "CreateOrder",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("order.id", order.ID),
			attribute.Int64("order.total_cents", order.TotalCents),
		),
	)
	defer span.End()

	body, err := json.Marshal(order)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode < 300:
		span.SetStatus(codes.Ok, "")
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		reason := readReason(resp)
		span.SetStatus(codes.Error, reason)
		return &TransientError{Reason: reason}
	default:
		reason := readReason(resp)
		span.SetStatus(codes.Error, reason)
		return &RejectedError{Reason: reason}
	}
}

func (c *Client) GetMenu(ctx context.Context) ([]models.MenuItem, error) {
	ctx, span := c.tracer.Start(ctx, "GetMenu", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/menu", nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		reason := readReason(resp)
		span.SetStatus(codes.Error, reason)
		return nil, &TransientError{Reason: reason}
	}

	var menu []models.MenuItem
	if err := json.NewDecoder(resp.Body).Decode(&menu); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("decode menu: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return menu, nil
}

func readReason(resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return body.Error
	}
	return http.StatusText(resp.StatusCode)
}
