package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WebhookConfig configures a WebhookDeliverer.
type WebhookConfig struct {
	URL         string
	Timeout     time.Duration
	RatePerSec  float64
	Burst       int
	MaxFailures uint32
	OpenFor     time.Duration
}

// WebhookDeliverer POSTs notifications as JSON. Calls are rate limited and go
// through a circuit breaker so a dead endpoint is not hammered every tick.
type WebhookDeliverer struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[int]
	logger  *zap.Logger
}

func NewWebhookDeliverer(cfg WebhookConfig, logger *zap.Logger) *WebhookDeliverer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = time.Minute
	}

	d := &WebhookDeliverer{
		url:     cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		logger:  logger,
	}
	d.breaker = gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        "webhook",
		MaxRequests: 1,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Webhook circuit state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return d
}

func (d *WebhookDeliverer) Name() string { return "webhook" }

// State exposes the breaker state, mainly for tests and health output.
func (d *WebhookDeliverer) State() gobreaker.State { return d.breaker.State() }

func (d *WebhookDeliverer) Deliver(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err = d.breaker.Execute(func() (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
		if err != nil {
			return 0, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "medreminder")

		resp, err := d.client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 300 {
			return resp.StatusCode, fmt.Errorf("webhook returned %s", resp.Status)
		}
		return resp.StatusCode, nil
	})
	return err
}
