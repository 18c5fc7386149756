package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go-mrz-verifier/models"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

// ResultNotifier pushes verification outcomes to the capture backend.
// Delivery is best effort; the scanning client never waits on it.
type ResultNotifier interface {
	NotifyResult(ctx context.Context, result models.ScanResult) error
}

type WebhookNotifier struct {
	httpClient *resty.Client
	cb         *gobreaker.CircuitBreaker
	url        string
}

const webhookTimeout = 10 * time.Second

func NewWebhookNotifier(url string) *WebhookNotifier {
	httpClient := resty.New().SetTimeout(webhookTimeout)

	cbSettings := gobreaker.Settings{
		Name:        "result-webhook",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Webhook circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &WebhookNotifier{
		httpClient: httpClient,
		cb:         gobreaker.NewCircuitBreaker(cbSettings),
		url:        strings.TrimRight(url, "/"),
	}
}

func (c *WebhookNotifier) NotifyResult(ctx context.Context, result models.ScanResult) error {
	_, err := c.cb.Execute(func() (any, error) {
		resp, err := c.httpClient.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(result).
			Post(c.url)
		if err != nil {
			return nil, fmt.Errorf("failed to deliver result webhook: %w", err)
		}

		if resp.StatusCode() >= 300 {
			return nil, fmt.Errorf("result webhook rejected with status %d", resp.StatusCode())
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	slog.Debug("Result webhook delivered", "session_id", result.SessionId, "valid", result.Valid)
	return nil
}
