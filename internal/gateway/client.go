package gateway

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"

	"gatewayetl/internal/model"
)

// Client talks to the gateway's admin HTTP API.
type Client struct {
	http *resty.Client
}

// NewClient builds a gateway client for the given base address, authenticating
// every request with the gateway password.
func NewClient(baseURL, password string) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(password).
		SetHeader("Content-Type", "application/json")

	return &Client{http: http}
}

type paymentLogRequest struct {
	FederationID   string   `json:"federation_id"`
	EndPosition    *string  `json:"end_position"`
	PaginationSize uint64   `json:"pagination_size"`
	EventKinds     []string `json:"event_kinds"`
}

type paymentSummaryRequest struct {
	StartMillis int64 `json:"start_millis"`
	EndMillis   int64 `json:"end_millis"`
}

// Info returns the gateway's self-description, including the federations it
// serves.
func (c *Client) Info(ctx context.Context) (model.GatewayInfo, error) {
	var info model.GatewayInfo
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&info).
		Post("/v1/info")
	if err != nil {
		return model.GatewayInfo{}, fmt.Errorf("gateway info: %w", err)
	}
	if resp.IsError() {
		return model.GatewayInfo{}, fmt.Errorf("gateway info: status %s", resp.Status())
	}
	return info, nil
}

// PaymentLog fetches the full payment event log for one federation, ordered
// newest-first by the gateway.
func (c *Client) PaymentLog(ctx context.Context, federationID string) ([]model.LogEntry, error) {
	var entries []model.LogEntry
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(paymentLogRequest{
			FederationID:   federationID,
			EndPosition:    nil,
			PaginationSize: math.MaxInt64,
			EventKinds:     []string{},
		}).
		SetResult(&entries).
		Post("/v1/payment_log")
	if err != nil {
		return nil, fmt.Errorf("gateway payment log: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("gateway payment log: status %s", resp.Status())
	}
	return entries, nil
}

// PaymentSummary returns the gateway's rolling latency/fee summary for the
// given window.
func (c *Client) PaymentSummary(ctx context.Context, start, end time.Time) (model.PaymentSummary, error) {
	var summary model.PaymentSummary
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(paymentSummaryRequest{
			StartMillis: start.UnixMilli(),
			EndMillis:   end.UnixMilli(),
		}).
		SetResult(&summary).
		Post("/v1/payment_summary")
	if err != nil {
		return model.PaymentSummary{}, fmt.Errorf("gateway payment summary: %w", err)
	}
	if resp.IsError() {
		return model.PaymentSummary{}, fmt.Errorf("gateway payment summary: status %s", resp.Status())
	}
	return summary, nil
}
