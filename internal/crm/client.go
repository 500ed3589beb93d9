// Package crm pushes attribution summaries to HubSpot contact properties.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"utmlens/internal/config"
	"utmlens/internal/pkg/telemetry"
)

const DefaultBaseURL = "https://api.hubapi.com"

// ClientConfig configures the HubSpot client. An empty Token disables it.
type ClientConfig struct {
	BaseURL           string
	Token             string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// Client talks to the HubSpot CRM v3 objects API.
type Client struct {
	client  *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  logger,
	}
}

// NewClientFromConfig builds the HubSpot client from application config.
func NewClientFromConfig(cfg *config.Config, logger *slog.Logger) *Client {
	return NewClient(ClientConfig{
		BaseURL:           cfg.HubSpotBaseURL,
		Token:             cfg.HubSpotToken,
		RequestsPerSecond: cfg.HubSpotRequestsPerSecond,
		Timeout:           cfg.GetHubSpotTimeout(),
	}, logger)
}

// Enabled reports whether an access token is configured.
func (c *Client) Enabled() bool {
	return c.token != ""
}

// APIError is a non-2xx response from HubSpot.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hubspot returned status %d: %s", e.StatusCode, e.Body)
}

// UpdateContact sets properties on a HubSpot contact.
func (c *Client) UpdateContact(ctx context.Context, contactID string, props Properties) error {
	if !c.Enabled() {
		return fmt.Errorf("hubspot client is not configured")
	}
	if contactID == "" {
		return fmt.Errorf("contact ID is required")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(map[string]Properties{"properties": props})
	if err != nil {
		return fmt.Errorf("failed to marshal contact properties: %w", err)
	}

	endpoint := fmt.Sprintf("%s/crm/v3/objects/contacts/%s", c.baseURL, url.PathEscape(contactID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		telemetry.CRMRequestDuration.WithLabelValues("network_error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("failed to update contact: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		telemetry.CRMRequestDuration.WithLabelValues(fmt.Sprintf("error_%d", resp.StatusCode)).Observe(duration.Seconds())
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	telemetry.CRMRequestDuration.WithLabelValues("success").Observe(duration.Seconds())

	c.logger.Debug("Updated HubSpot contact",
		slog.String("contact_id", contactID),
		slog.Duration("duration", duration),
		slog.Int("properties", len(props)))
	return nil
}
