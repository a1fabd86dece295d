// Package whatsapp implements outbound delivery via a self-hosted WhatsApp
// gateway (gowa-compatible HTTP API). Credentials are resolved per tenant
// from the tenant registry's decrypted channel binding, never from process
// config — a multi-tenant deployment binds a distinct gateway account (and
// often a distinct base URL) to each tenant.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"movingintake/platform/phone"
)

// GatewayCreds is the shape decrypted from a tenant's whatsapp channel
// binding.
type GatewayCreds struct {
	BaseURL  string
	APIKey   string
	DeviceID string
}

// CredsFromMap extracts GatewayCreds from the generic decrypted credential
// map the tenant registry returns.
func CredsFromMap(m map[string]any) GatewayCreds {
	str := func(key string) string {
		v, _ := m[key].(string)
		return v
	}
	return GatewayCreds{
		BaseURL:  strings.TrimRight(str("base_url"), "/"),
		APIKey:   str("api_key"),
		DeviceID: str("device_id"),
	}
}

// Client is a stateless HTTP client shared across all tenants; every call
// carries the tenant's own gateway credentials explicitly.
type Client struct {
	http *http.Client
}

// NewClient builds a Client with a bounded request timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

type gowaRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Send delivers a plain-text message through the tenant's bound gateway.
// Quick-reply buttons have no gowa equivalent, so they are appended as a
// numbered text menu — the engine's button payloads remain the same tokens
// the intent detector expects back.
func (c *Client) Send(ctx context.Context, creds GatewayCreds, chatID, text string, buttons []ButtonSpec) error {
	if creds.BaseURL == "" {
		return fmt.Errorf("whatsapp gateway not configured for tenant")
	}

	fullText := text
	if len(buttons) > 0 {
		fullText += "\n\n" + renderButtonMenu(buttons)
	}

	normalized := strings.TrimPrefix(phone.NormalizeE164(chatID), "+")
	payload := gowaRequest{Phone: normalized, Message: fullText}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/send/message", creds.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if creds.APIKey != "" {
		req.Header.Set("Authorization", formatAuthHeader(creds.APIKey))
	}
	if creds.DeviceID != "" {
		req.Header.Set("X-Device-Id", creds.DeviceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return nil
}

// ButtonSpec is a provider-agnostic quick-reply button.
type ButtonSpec struct {
	Payload string
	Label   string
}

func renderButtonMenu(buttons []ButtonSpec) string {
	var b strings.Builder
	for i, btn := range buttons {
		fmt.Fprintf(&b, "%d. %s\n", i+1, btn.Label)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAuthHeader(apiKey string) string {
	if strings.HasPrefix(strings.ToLower(apiKey), "basic ") {
		return apiKey
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(apiKey))
	return "Basic " + encoded
}
