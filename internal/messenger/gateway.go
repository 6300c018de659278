package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Gateway talks to the WhatsApp HTTP gateway that owns the device session.
type Gateway struct {
	baseURL string
	token   string
	client  *http.Client
}

type GatewayConfig struct {
	BaseURL string
	Token   string
}

func NewGateway(cfg GatewayConfig) *Gateway {
	return &Gateway{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (g *Gateway) Resolve(ctx context.Context, phone string) (Recipient, error) {
	endpoint := g.baseURL + "/v1/contacts/" + url.PathEscape(phone)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build resolve request: %w", err)
	}
	g.auth(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", phone, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			RecipientID string `json:"recipient_id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("decode resolve response: %w", err)
		}
		if body.RecipientID == "" {
			return "", ErrNotOnChannel
		}
		return Recipient(body.RecipientID), nil
	case http.StatusNotFound:
		return "", ErrNotOnChannel
	default:
		return "", fmt.Errorf("resolve %s: gateway status %d", phone, resp.StatusCode)
	}
}

func (g *Gateway) Send(ctx context.Context, to Recipient, text string) error {
	payload, err := json.Marshal(map[string]string{
		"recipient_id": string(to),
		"text":         text,
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	g.auth(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send to %s: gateway status %d", to, resp.StatusCode)
	}
	return nil
}

// Ping reports whether the gateway session is up, for the health endpoint.
func (g *Gateway) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/session", nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	g.auth(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("ping gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping gateway: status %d", resp.StatusCode)
	}
	return nil
}

func (g *Gateway) auth(req *http.Request) {
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
}
