package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// PushMessage is a provider-neutral push notification.
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

// Pusher delivers a push message to device tokens. Implementations ignore
// tokens that belong to another provider.
type Pusher interface {
	Name() string
	Send(ctx context.Context, tokens []string, msg PushMessage) error
}

// ExpoPushClient sends push notifications via Expo's Push API. Expo tokens
// look like "ExponentPushToken[xxx]" and need no server credentials.
type ExpoPushClient struct {
	httpClient *http.Client
	endpoint   string
}

// ExpoPushMessage is the payload for Expo's Push API.
type ExpoPushMessage struct {
	To       []string          `json:"to"`
	Title    string            `json:"title,omitempty"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	Priority string            `json:"priority,omitempty"`
}

// ExpoPushResponse is the response from Expo's API.
type ExpoPushResponse struct {
	Data []ExpoPushTicket `json:"data"`
}

type ExpoPushTicket struct {
	Status  string `json:"status"` // "ok" or "error"
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"` // "DeviceNotRegistered", "MessageTooBig", etc.
	} `json:"details,omitempty"`
}

const (
	expoPushURL = "https://exp.host/--/api/v2/push/send"
	// expoBatchLimit is the most messages Expo accepts per request.
	expoBatchLimit = 100
)

func NewExpoPushClient() *ExpoPushClient {
	return NewExpoPushClientWithEndpoint(expoPushURL)
}

// NewExpoPushClientWithEndpoint points the client at another push endpoint.
func NewExpoPushClientWithEndpoint(endpoint string) *ExpoPushClient {
	return &ExpoPushClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   endpoint,
	}
}

func (c *ExpoPushClient) Name() string { return "expo" }

// IsExpoToken reports whether a token was issued by Expo.
func IsExpoToken(token string) bool {
	return strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")
}

// Send posts Expo tokens in chunks of expoBatchLimit. Tokens from other
// providers are skipped. Per-ticket failures are logged, not returned.
func (c *ExpoPushClient) Send(ctx context.Context, tokens []string, msg PushMessage) error {
	expo := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if IsExpoToken(token) {
			expo = append(expo, token)
		}
	}

	for start := 0; start < len(expo); start += expoBatchLimit {
		end := min(start+expoBatchLimit, len(expo))
		if err := c.sendChunk(ctx, expo[start:end], msg); err != nil {
			return err
		}
	}
	return nil
}

func (c *ExpoPushClient) sendChunk(ctx context.Context, tokens []string, msg PushMessage) error {
	payload, err := json.Marshal(ExpoPushMessage{
		To:       tokens,
		Title:    msg.Title,
		Body:     msg.Body,
		Data:     msg.Data,
		Sound:    "default",
		Priority: "high",
	})
	if err != nil {
		return fmt.Errorf("marshal expo message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build expo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("expo push: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read expo response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expo push: status=%d body=%s", resp.StatusCode, body)
	}

	var tickets ExpoPushResponse
	if err := json.Unmarshal(body, &tickets); err != nil {
		// Accepted; only the tickets are unreadable.
		log.Printf("[ExpoPush] Unreadable tickets: %v", err)
		return nil
	}

	failed := 0
	for i, t := range tickets.Data {
		if t.Status == "ok" {
			continue
		}
		failed++
		if i < len(tokens) {
			log.Printf("[ExpoPush] Ticket error: token=%s msg=%s detail=%s", tokens[i], t.Message, t.Details.Error)
		}
	}
	log.Printf("[ExpoPush] Send OK: tokens=%d failed=%d", len(tokens), failed)
	return nil
}
