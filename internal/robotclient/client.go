// Package robotclient is the safeguard-robot's click/listen client
// library: it subscribes to /ws/listen and issues compensating /api/click
// requests against the public HTTP/WebSocket surface.
package robotclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/clickplanet/clickplanet/internal/clickpb"
	"github.com/clickplanet/clickplanet/internal/model"
)

// Client talks to a single ClickPlanet server instance over HTTP/WS.
type Client struct {
	baseHTTPURL string
	baseWSURL   string
	httpClient  *http.Client
}

// New builds a Client targeting host:port. unsecure selects ws/http
// instead of wss/https, mirroring the --unsecure CLI flag.
func New(host string, port int, unsecure bool) *Client {
	httpScheme, wsScheme := "https", "wss"
	if unsecure {
		httpScheme, wsScheme = "http", "ws"
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	return &Client{
		baseHTTPURL: fmt.Sprintf("%s://%s", httpScheme, addr),
		baseWSURL:   fmt.Sprintf("%s://%s", wsScheme, addr),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

type envelope struct {
	Data string `json:"data"`
}

// Click issues POST /api/click for tileID/countryID.
func (c *Client) Click(ctx context.Context, tileID int32, countryID string) (model.ClickResponse, error) {
	payload := clickpb.MarshalClickRequest(model.ClickRequest{TileID: tileID, CountryID: countryID})
	body, err := json.Marshal(envelope{Data: base64.StdEncoding.EncodeToString(payload)})
	if err != nil {
		return model.ClickResponse{}, fmt.Errorf("robotclient: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseHTTPURL+"/api/click", bytes.NewReader(body))
	if err != nil {
		return model.ClickResponse{}, fmt.Errorf("robotclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.ClickResponse{}, fmt.Errorf("robotclient: click request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.ClickResponse{}, fmt.Errorf("robotclient: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.ClickResponse{}, fmt.Errorf("robotclient: click rejected: status %d: %s", resp.StatusCode, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return model.ClickResponse{}, fmt.Errorf("robotclient: decode envelope: %w", err)
	}
	respPayload, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return model.ClickResponse{}, fmt.Errorf("robotclient: decode base64: %w", err)
	}
	return clickpb.UnmarshalClickResponse(respPayload)
}

// Listen connects to /ws/listen and delivers each UpdateNotification to
// fn until ctx is canceled. It reconnects on transient errors with a
// capped exponential backoff and never gives up: the robot is expected
// to run indefinitely.
func (c *Client) Listen(ctx context.Context, fn func(model.UpdateNotification)) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		err := c.listenOnce(ctx, fn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
	}
}

func (c *Client) listenOnce(ctx context.Context, fn func(model.UpdateNotification)) error {
	conn, _, err := websocket.Dial(ctx, c.baseWSURL+"/ws/listen", nil)
	if err != nil {
		return fmt.Errorf("robotclient: dial: %w", err)
	}
	defer conn.CloseNow()

	for {
		_, frame, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("robotclient: read: %w", err)
		}
		n, err := clickpb.UnmarshalUpdateNotification(frame)
		if err != nil {
			continue
		}
		fn(n)
	}
}
