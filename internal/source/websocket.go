package source

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"nhooyr.io/websocket"
)

const (
	dialTimeout = 10 * time.Second
	pingTimeout = 5 * time.Second
)

// WebsocketConfig describes the channel endpoint.
type WebsocketConfig struct {
	// URL is the channel endpoint (ws:// or wss://).
	URL string

	// Token is an opaque bearer token attached to the dial request. The
	// channel's authentication scheme is the server's concern.
	Token string

	// LivenessInterval is how often the connection is pinged. A failed
	// ping marks the channel disconnected and triggers a redial.
	LivenessInterval time.Duration
}

// WebsocketClient implements Channel over a websocket connection. On
// disconnect it redials with capped exponential backoff; messages missed
// while disconnected are gone (at-most-once, nothing is buffered).
type WebsocketClient struct {
	cfg    WebsocketConfig
	logger *slog.Logger
	subs   *subscribers

	mu        sync.RWMutex
	connected bool
}

// NewWebsocketClient creates a client. Run must be called to connect.
func NewWebsocketClient(cfg WebsocketConfig, log *slog.Logger) *WebsocketClient {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for WebsocketClient")
	}
	if cfg.LivenessInterval <= 0 {
		cfg.LivenessInterval = 30 * time.Second
	}

	return &WebsocketClient{
		cfg:    cfg,
		logger: log.With(slog.String("component", "channel_client")),
		subs:   newSubscribers(),
	}
}

// Subscribe registers a handler for a channel event.
func (c *WebsocketClient) Subscribe(event string, h Handler) func() {
	return c.subs.add(event, h)
}

// Connected reports whether the channel is currently live.
func (c *WebsocketClient) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *WebsocketClient) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// Run connects to the channel and keeps the session alive until the
// context is canceled, redialing on every disconnect. It returns the
// context's error on shutdown.
func (c *WebsocketClient) Run(ctx context.Context) error {
	for {
		conn, err := c.dial(ctx)
		if err != nil {
			return err
		}

		c.setConnected(true)
		c.logger.Info("channel connected", slog.String("url", c.cfg.URL))

		err = c.session(ctx, conn)
		c.setConnected(false)

		if ctx.Err() != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "shutting down")
			return ctx.Err()
		}

		c.logger.Warn("channel disconnected, redialing", slog.Any("error", err))
		conn.CloseNow()
	}
}

// dial connects with capped exponential backoff, retrying until the
// context is canceled.
func (c *WebsocketClient) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	var conn *websocket.Conn
	backoff := retry.WithCappedDuration(30*time.Second, retry.NewExponential(time.Second))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()

		ws, _, err := websocket.Dial(dialCtx, c.cfg.URL, &websocket.DialOptions{HTTPHeader: header})
		if err != nil {
			c.logger.Warn("channel dial failed, backing off", slog.Any("error", err))
			return retry.RetryableError(err)
		}
		conn = ws
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// session reads frames and dispatches them to subscribers until the
// connection breaks or the context is canceled. A liveness goroutine pings
// on a fixed interval; a failed ping tears the connection down so the read
// loop returns and Run redials.
func (c *WebsocketClient) session(ctx context.Context, conn *websocket.Conn) error {
	livenessDone := make(chan struct{})
	defer close(livenessDone)

	go func() {
		ticker := time.NewTicker(c.cfg.LivenessInterval)
		defer ticker.Stop()

		for {
			select {
			case <-livenessDone:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
				err := conn.Ping(pingCtx)
				cancel()
				if err != nil {
					c.logger.Warn("channel liveness check failed", slog.Any("error", err))
					conn.CloseNow()
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Warn("dropping malformed channel frame", slog.Any("error", err))
			continue
		}
		if f.Event == "" {
			c.logger.Debug("dropping channel frame without event name")
			continue
		}

		c.subs.dispatch(f.Event, f.Payload)
	}
}
