package influxdb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/rfsocket-core/internal/infrastructure/config"
)

var (
	ErrDisabled         = errors.New("influxdb: disabled in configuration")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrNotConnected     = errors.New("influxdb: not connected")
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	fallbackBatchSize     = 100
	fallbackFlushInterval = 10 // seconds
)

// CommandMeasurement is the measurement written for every transmission.
const CommandMeasurement = "socket_commands"

// Client records socket command points through the non-blocking,
// batching write API. Safe for concurrent use.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	mu        sync.RWMutex
	connected bool
	onError   func(err error)
}

// Connect pings the server and opens a batching write API for the
// configured org and bucket. It returns ErrDisabled when cfg.Enabled is
// false.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(positiveOr(cfg.BatchSize, fallbackBatchSize))).                     // #nosec G115 -- positive
		SetFlushInterval(uint(positiveOr(cfg.FlushInterval, fallbackFlushInterval)) * 1000) // #nosec G115 -- positive, ms
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	if err := ping(context.Background(), client, connectTimeout); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		client:    client,
		writeAPI:  client.WriteAPI(cfg.Org, cfg.Bucket),
		connected: true,
	}
	go c.forwardWriteErrors(c.writeAPI.Errors())
	return c, nil
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func ping(ctx context.Context, client influxdb2.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	switch {
	case err != nil:
		return fmt.Errorf("ping: %w", err)
	case !healthy:
		return errors.New("server not healthy")
	}
	return nil
}

// forwardWriteErrors hands async write failures to the onError callback
// until the write API closes its error channel.
func (c *Client) forwardWriteErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		fn := c.onError
		c.mu.RUnlock()
		if fn != nil {
			fn(err)
		}
	}
}

// SetOnError installs the callback for async write failures.
func (c *Client) SetOnError(fn func(err error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := ping(ctx, c.client, pingTimeout); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// Flush sends buffered points now. It is a no-op after Close.
func (c *Client) Flush() {
	if c.writeAPI != nil && c.IsConnected() {
		c.writeAPI.Flush()
	}
}

// Close flushes pending points and shuts the client down.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.writeAPI.Flush()
	c.client.Close()
	return nil
}

// WriteCommandMetric records one transmission attempt. socketID is "all"
// for the all-off command.
//
// Tags: socket_id, action, success. Fields: code, bits, repeat, duration_ms.
//
// WriteCommandMetric satisfies events.CommandMetricWriter.
func (c *Client) WriteCommandMetric(socketID, action string, success bool, code, bits, repeat int, durationMS int64) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		CommandMeasurement,
		map[string]string{
			"socket_id": socketID,
			"action":    action,
			"success":   strconv.FormatBool(success),
		},
		map[string]any{
			"code":        code,
			"bits":        bits,
			"repeat":      repeat,
			"duration_ms": durationMS,
		},
		time.Now(),
	))
}
