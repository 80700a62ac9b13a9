package bus

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/loqalabs/loqa-sing/internal/config"
)

// Client wraps NATS connection and JetStream context with minimal helpers.
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	log  *slog.Logger
}

func Connect(ctx context.Context, cfg config.BusConfig, log *slog.Logger) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("no NATS servers configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	options := []nats.Option{
		nats.Name("loqa-sing"),
		nats.Timeout(time.Duration(cfg.ConnectTimeout) * time.Millisecond),
	}

	if cfg.Username != "" || cfg.Password != "" {
		options = append(options, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}
	if cfg.TLSInsecure {
		options = append(options, nats.Secure(&tls.Config{InsecureSkipVerify: true}))
	}

	url := strings.Join(cfg.Servers, ",")
	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	log.Info("connected to NATS", slog.String("servers", url))

	return &Client{
		conn: conn,
		js:   js,
		log:  log,
	}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	c.log.Info("closing NATS connection")
	c.conn.Drain()
	c.conn.Close()
}

func (c *Client) Healthy() bool {
	return c != nil && c.conn != nil && c.conn.Status() == nats.CONNECTED
}

func (c *Client) JetStream() nats.JetStreamContext {
	return c.js
}

func (c *Client) Conn() *nats.Conn {
	return c.conn
}

func (c *Client) Logger() *slog.Logger {
	return c.log
}

// objectStore opens bucket, creating it on first use.
func (c *Client) objectStore(bucket string) (nats.ObjectStore, error) {
	store, err := c.js.ObjectStore(bucket)
	if err == nil {
		return store, nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) && !errors.Is(err, nats.ErrBucketNotFound) {
		return nil, fmt.Errorf("open object store %s: %w", bucket, err)
	}
	store, err = c.js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucket,
		Description: "loqa-sing render artifacts",
	})
	if err != nil {
		return nil, fmt.Errorf("create object store %s: %w", bucket, err)
	}
	return store, nil
}

// PutObject stores data under name in the JetStream object store bucket.
func (c *Client) PutObject(bucket, name string, data []byte) (*nats.ObjectInfo, error) {
	store, err := c.objectStore(bucket)
	if err != nil {
		return nil, err
	}
	info, err := store.PutBytes(name, data)
	if err != nil {
		return nil, fmt.Errorf("put object %s/%s: %w", bucket, name, err)
	}
	return info, nil
}

// GetObject reads an artifact previously stored with PutObject.
func (c *Client) GetObject(bucket, name string) ([]byte, error) {
	store, err := c.js.ObjectStore(bucket)
	if err != nil {
		return nil, fmt.Errorf("open object store %s: %w", bucket, err)
	}
	data, err := store.GetBytes(name)
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, name, err)
	}
	return data, nil
}
