package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var (
	ErrNotConnected = errors.New("MQTT client is not connected")
	ErrInvalidURL   = errors.New("invalid MQTT server URL")
)

// Client wraps a paho client with context-aware operations.
type Client struct {
	client mqtt.Client

	// done is closed by Disconnect to stop the connect loop; stopped is
	// closed when the loop has exited.
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// Config holds MQTT client configuration
type Config struct {
	ServerURL         string        `mapstructure:"server"`
	ClientID          string        `mapstructure:"client-id"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	MaxRetries        int           `mapstructure:"max-retries"`         // Maximum number of connection retries (0 = infinite)
	InitialRetryDelay time.Duration `mapstructure:"initial-retry-delay"` // Initial delay between retries
	MaxRetryDelay     time.Duration `mapstructure:"max-retry-delay"`     // Maximum delay between retries
	OnConnect         func(*Client) `mapstructure:"-"`                   // Callback to execute when connected
}

// NewClient creates a new MQTT client with the given configuration.
// The client connects asynchronously and retries with exponential backoff
// if the initial connection fails.
func NewClient(config Config) (*Client, error) {
	parsedURL, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	switch parsedURL.Scheme {
	case "mqtt", "mqtts", "tcp", "ssl", "tls", "ws", "wss":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, parsedURL.Scheme)
	}

	initialDelay := config.InitialRetryDelay
	if initialDelay == 0 {
		initialDelay = time.Second
	}
	maxDelay := config.MaxRetryDelay
	if maxDelay == 0 {
		maxDelay = 30 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.ServerURL)
	opts.SetClientID(config.ClientID)
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(maxDelay)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v", err)
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Printf("connected to MQTT broker at %s", config.ServerURL)

		if config.OnConnect != nil {
			config.OnConnect(&Client{client: client})
		}
	})

	client := mqtt.NewClient(opts)
	c := &Client{
		client:  client,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	go c.connect(config.ServerURL, config.MaxRetries, initialDelay, maxDelay)

	return c, nil
}

// connect retries the initial connection with exponential backoff until it
// succeeds, MaxRetries is reached, or Disconnect is called.
func (c *Client) connect(server string, maxRetries int, delay, maxDelay time.Duration) {
	defer close(c.stopped)

	attempt := 0
	for {
		token := c.client.Connect()
		select {
		case <-token.Done():
		case <-c.done:
			// the attempt in flight is bounded by the connect timeout
			<-token.Done()
		}

		if token.Error() == nil {
			select {
			case <-c.done:
				// Disconnect won the race while we were connecting
				c.client.Disconnect(0)
			default:
			}
			return
		}

		select {
		case <-c.done:
			return
		default:
		}

		attempt++
		if maxRetries > 0 && attempt >= maxRetries {
			log.Printf("failed to connect to MQTT broker %s after %d attempts, giving up: %v", server, attempt, token.Error())
			return
		}

		log.Printf("failed to connect to MQTT broker %s (attempt %d): %v. Retrying in %v...", server, attempt, token.Error(), delay)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-c.done:
			timer.Stop()
			return
		}

		delay = delay * 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// Publish publishes a message and waits until the broker acknowledges it or
// ctx is done.
func (c *Client) Publish(ctx context.Context, topic string, qos byte, retained bool, payload interface{}) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if err := wait(ctx, c.client.Publish(topic, qos, retained, payload)); err != nil {
		return fmt.Errorf("failed to publish MQTT message to %s: %w", topic, err)
	}
	return nil
}

// Subscribe subscribes to a topic with the given message handler.
func (c *Client) Subscribe(ctx context.Context, topic string, qos byte, handler func(topic string, payload []byte)) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	wrappedHandler := func(client mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	}

	if err := wait(ctx, c.client.Subscribe(topic, qos, wrappedHandler)); err != nil {
		return fmt.Errorf("failed to subscribe to MQTT topic %s: %w", topic, err)
	}
	return nil
}

// Unsubscribe removes the subscriptions for the given topics.
func (c *Client) Unsubscribe(ctx context.Context, topics ...string) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if err := wait(ctx, c.client.Unsubscribe(topics...)); err != nil {
		return fmt.Errorf("failed to unsubscribe from MQTT topics %v: %w", topics, err)
	}
	return nil
}

// IsConnected returns true if the client is connected to the MQTT broker
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

// Disconnect stops any pending connection attempts and disconnects from the
// MQTT broker. It is safe to call more than once.
func (c *Client) Disconnect(quiesce uint) {
	if c.done != nil {
		c.stopOnce.Do(func() { close(c.done) })
	}
	if c.IsConnected() {
		c.client.Disconnect(quiesce)
		log.Printf("disconnected from MQTT broker")
	}
}

func wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
