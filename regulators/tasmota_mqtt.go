package regulators

import (
	"context"
	"fmt"
	"log"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/larsks/powerhal/internal/mqtt"
	"github.com/larsks/powerhal/regulator"
)

// Publisher is the subset of an MQTT client used by TasmotaMQTT.
type Publisher interface {
	Publish(ctx context.Context, topic string, qos byte, retained bool, payload interface{}) error
	Subscribe(ctx context.Context, topic string, qos byte, handler func(topic string, payload []byte)) error
	Unsubscribe(ctx context.Context, topics ...string) error
}

// TasmotaMQTTOptions represents tasmota-mqtt driver configuration
type TasmotaMQTTOptions struct {
	Server   string        `mapstructure:"server"`
	ClientID string        `mapstructure:"client-id"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Topic    string        `mapstructure:"topic"`
	Relay    int           `mapstructure:"relay"`
	Confirm  bool          `mapstructure:"confirm"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TasmotaMQTTFactory implements Factory for Tasmota relays reached through
// an MQTT broker
type TasmotaMQTTFactory struct{}

// Create creates a new tasmota-mqtt regulator and starts connecting to the
// broker in the background
func (f *TasmotaMQTTFactory) Create(name string, options map[string]any) (regulator.Regulator, error) {
	opts, err := f.parseConfig(options)
	if err != nil {
		return nil, err
	}

	clientID := opts.ClientID
	if clientID == "" {
		clientID = "powerhal-" + name
	}

	client, err := mqtt.NewClient(mqtt.Config{
		ServerURL: opts.Server,
		ClientID:  clientID,
		Username:  opts.Username,
		Password:  opts.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT client for %s: %w", name, err)
	}

	reg := NewTasmotaMQTT(name, client, *opts)
	reg.closer = func() error {
		client.Disconnect(250)
		return nil
	}
	return reg, nil
}

// ValidateConfig validates tasmota-mqtt options
func (f *TasmotaMQTTFactory) ValidateConfig(options map[string]any) error {
	_, err := f.parseConfig(options)
	return err
}

func (f *TasmotaMQTTFactory) parseConfig(options map[string]any) (*TasmotaMQTTOptions, error) {
	opts := &TasmotaMQTTOptions{}
	if err := decodeOptions(options, opts); err != nil {
		return nil, fmt.Errorf("failed to parse tasmota-mqtt options: %w", err)
	}

	if opts.Server == "" {
		return nil, fmt.Errorf("tasmota-mqtt: %w", ErrMissingAddress)
	}
	if opts.Topic == "" {
		return nil, fmt.Errorf("tasmota-mqtt: %w", ErrMissingTopic)
	}
	if strings.ContainsAny(opts.Topic, "+#") {
		return nil, fmt.Errorf("%w: topic %q must not contain wildcards", ErrInvalidOptions, opts.Topic)
	}
	if opts.Relay < 0 || opts.Relay > 32 {
		return nil, fmt.Errorf("%w: relay must be between 0 and 32, got %d", ErrInvalidOptions, opts.Relay)
	}

	return opts, nil
}

// TasmotaMQTT is a regulator switched by a relay on a Tasmota device,
// controlled by publishing to the device's command topic. With confirmation
// enabled, each transition waits for the device to report the new state on
// its stat topic.
type TasmotaMQTT struct {
	name    string
	client  Publisher
	topic   string
	relay   int
	confirm bool
	timeout time.Duration
	closer  func() error
	mutex   sync.Mutex
}

var (
	_ regulator.Regulator = (*TasmotaMQTT)(nil)
	_ regulator.ErrorType = (*TasmotaMQTT)(nil)
)

// NewTasmotaMQTT creates a new tasmota-mqtt regulator using client
func NewTasmotaMQTT(name string, client Publisher, opts TasmotaMQTTOptions) *TasmotaMQTT {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &TasmotaMQTT{
		name:    name,
		client:  client,
		topic:   opts.Topic,
		relay:   opts.Relay,
		confirm: opts.Confirm,
		timeout: timeout,
	}
}

// Enable switches the relay on
func (t *TasmotaMQTT) Enable(ctx context.Context) error {
	log.Printf("enabling regulator %s", t)
	return t.switchPower(ctx, "enable", "ON")
}

// Disable switches the relay off
func (t *TasmotaMQTT) Disable(ctx context.Context) error {
	log.Printf("disabling regulator %s", t)
	return t.switchPower(ctx, "disable", "OFF")
}

func (t *TasmotaMQTT) ErrorType() reflect.Type {
	return regulator.ErrorTypeOf[*Error]()
}

// Close disconnects from the broker when the regulator owns its client
func (t *TasmotaMQTT) Close() error {
	if t.closer == nil {
		return nil
	}
	closer := t.closer
	t.closer = nil
	return closer()
}

// String returns a string representation of the regulator
func (t *TasmotaMQTT) String() string {
	return fmt.Sprintf("tasmota-mqtt:%s(%s)", t.name, t.commandTopic())
}

func (t *TasmotaMQTT) powerSuffix() string {
	if t.relay == 0 {
		return "POWER"
	}
	return fmt.Sprintf("POWER%d", t.relay)
}

func (t *TasmotaMQTT) commandTopic() string {
	return fmt.Sprintf("cmnd/%s/%s", t.topic, t.powerSuffix())
}

func (t *TasmotaMQTT) statTopic() string {
	return fmt.Sprintf("stat/%s/%s", t.topic, t.powerSuffix())
}

func (t *TasmotaMQTT) switchPower(ctx context.Context, op, want string) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if err := ctx.Err(); err != nil {
		return &Error{Op: op, Regulator: t.name, Err: err}
	}

	if !t.confirm {
		if err := t.client.Publish(ctx, t.commandTopic(), 1, false, want); err != nil {
			return &Error{Op: op, Regulator: t.name, Err: fmt.Errorf("%w: %w", ErrRequestFailed, err)}
		}
		return nil
	}

	// Retained or stale states may arrive ahead of the device's reply, so
	// every message is delivered and compared until one matches.
	states := make(chan string, 1)
	done := make(chan struct{})
	handler := func(_ string, payload []byte) {
		select {
		case states <- strings.ToUpper(strings.TrimSpace(string(payload))):
		case <-done:
		}
	}

	if err := t.client.Subscribe(ctx, t.statTopic(), 1, handler); err != nil {
		close(done)
		return &Error{Op: op, Regulator: t.name, Err: fmt.Errorf("%w: %w", ErrRequestFailed, err)}
	}
	defer func() {
		// ctx may already be done here
		unsubCtx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if err := t.client.Unsubscribe(unsubCtx, t.statTopic()); err != nil {
			log.Printf("failed to unsubscribe from %s: %v", t.statTopic(), err)
		}
	}()
	// runs before the unsubscribe, releasing any handler still blocked
	defer close(done)

	if err := t.client.Publish(ctx, t.commandTopic(), 1, false, want); err != nil {
		return &Error{Op: op, Regulator: t.name, Err: fmt.Errorf("%w: %w", ErrRequestFailed, err)}
	}

	waitCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var last string
	for {
		select {
		case state := <-states:
			if state == want {
				return nil
			}
			last = state
		case <-waitCtx.Done():
			err := waitCtx.Err()
			if ctx.Err() == nil {
				// our own timeout, not the caller's
				if last != "" {
					err = fmt.Errorf("%w: want %s, device reports %s", ErrNotConfirmed, want, last)
				} else {
					err = fmt.Errorf("%w: no reply on %s within %v", ErrNotConfirmed, t.statTopic(), t.timeout)
				}
			}
			return &Error{Op: op, Regulator: t.name, Err: err}
		}
	}
}

func init() {
	MustRegister("tasmota-mqtt", &TasmotaMQTTFactory{})
}
