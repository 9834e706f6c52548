package regulators

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/larsks/powerhal/regulator"
)

// TasmotaOptions represents Tasmota driver configuration
type TasmotaOptions struct {
	Address  string        `mapstructure:"address"`
	Relay    int           `mapstructure:"relay"` // 0 addresses the device's only relay
	Timeout  time.Duration `mapstructure:"timeout"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
}

// TasmotaFactory implements Factory for Tasmota relays
type TasmotaFactory struct{}

// Create creates a new Tasmota regulator
func (f *TasmotaFactory) Create(name string, options map[string]any) (regulator.Regulator, error) {
	opts, err := f.parseConfig(options)
	if err != nil {
		return nil, err
	}
	return NewTasmota(name, *opts), nil
}

// ValidateConfig validates Tasmota options
func (f *TasmotaFactory) ValidateConfig(options map[string]any) error {
	_, err := f.parseConfig(options)
	return err
}

func (f *TasmotaFactory) parseConfig(options map[string]any) (*TasmotaOptions, error) {
	opts := &TasmotaOptions{}
	if err := decodeOptions(options, opts); err != nil {
		return nil, fmt.Errorf("failed to parse tasmota options: %w", err)
	}

	if opts.Address == "" {
		return nil, fmt.Errorf("tasmota: %w", ErrMissingAddress)
	}
	if _, err := url.Parse(normalizeAddress(opts.Address)); err != nil {
		return nil, fmt.Errorf("%w: invalid address %q: %v", ErrInvalidOptions, opts.Address, err)
	}
	if opts.Relay < 0 || opts.Relay > 32 {
		return nil, fmt.Errorf("%w: relay must be between 0 and 32, got %d", ErrInvalidOptions, opts.Relay)
	}

	return opts, nil
}

// Tasmota is a regulator switched by a relay on a Tasmota device, controlled
// over the device's HTTP command interface. Every transition is confirmed by
// the power state the device reports back.
type Tasmota struct {
	name     string
	address  string
	relay    int
	user     string
	password string
	client   *http.Client
	mutex    sync.Mutex
}

var (
	_ regulator.Regulator = (*Tasmota)(nil)
	_ regulator.ErrorType = (*Tasmota)(nil)
)

// NewTasmota creates a new Tasmota regulator
func NewTasmota(name string, opts TasmotaOptions) *Tasmota {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &Tasmota{
		name:     name,
		address:  normalizeAddress(opts.Address),
		relay:    opts.Relay,
		user:     opts.User,
		password: opts.Password,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func normalizeAddress(address string) string {
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "http://" + address
	}
	return strings.TrimSuffix(address, "/")
}

// Enable switches the relay on
func (t *Tasmota) Enable(ctx context.Context) error {
	log.Printf("enabling regulator %s", t)
	return t.switchPower(ctx, "enable", "ON")
}

// Disable switches the relay off
func (t *Tasmota) Disable(ctx context.Context) error {
	log.Printf("disabling regulator %s", t)
	return t.switchPower(ctx, "disable", "OFF")
}

func (t *Tasmota) ErrorType() reflect.Type {
	return regulator.ErrorTypeOf[*Error]()
}

// Enabled queries the device for the current relay state
func (t *Tasmota) Enabled(ctx context.Context) (bool, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	state, err := t.sendCommand(ctx, t.powerCommand())
	if err != nil {
		return false, &Error{Op: "query", Regulator: t.name, Err: err}
	}
	return state == "ON", nil
}

// String returns a string representation of the regulator
func (t *Tasmota) String() string {
	if t.relay == 0 {
		return fmt.Sprintf("tasmota:%s(%s)", t.name, t.address)
	}
	return fmt.Sprintf("tasmota:%s(%s#%d)", t.name, t.address, t.relay)
}

func (t *Tasmota) switchPower(ctx context.Context, op, want string) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	state, err := t.sendCommand(ctx, t.powerCommand()+" "+want)
	if err != nil {
		return &Error{Op: op, Regulator: t.name, Err: err}
	}
	if state != want {
		return &Error{Op: op, Regulator: t.name, Err: fmt.Errorf("%w: want %s, device reports %s", ErrNotConfirmed, want, state)}
	}
	return nil
}

func (t *Tasmota) powerCommand() string {
	if t.relay == 0 {
		return "Power"
	}
	return fmt.Sprintf("Power%d", t.relay)
}

// sendCommand sends a command to the device and returns the power state it
// reports for our relay.
func (t *Tasmota) sendCommand(ctx context.Context, command string) (string, error) {
	query := url.Values{}
	query.Set("cmnd", command)
	if t.user != "" {
		query.Set("user", t.user)
		query.Set("password", t.password)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.address+"/cm?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	return parsePowerState(body, t.relay)
}

// parsePowerState extracts the relay state from a Tasmota JSON response.
// Single relay devices answer with "POWER", multi relay devices with
// "POWER<n>"; relay 1 may appear as either.
func parsePowerState(body []byte, relay int) (string, error) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	keys := []string{"POWER"}
	if relay > 0 {
		keys = []string{fmt.Sprintf("POWER%d", relay)}
		if relay == 1 {
			keys = append(keys, "POWER")
		}
	} else {
		keys = append(keys, "POWER1")
	}

	for _, key := range keys {
		if value, ok := fields[key].(string); ok {
			return strings.ToUpper(value), nil
		}
	}
	return "", fmt.Errorf("%w: no %s field in %s", ErrBadResponse, keys[0], strings.TrimSpace(string(body)))
}

func init() {
	MustRegister("tasmota", &TasmotaFactory{})
}
