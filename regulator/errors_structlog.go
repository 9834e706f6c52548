//go:build structlog

package regulator

import "log/slog"

var (
	_ slog.LogValuer = KindOther
)

// LogValue renders the kind as a short token for structured log records.
func (k ErrorKind) LogValue() slog.Value {
	return slog.StringValue(k.token())
}

// MarshalText implements encoding.TextMarshaler with the same token LogValue
// uses.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.token()), nil
}

func (k ErrorKind) token() string {
	switch k {
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}
