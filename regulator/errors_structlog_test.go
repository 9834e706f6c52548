//go:build structlog

package regulator

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindLogValue(t *testing.T) {
	assert.Equal(t, "other", KindOther.LogValue().String())
	assert.Equal(t, "unknown", ErrorKind(42).LogValue().String())

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("regulator failed", "kind", KindOther)
	assert.Contains(t, buf.String(), "kind=other")
}

func TestErrorKindMarshalText(t *testing.T) {
	text, err := KindOther.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "other", string(text))
}
