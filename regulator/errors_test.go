package regulator_test

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"github.com/larsks/powerhal/regulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type busError struct {
	addr uint16
}

func (e *busError) Error() string             { return fmt.Sprintf("no ack from 0x%02x", e.addr) }
func (e *busError) Kind() regulator.ErrorKind { return regulator.KindOther }

type badKindError struct{}

func (badKindError) Error() string             { return "bad kind" }
func (badKindError) Kind() regulator.ErrorKind { return regulator.ErrorKind(200) }

func TestErrorKind_Display(t *testing.T) {
	assert.Equal(t,
		"A different error occurred. The original error may contain more information",
		regulator.KindOther.String())
	assert.Equal(t, regulator.KindOther.String(), fmt.Sprint(regulator.KindOther))
	assert.Equal(t, regulator.KindOther.String(), regulator.KindOther.Error())
	assert.Equal(t, "unknown error kind (9)", regulator.ErrorKind(9).String())
}

func TestErrorKind_Debug(t *testing.T) {
	assert.Equal(t, "regulator.KindOther", fmt.Sprintf("%#v", regulator.KindOther))
	assert.Equal(t, "regulator.ErrorKind(9)", fmt.Sprintf("%#v", regulator.ErrorKind(9)))
}

func TestErrorKind_Reflexive(t *testing.T) {
	assert.Equal(t, regulator.KindOther, regulator.KindOther.Kind())

	var e regulator.Error = regulator.KindOther
	assert.Equal(t, regulator.KindOther, e.Kind())
}

func TestErrorKind_EqualityOrderingHashing(t *testing.T) {
	a, b := regulator.KindOther, regulator.KindOther
	assert.True(t, a == b)
	assert.False(t, a < b)
	assert.False(t, b < a)

	seen := map[regulator.ErrorKind]int{}
	seen[a]++
	seen[b]++
	assert.Len(t, seen, 1)
	assert.Equal(t, 2, seen[regulator.KindOther])

	kinds := []regulator.ErrorKind{regulator.ErrorKind(3), regulator.KindOther, regulator.ErrorKind(1)}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	assert.Equal(t, regulator.KindOther, kinds[0])
}

func TestErrorKind_IsValid(t *testing.T) {
	assert.True(t, regulator.KindOther.IsValid())
	assert.False(t, regulator.ErrorKind(1).IsValid())
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want regulator.ErrorKind
	}{
		{"nil", nil, regulator.KindOther},
		{"plain error", errors.New("boom"), regulator.KindOther},
		{"kind itself", regulator.KindOther, regulator.KindOther},
		{"driver error", &busError{addr: 0x40}, regulator.KindOther},
		{"wrapped driver error", fmt.Errorf("enable vdd: %w", &busError{addr: 0x40}), regulator.KindOther},
		{"undefined kind", badKindError{}, regulator.KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := regulator.Kind(tt.err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.IsValid())
		})
	}
}

func TestAs(t *testing.T) {
	err := fmt.Errorf("enable vdd: %w", &busError{addr: 0x40})

	be, ok := regulator.As[*busError](err)
	require.True(t, ok)
	assert.Equal(t, uint16(0x40), be.addr)

	_, ok = regulator.As[*busError](errors.New("boom"))
	assert.False(t, ok)

	_, ok = regulator.As[*busError](nil)
	assert.False(t, ok)

	k, ok := regulator.As[regulator.ErrorKind](fmt.Errorf("wrapped: %w", regulator.KindOther))
	require.True(t, ok)
	assert.Equal(t, regulator.KindOther, k)
}

func TestInfallible(t *testing.T) {
	typ := reflect.TypeOf((*regulator.Infallible)(nil)).Elem()
	assert.Equal(t, reflect.Interface, typ.Kind())

	errorType := reflect.TypeOf((*regulator.Error)(nil)).Elem()
	assert.True(t, typ.Implements(errorType), "Infallible must satisfy Error")

	// The unexported method keeps every type outside the package from
	// satisfying Infallible, so nothing here can produce a value.
	for _, candidate := range []any{regulator.KindOther, &busError{}, badKindError{}} {
		assert.False(t, reflect.TypeOf(candidate).Implements(typ), "%T must not implement Infallible", candidate)
	}

	var never regulator.Infallible
	assert.Nil(t, never)
}
