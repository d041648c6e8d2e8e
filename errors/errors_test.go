package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{SetupError, "SetupError"},
		{MetadataError, "MetadataError"},
		{ConnectStalled, "ConnectStalled"},
		{DataError, "DataError"},
		{NoData, "NoData"},
		{ComponentError, "ComponentError"},
		{OutOfRange, "OutOfRange"},
		{Kind(999), "UnknownError"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.kind.String())
		})
	}
}

func TestWrap_NilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(DataError, "source", "Push", nil))
}

func TestWrap_UnwrapsToCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(DataError, "source", "Push", cause)

	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.True(t, Is(err, DataError))
	assert.False(t, Is(err, NoData))
}

func TestWrapPhase_IncludesPhaseInMessage(t *testing.T) {
	err := WrapPhase(ConnectStalled, "sink", "connect", "connect", errors.New("stalled"))
	assert.Contains(t, err.Error(), "connect")
	assert.Contains(t, err.Error(), "ConnectStalled")
}

func TestNewf_FormatsMessage(t *testing.T) {
	err := Newf(SetupError, "composition", "validate", "dead link between %s and %s", "a", "b")
	assert.Contains(t, err.Error(), "dead link between a and b")
	assert.Equal(t, SetupError, KindOf(err))
}

func TestWrap_DeadLinkUnwrapsToSentinel(t *testing.T) {
	err := Wrap(SetupError, "composition", "Link", fmt.Errorf("dead link between %q and %q: %w", "noise", "consumer", ErrDeadLink))
	assert.True(t, errors.Is(err, ErrDeadLink))
	assert.Equal(t, SetupError, KindOf(err))
}

func TestKindOf_DefaultsToComponentErrorForForeignErrors(t *testing.T) {
	assert.Equal(t, ComponentError, KindOf(fmt.Errorf("raw failure")))
}

func TestFinamError_AsRoundTrips(t *testing.T) {
	err := Wrap(MetadataError, "adapter", "GetInfo", errors.New("units incompatible"))
	var fe *FinamError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, MetadataError, fe.Kind)
	assert.Equal(t, "adapter", fe.Component)
}
