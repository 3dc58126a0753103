package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessages(t *testing.T) {
	cause := errors.New("connection refused")

	testCases := []struct {
		name string
		err  *Error
		want string
	}{
		{"message and cause", WrapError(KindFailedToPut, "cns/n1/name", cause), "FAILED_TO_PUT: cns/n1/name: connection refused"},
		{"message only", NewError(KindNotConfigured, "no host configured"), "NOT_CONFIGURED: no host configured"},
		{"cause only", &Error{Kind: KindFailedToWatch, Err: cause}, "FAILED_TO_WATCH: connection refused"},
		{"kind only", &Error{Kind: KindNotConnected}, "NOT_CONNECTED"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError(KindFailedToGet, "k", cause)
	assert.ErrorIs(t, err, cause)
}

func TestIsKind(t *testing.T) {
	err := WrapError(KindFailedToGetAll, "cns", errors.New("boom"))
	wrapped := fmt.Errorf("initial load: %w", err)

	assert.True(t, IsKind(wrapped, KindFailedToGetAll))
	assert.False(t, IsKind(wrapped, KindFailedToPut))
	assert.False(t, IsKind(errors.New("plain"), KindFailedToGetAll))
	assert.False(t, IsKind(nil, KindFailedToGetAll))
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "put", OpPut.String())
	assert.Equal(t, "delete", OpDelete.String())
	assert.Equal(t, "unknown", Op(0).String())
}

func TestConfigEndpoint(t *testing.T) {
	cfg := Config{Host: "127.0.0.1", Port: 2379}
	assert.Equal(t, "127.0.0.1:2379", cfg.Endpoint())
}

func TestConnectRequiresHost(t *testing.T) {
	_, err := Connect(t.Context(), Config{})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotConfigured))
}
