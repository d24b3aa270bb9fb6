package emission

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryableWebservice(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network failure", &TransportError{Op: "send", Err: errors.New("connection refused")}, true},
		{"remote 500", &TransportError{Op: "send", StatusCode: 500, Err: errors.New("status 500")}, true},
		{"remote 503", &TransportError{Op: "send", StatusCode: 503, Err: errors.New("status 503")}, true},
		{"remote 404", &TransportError{Op: "send", StatusCode: 404, Err: errors.New("status 404")}, false},
		{"remote 400", &TransportError{Op: "send", StatusCode: 400, Err: errors.New("status 400")}, false},
		{"business rejection", &RemoteRejectionError{Code: "E12", Message: "invalid CNPJ"}, false},
		{"unparseable response", &ResponseParseError{Op: "send", Err: errors.New("bad xml")}, false},
		{"signing failure", &SigningError{Stage: "payload", Err: errors.New("nil invoice")}, false},
		{"plain error", errors.New("boom"), false},
		{"wrapped transport", fmt.Errorf("sending: %w", &TransportError{Op: "send", Err: errors.New("timeout")}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableWebservice(tt.err))
		})
	}
}

func TestIsRetryableDelivery(t *testing.T) {
	assert.True(t, IsRetryableDelivery(&TransportError{Op: "email", StatusCode: 502, Err: errors.New("bad gateway")}))
	assert.False(t, IsRetryableDelivery(errors.New("mail API refused delivery: invalid address")))
}

func TestIsRetryablePersistence(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("read: connection reset by peer"), true},
		{errors.New("context deadline exceeded"), true},
		{errors.New("database is locked"), true},
		{errors.New("Deadlock found when trying to get lock"), true},
		{errors.New("UNIQUE constraint failed: invoices.number"), false},
		{nil, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRetryablePersistence(tt.err), "err %v", tt.err)
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Violations: []string{"a must be set", "b must be positive"}}
	assert.Equal(t, "validation failed: a must be set; b must be positive", err.Error())
}

func TestTransportError_Unwrap(t *testing.T) {
	inner := errors.New("timeout")
	err := &TransportError{Op: "query", Err: inner}
	assert.ErrorIs(t, err, inner)
}
