package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

type decidedError struct{ retry bool }

func (e decidedError) Error() string   { return "decided" }
func (e decidedError) Retryable() bool { return e.retry }

func TestIsRetryableError(t *testing.T) {
	var syntaxErr error
	syntaxErr = json.Unmarshal([]byte("{"), &struct{}{})

	tests := []struct {
		name      string
		err       error
		retryable bool
		errType   string
	}{
		{"nil", nil, false, ""},
		{"json", syntaxErr, false, "json_decode_error"},
		{"domain transient", fmt.Errorf("wrap: %w", decidedError{retry: true}), true, "domain_transient"},
		{"domain rejected", decidedError{retry: false}, false, "domain_rejected"},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false, "duplicate_key"},
		{"serialization", &pgconn.PgError{Code: "40001"}, true, "db_transient"},
		{"connection exception", &pgconn.PgError{Code: "08006"}, true, "db_transient"},
		{"deadline", context.DeadlineExceeded, true, "timeout"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"unknown", errors.New("boom"), false, "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, errType := IsRetryableError(tt.err)
			assert.Equal(t, tt.retryable, retryable)
			assert.Equal(t, tt.errType, errType)
		})
	}
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, ShouldRetry(1, 3, true))
	assert.True(t, ShouldRetry(3, 3, true))
	assert.False(t, ShouldRetry(4, 3, true))
	assert.False(t, ShouldRetry(0, 3, false))
}
