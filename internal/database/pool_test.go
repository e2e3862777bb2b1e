package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryableError(t *testing.T) {
	retryable := []error{
		errors.New("dial tcp 127.0.0.1:5432: connection refused"),
		errors.New("read tcp: connection reset by peer"),
		errors.New("write: broken pipe"),
		errors.New("context deadline exceeded: i/o timeout"),
		errors.New("driver: bad connection"),
		fmt.Errorf("failed to ping database: %w", errors.New("connection refused")),
	}
	for _, err := range retryable {
		assert.True(t, IsRetryableError(err), "expected retryable: %v", err)
	}

	permanent := []error{
		nil,
		errors.New(`pq: password authentication failed for user "gatepass"`),
		errors.New(`pq: database "gatepass" does not exist`),
	}
	for _, err := range permanent {
		assert.False(t, IsRetryableError(err), "expected not retryable: %v", err)
	}
}
