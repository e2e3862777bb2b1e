package mailer

import (
	"errors"
	"net"
	"net/textproto"
	"strings"
)

type FailureClass int

const (
	// FailureRetryable covers transient relay faults: connection
	// errors, timeouts, 5xx responses, concurrency rejections.
	FailureRetryable FailureClass = iota
	// FailurePermanent covers authentication failures and 4xx
	// rejections that retrying cannot fix.
	FailurePermanent
)

var permanentMarkers = []string{
	"authentication failed",
	"invalid credentials",
	"username and password not accepted",
	"bad recipient",
	"recipient rejected",
	"message rejected",
	"invalid recipient",
}

var retryableMarkers = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"timeout",
	"deadline exceeded",
	"too many",
	"temporarily",
	"eof",
}

// Classify maps a transport error onto the retry policy.
func Classify(err error) FailureClass {
	if err == nil {
		return FailureRetryable
	}

	// Authentication failures are permanent regardless of the reply
	// code the relay wrapped them in.
	msg := strings.ToLower(err.Error())
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return FailurePermanent
		}
	}

	// Transient markers win over the reply code: relays report
	// concurrency and rate rejections with 4xx codes.
	for _, marker := range retryableMarkers {
		if strings.Contains(msg, marker) {
			return FailureRetryable
		}
	}

	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch {
		case tpErr.Code >= 400 && tpErr.Code < 500:
			return FailurePermanent
		case tpErr.Code >= 500:
			return FailureRetryable
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureRetryable
	}

	// Unknown errors retry; issuance state updates are idempotent, so
	// at-least-once delivery is the safer default.
	return FailureRetryable
}
