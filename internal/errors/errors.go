package errors

import "errors"

// Scan validation errors, returned synchronously to the scanning device.
var ErrInvalidFormat = errors.New("invalid format")
var ErrInvalidTicketData = errors.New("invalid ticket data")
var ErrInvalidEventTicket = errors.New("invalid event ticket")

// ErrTicketNotFound covers both a missing ticket and a ticket whose
// registration has not completed payment. A scanner must not be able
// to tell the two apart.
var ErrTicketNotFound = errors.New("ticket not found")

var ErrRegistrationNotFound = errors.New("registration not found")
var ErrPaymentNotCompleted = errors.New("payment not completed")
var ErrTicketNotIssued = errors.New("ticket not issued")
var ErrResendCooldown = errors.New("resend cooldown active")

// ErrCorruptIssuanceState marks a registration flagged ticket_generated
// with no ticket number. Resend must refuse such rows until they are
// repaired, otherwise a second phantom identifier would be minted for
// the same attendee.
var ErrCorruptIssuanceState = errors.New("inconsistent issuance state")
