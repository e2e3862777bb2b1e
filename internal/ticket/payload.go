package ticket

import (
	"encoding/json"
	"time"

	apperrors "gatepass/internal/errors"

	qrcode "github.com/skip2/go-qrcode"
)

// qrSize is the pixel size of the rendered image. 256px with medium
// error correction scans reliably from arm's length on handheld
// devices and tolerates print/screen artifacts.
const qrSize = 256

// Payload is the data encoded into the scannable image. It is not
// persisted as its own row; it is rebuilt from Registration or
// GroupMember state whenever an email must be sent.
type Payload struct {
	TicketNumber   string    `json:"ticketNumber"`
	RegistrationID int64     `json:"registrationId"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	EventCode      string    `json:"eventCode"`
	GeneratedAt    time.Time `json:"generatedAt"`
	MemberIndex    *int      `json:"memberIndex,omitempty"`
	GroupBooking   bool      `json:"groupBooking,omitempty"`
}

// Codec serializes ticket payloads and validates scanned content
// against the configured event code.
type Codec struct {
	eventCode string
}

func NewCodec(eventCode string) *Codec {
	return &Codec{eventCode: eventCode}
}

// Encode serializes the payload to its compact wire form, stamping
// the configured event code.
func (c *Codec) Encode(p *Payload) ([]byte, error) {
	p.EventCode = c.eventCode
	return json.Marshal(p)
}

// RenderPNG renders an encoded payload into a scannable PNG image.
func (c *Codec) RenderPNG(payload []byte) ([]byte, error) {
	return qrcode.Encode(string(payload), qrcode.Medium, qrSize)
}

// Decode parses and validates raw scanned content. The payload carries
// no signature; its authority comes from cross-checking ticketNumber
// and registrationId against persisted state in the check-in stage.
func (c *Codec) Decode(raw []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, apperrors.ErrInvalidFormat
	}

	if p.TicketNumber == "" || p.RegistrationID == 0 || p.EventCode == "" {
		return nil, apperrors.ErrInvalidTicketData
	}

	if p.EventCode != c.eventCode {
		return nil, apperrors.ErrInvalidEventTicket
	}

	return &p, nil
}
