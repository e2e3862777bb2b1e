package ticket

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gatepass/internal/metrics"

	"github.com/google/uuid"
)

const numberPrefix = "GP"

// maxAttempts bounds collision retries against the primary scheme
// before falling back to the random identifier space.
const maxAttempts = 10

// NumberStore checks a candidate identifier against every persisted
// ticket number, primary and group-member alike.
type NumberStore interface {
	TicketNumberExists(ctx context.Context, number string) (bool, error)
}

// Generator produces unique human-readable ticket numbers. Generation
// never persists anything; the caller commits the returned value.
type Generator struct {
	store         NumberStore
	eventFragment string
}

func NewGenerator(store NumberStore, eventCode string) *Generator {
	fragment := strings.ToUpper(eventCode)
	if len(fragment) > 3 {
		fragment = fragment[:3]
	}
	return &Generator{
		store:         store,
		eventFragment: fragment,
	}
}

// Generate returns a ticket number that does not exist in storage at
// the time of the check. Storage faults propagate to the caller;
// collisions never do, because the fallback space is large enough that
// a collision there is negligible.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		fragment, err := randomFragment()
		if err != nil {
			return "", fmt.Errorf("failed to read random fragment: %w", err)
		}

		candidate := fmt.Sprintf("%s-%s%s-%s",
			numberPrefix, g.eventFragment, time.Now().Format("060102"), fragment)

		exists, err := g.store.TicketNumberExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check ticket number: %w", err)
		}
		if !exists {
			return candidate, nil
		}

		slog.Debug("Ticket number collision, regenerating",
			"candidate", candidate, "attempt", attempt)
	}

	// All attempts collided. Repeated fallbacks are an operational
	// signal that the primary scheme's entropy is too low for current
	// volume.
	fallback := fmt.Sprintf("%s-F-%s",
		numberPrefix, strings.ReplaceAll(uuid.New().String(), "-", ""))

	slog.Warn("Ticket number generation fell back to random identifier space",
		"attempts", maxAttempts, "fallback", fallback)
	metrics.IdentifierFallbacks.Inc()

	return fallback, nil
}

func randomFragment() (string, error) {
	b := make([]byte, 2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}
