package eventstore

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is one entry of the append-only event log. Once written it is never
// mutated or deleted.
type Record struct {
	ID          uuid.UUID `json:"id"`
	AggregateID string    `json:"aggregateId"`
	Version     int64     `json:"version"`
	EventType   string    `json:"eventType"`
	Payload     []byte    `json:"payload"`
	RecordedAt  time.Time `json:"recordedAt"`
}

// Store is the append-only, per-aggregate event log contract.
//
//go:generate mockgen --destination=store_mock.go --package=eventstore . Store
type Store interface {
	// Append writes a new record for the aggregate. expectedVersion must
	// equal the aggregate's current head (0 for a new aggregate); on
	// mismatch Append fails with a *VersionConflictError. Versions are
	// gapless and start at 1.
	Append(ctx context.Context, aggregateID, eventType string, payload []byte, expectedVersion int64) (*Record, error)

	// Load returns every record of the aggregate in version order.
	Load(ctx context.Context, aggregateID string) ([]*Record, error)

	// CurrentVersion returns the aggregate's head version, 0 when the
	// aggregate has no records.
	CurrentVersion(ctx context.Context, aggregateID string) (int64, error)
}

// ValidateAppend checks the append inputs shared by every Store
// implementation.
func ValidateAppend(aggregateID, eventType string, payload []byte) error {
	if strings.TrimSpace(aggregateID) == "" {
		return ErrAggregateIDRequired
	}

	if strings.TrimSpace(eventType) == "" {
		return ErrEventTypeRequired
	}

	if len(payload) == 0 {
		return ErrPayloadRequired
	}

	if !json.Valid(payload) {
		return ErrPayloadNotJSON
	}

	return nil
}
