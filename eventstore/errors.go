package eventstore

import (
	"errors"
	"fmt"
)

var (
	// ErrAggregateIDRequired indicates an empty aggregate id.
	ErrAggregateIDRequired = errors.New("eventstore: aggregate id is required")

	// ErrEventTypeRequired indicates an empty event type.
	ErrEventTypeRequired = errors.New("eventstore: event type is required")

	// ErrPayloadRequired indicates an empty event payload.
	ErrPayloadRequired = errors.New("eventstore: event payload is required")

	// ErrPayloadNotJSON indicates the payload is not valid JSON. Payloads
	// are stored as JSONB by the postgres adapter, so this holds for every
	// implementation.
	ErrPayloadNotJSON = errors.New("eventstore: event payload must be valid JSON")
)

// VersionConflictError is returned when an append declares an expected
// version that does not match the aggregate's current head. The caller may
// reload the aggregate and retry at the actual version.
type VersionConflictError struct {
	AggregateID string
	Expected    int64
	Actual      int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("eventstore: version conflict on aggregate %q: expected %d, actual %d",
		e.AggregateID, e.Expected, e.Actual)
}

// IsVersionConflict reports whether err is a version conflict.
func IsVersionConflict(err error) bool {
	var conflict *VersionConflictError

	return errors.As(err, &conflict)
}
