package timetable

import "context"

// ConsistencyLevel selects which database a read is routed to.
type ConsistencyLevel int

const (
	// StrongConsistency reads from the primary database. It is the default, so a sync
	// followed by a resolve always sees the freshly saved timetable.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency allows reads from a replica when one is configured.
	// Resolving filters for display can usually tolerate a slightly stale cache.
	EventualConsistency
)

type contextKey string

// ConsistencyLevelKey is the context key under which the consistency level is stored.
const ConsistencyLevelKey contextKey = "timetable.consistency_level"

// WithStrongConsistency returns a context that routes store reads to the primary database.
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, StrongConsistency)
}

// WithEventualConsistency returns a context that allows store reads from a replica.
//
// Example usage:
//
//	ctx = timetable.WithEventualConsistency(ctx)
//	ids, err := store.Resolve(ctx, include, exclude)
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, EventualConsistency)
}

// GetConsistencyLevel extracts the consistency level from the context, StrongConsistency if unset.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	if level, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return level
	}

	return StrongConsistency
}

func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	default:
		return "unknown"
	}
}
