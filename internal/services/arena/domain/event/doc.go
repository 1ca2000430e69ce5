// Package event defines the event envelope, the arena event types and the
// registry that validates events before the journal assigns sequence and
// integrity fields.
//
// Events are immutable facts. Once appended they are never mutated or
// removed, which makes the journal the single source of truth for match
// outcomes and the input for replay and accolade evaluation.
package event
