// Package errors provides structured domain errors keyed by machine-readable codes.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Configuration errors
	CodeConfigInvalid         Code = "CONFIG_INVALID"
	CodeGameModeUnsupported   Code = "GAME_MODE_UNSUPPORTED"
	CodeRoundsModeUnsupported Code = "ROUNDS_MODE_UNSUPPORTED"

	// Match lifecycle errors
	CodeInvalidOperation Code = "INVALID_OPERATION"
	CodePlayersRequired  Code = "PLAYERS_REQUIRED"
	CodeMatchEnded       Code = "MATCH_ENDED"
	CodeDriverRunning    Code = "DRIVER_RUNNING"

	// Event journal errors
	CodeEventTypeUnknown   Code = "EVENT_TYPE_UNKNOWN"
	CodeEventInvalid       Code = "EVENT_INVALID"
	CodeEventSequenceGap   Code = "EVENT_SEQUENCE_GAP"
	CodeEventChainBroken   Code = "EVENT_CHAIN_BROKEN"
	CodeEventStoreRequired Code = "EVENT_STORE_REQUIRED"
)

// Fatal reports whether errors with this code should stop a running match
// rather than be surfaced to a single caller.
func (c Code) Fatal() bool {
	switch c {
	case CodeEventTypeUnknown,
		CodeEventInvalid,
		CodeEventSequenceGap,
		CodeEventChainBroken,
		CodeEventStoreRequired:
		return true
	default:
		return false
	}
}
