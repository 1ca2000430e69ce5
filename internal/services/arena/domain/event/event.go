package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type identifies the kind of an event.
type Type string

// Match lifecycle events.
const (
	// TypeMatchBegin records the first round of a match starting.
	TypeMatchBegin Type = "match.begin"
	// TypeMatchEnd records a match closing. Nothing is appended after it.
	TypeMatchEnd Type = "match.end"
	// TypePlayerAdded records a competitor joining the match.
	TypePlayerAdded Type = "player.added"
)

// Round events.
const (
	// TypeRoundBegin records a round entering setup.
	TypeRoundBegin Type = "round.begin"
	// TypeShipsPlaced records a player's validated fleet layout.
	TypeShipsPlaced Type = "ships.placed"
	// TypeShotFired records a shot leaving a player.
	TypeShotFired Type = "shot.fired"
	// TypeShotResult records the classification of the preceding shot.
	TypeShotResult Type = "shot.result"
	// TypePlayerForfeited records a player leaving a round early.
	TypePlayerForfeited Type = "player.forfeited"
	// TypeRoundAccolade records an achievement earned during a round.
	TypeRoundAccolade Type = "round.accolade"
	// TypeRoundEnd records a resolved round.
	TypeRoundEnd Type = "round.end"
)

// Event is an immutable entry of a match journal.
type Event struct {
	// MatchID is the match this event belongs to.
	MatchID string
	// Seq is the position in the journal (starts at 1). Assigned on append.
	Seq uint64
	// Hash is the content hash of the event. Assigned on append.
	Hash string
	// PrevHash is the previous event's chain hash (empty for the first event).
	PrevHash string
	// ChainHash links this event to its predecessor. Assigned on append.
	ChainHash string
	// Timestamp is when the event was appended.
	Timestamp time.Time
	// Type identifies the kind of event.
	Type Type
	// RoundID groups events of a single round (empty for match events).
	RoundID string
	// PlayerID is the player the event is about, when there is one.
	PlayerID string
	// PayloadJSON is the canonical JSON payload.
	PayloadJSON []byte
}

// Decode unmarshals the event payload into target.
func (e Event) Decode(target any) error {
	if err := json.Unmarshal(e.PayloadJSON, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// New builds an unsequenced event with payload marshaled to JSON.
func New(matchID string, typ Type, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return Event{MatchID: matchID, Type: typ, PayloadJSON: data}, nil
}

// ForRound returns a copy of e addressed to a round.
func (e Event) ForRound(roundID string) Event {
	e.RoundID = roundID
	return e
}

// ForPlayer returns a copy of e addressed to a player.
func (e Event) ForPlayer(playerID string) Event {
	e.PlayerID = playerID
	return e
}
