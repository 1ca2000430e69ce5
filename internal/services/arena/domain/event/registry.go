package event

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/broadside/internal/platform/errors"
)

var (
	// ErrMatchIDRequired indicates a missing match id.
	ErrMatchIDRequired = apperrors.New(apperrors.CodeEventInvalid, "match id is required")
	// ErrTypeRequired indicates a missing event type.
	ErrTypeRequired = apperrors.New(apperrors.CodeEventInvalid, "event type is required")
	// ErrTypeUnknown indicates an unregistered event type.
	ErrTypeUnknown = apperrors.New(apperrors.CodeEventTypeUnknown, "event type is not registered")
	// ErrRoundIDRequired indicates a round event without a round id.
	ErrRoundIDRequired = apperrors.New(apperrors.CodeEventInvalid, "round id is required")
	// ErrPlayerIDRequired indicates a player event without a player id.
	ErrPlayerIDRequired = apperrors.New(apperrors.CodeEventInvalid, "player id is required")
	// ErrPayloadInvalid indicates malformed payload JSON.
	ErrPayloadInvalid = apperrors.New(apperrors.CodeEventInvalid, "payload json must be valid")
)

// PayloadValidator validates a decoded payload document.
type PayloadValidator func(json.RawMessage) error

// Definition registers metadata for an event type.
type Definition struct {
	Type            Type
	RequiresRound   bool
	RequiresPlayer  bool
	ValidatePayload PayloadValidator
}

// Registry stores event definitions and validates events before append.
type Registry struct {
	definitions map[Type]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[Type]Definition)}
}

// Register adds an event type definition.
func (r *Registry) Register(def Definition) error {
	if r == nil {
		return fmt.Errorf("registry is required")
	}
	def.Type = Type(strings.TrimSpace(string(def.Type)))
	if def.Type == "" {
		return ErrTypeRequired
	}
	if r.definitions == nil {
		r.definitions = make(map[Type]Definition)
	}
	if _, exists := r.definitions[def.Type]; exists {
		return fmt.Errorf("event type already registered: %s", def.Type)
	}
	r.definitions[def.Type] = def
	return nil
}

// Definition returns the registered definition for typ.
func (r *Registry) Definition(typ Type) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	def, ok := r.definitions[typ]
	return def, ok
}

// ValidateForAppend normalizes evt and checks it against its definition.
// The payload is rewritten in canonical form so hashes are stable.
func (r *Registry) ValidateForAppend(evt Event) (Event, error) {
	evt.MatchID = strings.TrimSpace(evt.MatchID)
	if evt.MatchID == "" {
		return Event{}, ErrMatchIDRequired
	}
	evt.Type = Type(strings.TrimSpace(string(evt.Type)))
	if evt.Type == "" {
		return Event{}, ErrTypeRequired
	}
	def, ok := r.Definition(evt.Type)
	if !ok {
		return Event{}, apperrors.WithMetadata(apperrors.CodeEventTypeUnknown, ErrTypeUnknown.Message, map[string]string{"type": string(evt.Type)})
	}
	evt.RoundID = strings.TrimSpace(evt.RoundID)
	if def.RequiresRound && evt.RoundID == "" {
		return Event{}, ErrRoundIDRequired
	}
	evt.PlayerID = strings.TrimSpace(evt.PlayerID)
	if def.RequiresPlayer && evt.PlayerID == "" {
		return Event{}, ErrPlayerIDRequired
	}

	if len(evt.PayloadJSON) == 0 {
		evt.PayloadJSON = []byte("{}")
	}
	if !json.Valid(evt.PayloadJSON) {
		return Event{}, ErrPayloadInvalid
	}
	canonical, err := CanonicalJSON(evt.PayloadJSON)
	if err != nil {
		return Event{}, fmt.Errorf("canonical payload json: %w", err)
	}
	evt.PayloadJSON = canonical
	if def.ValidatePayload != nil {
		if err := def.ValidatePayload(json.RawMessage(evt.PayloadJSON)); err != nil {
			return Event{}, apperrors.Wrap(apperrors.CodeEventInvalid, fmt.Sprintf("%s payload invalid", evt.Type), err)
		}
	}
	return evt, nil
}

// DefaultRegistry returns a registry holding every arena event type.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, def := range []Definition{
		{Type: TypeMatchBegin},
		{Type: TypeMatchEnd},
		{Type: TypePlayerAdded, RequiresPlayer: true, ValidatePayload: validatePlayerAdded},
		{Type: TypeRoundBegin, RequiresRound: true},
		{Type: TypeShipsPlaced, RequiresRound: true, RequiresPlayer: true},
		{Type: TypeShotFired, RequiresRound: true, RequiresPlayer: true, ValidatePayload: validateShot},
		{Type: TypeShotResult, RequiresRound: true, RequiresPlayer: true, ValidatePayload: validateShotResult},
		{Type: TypePlayerForfeited, RequiresRound: true, RequiresPlayer: true, ValidatePayload: validateForfeit},
		{Type: TypeRoundAccolade, RequiresRound: true, RequiresPlayer: true},
		{Type: TypeRoundEnd, RequiresRound: true, ValidatePayload: validateRoundEnd},
	} {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

func validatePlayerAdded(raw json.RawMessage) error {
	var p PlayerAddedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("player name is required")
	}
	return nil
}

func validateShot(raw json.RawMessage) error {
	var p ShotFiredPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	if p.Target == "" {
		return fmt.Errorf("shot target is required")
	}
	return nil
}

func validateShotResult(raw json.RawMessage) error {
	var p ShotResultPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	switch p.Outcome {
	case ShotMiss, ShotHit, ShotSunk:
	default:
		return fmt.Errorf("unknown shot outcome %q", p.Outcome)
	}
	return nil
}

func validateForfeit(raw json.RawMessage) error {
	var p PlayerForfeitedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	if p.Reason == "" {
		return fmt.Errorf("forfeit reason is required")
	}
	return nil
}

func validateRoundEnd(raw json.RawMessage) error {
	var p RoundEndPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	if p.Number <= 0 {
		return fmt.Errorf("round number must be positive")
	}
	if p.Draw == (p.Winner != "") {
		return fmt.Errorf("round must have exactly one of winner or draw")
	}
	return nil
}
