package event

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// CanonicalJSON re-encodes a JSON document with sorted object keys and no
// insignificant whitespace.
func CanonicalJSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// envelope is the hashed view of an event. Field order is fixed by the
// struct so the hash does not depend on map iteration.
type envelope struct {
	MatchID   string          `json:"match_id"`
	Seq       uint64          `json:"seq"`
	Timestamp string          `json:"timestamp"`
	Type      Type            `json:"type"`
	RoundID   string          `json:"round_id,omitempty"`
	PlayerID  string          `json:"player_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

func canonicalEnvelope(evt Event) ([]byte, error) {
	payload := evt.PayloadJSON
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	canonical, err := CanonicalJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("canonical payload: %w", err)
	}
	return json.Marshal(envelope{
		MatchID:   evt.MatchID,
		Seq:       evt.Seq,
		Timestamp: evt.Timestamp.UTC().Format(time.RFC3339Nano),
		Type:      evt.Type,
		RoundID:   evt.RoundID,
		PlayerID:  evt.PlayerID,
		Payload:   canonical,
	})
}

// EventHash computes the content hash of a single event: SHA-256 over the
// canonical envelope, truncated to 128 bits.
func EventHash(evt Event) (string, error) {
	data, err := canonicalEnvelope(evt)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16]), nil
}

// ChainHash computes the SHA-256 hash linking evt to its predecessor's chain
// hash. evt.Hash must already be set.
func ChainHash(evt Event, prevHash string) (string, error) {
	if evt.Hash == "" {
		return "", fmt.Errorf("event hash is required")
	}
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write([]byte{0})
	h.Write([]byte(evt.Hash))
	return hex.EncodeToString(h.Sum(nil)), nil
}
