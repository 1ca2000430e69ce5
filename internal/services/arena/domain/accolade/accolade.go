// Package accolade derives achievements from a match journal after the fact.
// Processors are pure: they read events and never append.
package accolade

import (
	"fmt"

	"github.com/louisbranch/broadside/internal/services/arena/domain/event"
)

// DefaultDominationStreak is the hit streak a shooter must exceed.
const DefaultDominationStreak = 9

// Award is one earned accolade.
type Award struct {
	Accolade string
	PlayerID string
	RoundID  string
	// Seq is the journal position of the event that earned the award.
	Seq    uint64
	Detail string
}

// Processor evaluates the events of a single round.
type Processor interface {
	Name() string
	Process(round []event.Event) []Award
}

// Evaluate splits events by round and runs every processor over each round
// in journal order. Events without a round id are ignored.
func Evaluate(events []event.Event, processors ...Processor) []Award {
	var (
		order  []string
		rounds = make(map[string][]event.Event)
	)
	for _, evt := range events {
		if evt.RoundID == "" {
			continue
		}
		if _, ok := rounds[evt.RoundID]; !ok {
			order = append(order, evt.RoundID)
		}
		rounds[evt.RoundID] = append(rounds[evt.RoundID], evt)
	}
	var awards []Award
	for _, roundID := range order {
		for _, p := range processors {
			if p != nil {
				awards = append(awards, p.Process(rounds[roundID])...)
			}
		}
	}
	return awards
}

// Domination awards a shooter whose hits within a round outrun Streak
// consecutive hits. Misses do not break a streak; a hit by another shooter
// does. The streak restarts after each award.
type Domination struct {
	Streak int
}

// Name implements Processor.
func (Domination) Name() string { return "domination" }

// Process implements Processor.
func (d Domination) Process(round []event.Event) []Award {
	streak := d.Streak
	if streak <= 0 {
		streak = DefaultDominationStreak
	}
	var (
		awards []Award
		last   string
		run    int
	)
	for _, evt := range round {
		if evt.Type != event.TypeShotResult {
			continue
		}
		var p event.ShotResultPayload
		if err := evt.Decode(&p); err != nil || p.Outcome == event.ShotMiss {
			continue
		}
		if evt.PlayerID != last {
			last = evt.PlayerID
			run = 0
		}
		run++
		if run > streak {
			awards = append(awards, Award{
				Accolade: d.Name(),
				PlayerID: evt.PlayerID,
				RoundID:  evt.RoundID,
				Seq:      evt.Seq,
				Detail:   fmt.Sprintf("%d hits in a row", run),
			})
			run = 0
		}
	}
	return awards
}
