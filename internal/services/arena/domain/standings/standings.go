// Package standings folds a match journal into per-player results.
//
// Replay reads only the journal, so its scores can be compared with the
// live match to confirm the journal is a complete record.
package standings

import (
	"fmt"
	"slices"

	apperrors "github.com/louisbranch/broadside/internal/platform/errors"
	"github.com/louisbranch/broadside/internal/services/arena/domain/event"
)

// Standing is one player's line in the table.
type Standing struct {
	PlayerID string
	Name     string
	Version  string
	Seat     int
	Score    int
	Losses   int
	Draws    int
	// Forfeits counts rounds left early, keyed by reason.
	Forfeits map[string]int
}

// Table is the folded view of a journal.
type Table struct {
	MatchID  string
	Rounds   int
	Finished bool
	Ended    bool
	// Standings are ordered by seat.
	Standings []Standing
	// Accolades counts awards per player.
	Accolades map[string]int
}

// Ranked returns standings by descending score, ties broken by seat.
func (t Table) Ranked() []Standing {
	ranked := slices.Clone(t.Standings)
	slices.SortStableFunc(ranked, func(a, b Standing) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return a.Seat - b.Seat
	})
	return ranked
}

// Scores maps player id to score.
func (t Table) Scores() map[string]int {
	scores := make(map[string]int, len(t.Standings))
	for _, s := range t.Standings {
		scores[s.PlayerID] = s.Score
	}
	return scores
}

// Replay folds events in order. Events referencing unknown players are
// reported as EVENT_INVALID.
func Replay(events []event.Event) (Table, error) {
	table := Table{Accolades: make(map[string]int)}
	index := make(map[string]int)
	lookup := func(evt event.Event, playerID string) (*Standing, error) {
		i, ok := index[playerID]
		if !ok {
			return nil, apperrors.WithMetadata(apperrors.CodeEventInvalid,
				fmt.Sprintf("seq %d: unknown player %q", evt.Seq, playerID),
				map[string]string{"seq": fmt.Sprint(evt.Seq), "player_id": playerID})
		}
		return &table.Standings[i], nil
	}

	for _, evt := range events {
		if table.MatchID == "" {
			table.MatchID = evt.MatchID
		}
		switch evt.Type {
		case event.TypePlayerAdded:
			var p event.PlayerAddedPayload
			if err := evt.Decode(&p); err != nil {
				return Table{}, err
			}
			index[evt.PlayerID] = len(table.Standings)
			table.Standings = append(table.Standings, Standing{
				PlayerID: evt.PlayerID,
				Name:     p.Name,
				Version:  p.Version,
				Seat:     p.Seat,
				Forfeits: make(map[string]int),
			})
		case event.TypePlayerForfeited:
			var p event.PlayerForfeitedPayload
			if err := evt.Decode(&p); err != nil {
				return Table{}, err
			}
			s, err := lookup(evt, evt.PlayerID)
			if err != nil {
				return Table{}, err
			}
			s.Forfeits[p.Reason]++
		case event.TypeRoundAccolade:
			if _, err := lookup(evt, evt.PlayerID); err != nil {
				return Table{}, err
			}
			table.Accolades[evt.PlayerID]++
		case event.TypeRoundEnd:
			var p event.RoundEndPayload
			if err := evt.Decode(&p); err != nil {
				return Table{}, err
			}
			table.Rounds++
			if p.Draw {
				for _, id := range p.Losers {
					s, err := lookup(evt, id)
					if err != nil {
						return Table{}, err
					}
					s.Draws++
				}
				continue
			}
			winner, err := lookup(evt, p.Winner)
			if err != nil {
				return Table{}, err
			}
			winner.Score++
			for _, id := range p.Losers {
				s, err := lookup(evt, id)
				if err != nil {
					return Table{}, err
				}
				s.Losses++
			}
		case event.TypeMatchEnd:
			var p event.MatchEndPayload
			if err := evt.Decode(&p); err != nil {
				return Table{}, err
			}
			table.Ended = true
			table.Finished = p.Finished
		}
	}
	return table, nil
}
