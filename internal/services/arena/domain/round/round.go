// Package round plays a single game between two or more adapters.
//
// A round moves through Setup, Placement, Shooting and Resolved. Every
// transition of interest is appended to the match journal from the goroutine
// playing the round, so the journal always reflects program order.
package round

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/louisbranch/broadside/internal/random"
	"github.com/louisbranch/broadside/internal/services/arena/domain/adapter"
	"github.com/louisbranch/broadside/internal/services/arena/domain/board"
	"github.com/louisbranch/broadside/internal/services/arena/domain/competitor"
	"github.com/louisbranch/broadside/internal/services/arena/domain/event"
)

// Phase is a state of the round state machine.
type Phase int32

const (
	// Setup starts a new game on every adapter.
	Setup Phase = iota
	// Placement collects and validates fleets.
	Placement
	// Shooting alternates turns until one player remains.
	Shooting
	// Resolved is terminal.
	Resolved
)

func (p Phase) String() string {
	switch p {
	case Setup:
		return "setup"
	case Placement:
		return "placement"
	case Shooting:
		return "shooting"
	case Resolved:
		return "resolved"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Reason explains why a player left a round, or why the round ended.
type Reason string

const (
	ReasonSunk             Reason = "sunk"
	ReasonTimedOut         Reason = "timed_out"
	ReasonFault            Reason = "fault"
	ReasonInvalidPlacement Reason = "invalid_placement"
	ReasonAllForfeited     Reason = "all_forfeited"
)

func reasonFor(out adapter.Outcome) Reason {
	if out == adapter.TimedOut {
		return ReasonTimedOut
	}
	return ReasonFault
}

// Settings are the constants a round is played under.
type Settings struct {
	MatchID   string
	RoundID   string
	Number    int
	Board     board.Config
	TimeLimit time.Duration
	Seed      int64
}

// Participant seats one adapter in the round.
type Participant struct {
	PlayerID string
	Adapter  *adapter.Adapter
}

// Appender is the slice of the journal a round writes to.
type Appender interface {
	Append(ctx context.Context, evt event.Event) (event.Event, error)
}

// Result is the resolved outcome of a round.
type Result struct {
	RoundID string
	Number  int
	Winner  string
	// Losers lists eliminated players in the order they left the round.
	Losers []string
	Draw   bool
	Reason Reason
	// Exits maps each loser to the reason it left.
	Exits map[string]Reason
	Turns int
	Shots int
}

// Option configures a Round.
type Option func(*Round)

// WithLogf overrides the logger.
func WithLogf(logf func(string, ...any)) Option {
	return func(r *Round) {
		if logf != nil {
			r.logf = logf
		}
	}
}

// WithBeforeEnd registers a hook that runs once the result is known and
// before round.end is appended. Events it appends land inside the round.
func WithBeforeEnd(fn func(context.Context, Result) error) Option {
	return func(r *Round) {
		r.beforeEnd = fn
	}
}

type seat struct {
	Participant
	alive bool
	ships []board.Ship
	hits  map[board.Coordinate]struct{}
	shots int
}

// Round is a single game. It is played once.
type Round struct {
	settings  Settings
	seats     []*seat
	journal   Appender
	logf      func(string, ...any)
	beforeEnd func(context.Context, Result) error

	phase  atomic.Int32
	played atomic.Bool
	result Result
}

// New prepares a round. At least two participants are required.
func New(settings Settings, participants []Participant, journal Appender, opts ...Option) (*Round, error) {
	if len(participants) < 2 {
		return nil, fmt.Errorf("round needs at least two participants, got %d", len(participants))
	}
	if journal == nil {
		return nil, fmt.Errorf("journal is required")
	}
	if err := settings.Board.Validate(); err != nil {
		return nil, fmt.Errorf("board config: %w", err)
	}
	r := &Round{
		settings: settings,
		journal:  journal,
		logf:     log.Printf,
	}
	for _, p := range participants {
		if p.Adapter == nil || p.PlayerID == "" {
			return nil, fmt.Errorf("participant requires player id and adapter")
		}
		r.seats = append(r.seats, &seat{Participant: p})
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Phase returns the current phase. Safe to call from any goroutine.
func (r *Round) Phase() Phase {
	return Phase(r.phase.Load())
}

func (r *Round) setPhase(p Phase) {
	r.phase.Store(int32(p))
}

// FirstShooter returns the seat index that shoots first. It depends only on
// the seed and the round number.
func FirstShooter(seed int64, number, seats int) int {
	src := rand.NewPCG(uint64(random.Derive(seed, uint64(number))), uint64(number))
	return rand.New(src).IntN(seats)
}

// Play runs the round to resolution. The only errors returned are journal
// failures; competitor misbehavior is folded into the result.
func (r *Round) Play(ctx context.Context) (Result, error) {
	if !r.played.CompareAndSwap(false, true) {
		return Result{}, fmt.Errorf("round %d already played", r.settings.Number)
	}
	r.result = Result{
		RoundID: r.settings.RoundID,
		Number:  r.settings.Number,
		Exits:   make(map[string]Reason),
	}

	first := FirstShooter(r.settings.Seed, r.settings.Number, len(r.seats))
	if err := r.setup(ctx, first); err != nil {
		return Result{}, err
	}
	if err := r.placement(ctx); err != nil {
		return Result{}, err
	}
	if err := r.shooting(ctx, first); err != nil {
		return Result{}, err
	}
	if err := r.resolve(ctx); err != nil {
		return Result{}, err
	}
	return r.result, nil
}

func (r *Round) setup(ctx context.Context, first int) error {
	r.setPhase(Setup)
	ids := make([]string, len(r.seats))
	for i, s := range r.seats {
		ids[i] = s.PlayerID
	}
	if err := r.append(ctx, event.TypeRoundBegin, "", event.RoundBeginPayload{
		Number:       r.settings.Number,
		PlayerIDs:    ids,
		FirstShooter: ids[first],
	}); err != nil {
		return err
	}

	info := competitor.GameInfo{
		Board:     r.settings.Board.Clone(),
		TimeLimit: r.settings.TimeLimit,
		Seed:      r.settings.Seed,
	}
	for _, s := range r.seats {
		s.alive = true
		s.hits = make(map[board.Coordinate]struct{})
		s.shots = 0
		if out := s.Adapter.NewGame(info); out != adapter.OK {
			if err := r.forfeit(ctx, s, reasonFor(out), errDetail(s.Adapter.Fault())); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Round) placement(ctx context.Context) error {
	r.setPhase(Placement)
	for _, s := range r.seats {
		if !s.alive {
			continue
		}
		if out := s.Adapter.PlaceShips(); out != adapter.OK {
			if err := r.forfeit(ctx, s, reasonFor(out), errDetail(s.Adapter.Fault())); err != nil {
				return err
			}
			continue
		}
		if !s.Adapter.ShipsReady() {
			if err := r.forfeit(ctx, s, ReasonInvalidPlacement, errDetail(s.Adapter.LayoutError())); err != nil {
				return err
			}
			continue
		}
		s.ships = s.Adapter.Ships()
		if err := r.append(ctx, event.TypeShipsPlaced, s.PlayerID, event.ShipsPlacedPayload{Ships: s.ships}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Round) shooting(ctx context.Context, first int) error {
	r.setPhase(Shooting)
	maxShots := r.settings.Board.Width * r.settings.Board.Height * (len(r.seats) - 1)
	shooter := r.nextAlive(first - 1)
	for r.aliveCount() > 1 {
		s := r.seats[shooter]
		target := r.seats[r.nextAlive(shooter)]
		r.result.Turns++

		if s.shots >= maxShots {
			if err := r.forfeit(ctx, s, ReasonFault, "shot limit exceeded"); err != nil {
				return err
			}
			shooter = r.nextAlive(shooter)
			continue
		}
		s.Adapter.Aim(target.PlayerID)
		shot, out := s.Adapter.GetShot()
		if out != adapter.OK {
			if err := r.forfeit(ctx, s, reasonFor(out), errDetail(s.Adapter.Fault())); err != nil {
				return err
			}
			shooter = r.nextAlive(shooter)
			continue
		}
		if err := r.fire(ctx, s, target, shot); err != nil {
			return err
		}
		shooter = r.nextAlive(shooter)
	}
	return nil
}

// fire classifies one shot, records it and notifies both sides.
func (r *Round) fire(ctx context.Context, s, target *seat, shot adapter.Shot) error {
	s.shots++
	r.result.Shots++
	if err := r.append(ctx, event.TypeShotFired, s.PlayerID, event.ShotFiredPayload{
		Target:  target.PlayerID,
		At:      shot.At,
		Clamped: shot.Clamped,
	}); err != nil {
		return err
	}

	outcome := event.ShotMiss
	sunk, eliminated := false, false
	if idx := board.ShipAt(target.ships, shot.At); idx >= 0 {
		target.hits[shot.At] = struct{}{}
		outcome = event.ShotHit
		if target.ships[idx].IsSunk(target.hits) {
			outcome = event.ShotSunk
			sunk = true
			eliminated = board.AllSunk(target.ships, target.hits)
		}
	}
	if err := r.append(ctx, event.TypeShotResult, s.PlayerID, event.ShotResultPayload{
		Target:     target.PlayerID,
		At:         shot.At,
		Outcome:    outcome,
		Eliminated: eliminated,
	}); err != nil {
		return err
	}

	targetOut := target.Adapter.OpponentShot(shot.At)
	if eliminated {
		r.eliminate(target, ReasonSunk)
	} else if targetOut != adapter.OK {
		if err := r.forfeit(ctx, target, reasonFor(targetOut), errDetail(target.Adapter.Fault())); err != nil {
			return err
		}
	}

	var out adapter.Outcome
	if outcome == event.ShotMiss {
		out = s.Adapter.ShotMiss(shot.At)
	} else {
		out = s.Adapter.ShotHit(shot.At, sunk)
	}
	if out == adapter.OK {
		return nil
	}
	// The last player standing keeps the win even if the final
	// notification fails.
	if r.aliveCount() <= 1 {
		r.logf("round %d: %s after winning shot: %s", r.settings.Number, s.Adapter.Identity(), out)
		return nil
	}
	return r.forfeit(ctx, s, reasonFor(out), errDetail(s.Adapter.Fault()))
}

func (r *Round) resolve(ctx context.Context) error {
	r.setPhase(Resolved)
	for _, s := range r.seats {
		if s.alive {
			r.result.Winner = s.PlayerID
		}
	}
	switch {
	case r.result.Winner == "":
		r.result.Draw = true
		r.result.Reason = ReasonAllForfeited
	case len(r.result.Losers) > 0:
		r.result.Reason = r.result.Exits[r.result.Losers[len(r.result.Losers)-1]]
	}

	for _, s := range r.seats {
		var out adapter.Outcome
		if s.PlayerID == r.result.Winner {
			out = s.Adapter.GameWon()
		} else {
			out = s.Adapter.GameLost()
		}
		if out != adapter.OK {
			r.logf("round %d: end-of-game notification to %s: %s", r.settings.Number, s.Adapter.Identity(), out)
		}
	}

	if r.beforeEnd != nil {
		if err := r.beforeEnd(ctx, r.result); err != nil {
			return fmt.Errorf("round %d before end: %w", r.settings.Number, err)
		}
	}
	return r.append(ctx, event.TypeRoundEnd, "", event.RoundEndPayload{
		Number: r.result.Number,
		Winner: r.result.Winner,
		Losers: r.result.Losers,
		Draw:   r.result.Draw,
		Reason: string(r.result.Reason),
		Turns:  r.result.Turns,
		Shots:  r.result.Shots,
	})
}

func (r *Round) forfeit(ctx context.Context, s *seat, reason Reason, detail string) error {
	if !s.alive {
		return nil
	}
	r.eliminate(s, reason)
	return r.append(ctx, event.TypePlayerForfeited, s.PlayerID, event.PlayerForfeitedPayload{
		Reason: string(reason),
		Detail: detail,
	})
}

func (r *Round) eliminate(s *seat, reason Reason) {
	s.alive = false
	r.result.Losers = append(r.result.Losers, s.PlayerID)
	r.result.Exits[s.PlayerID] = reason
}

func (r *Round) aliveCount() int {
	n := 0
	for _, s := range r.seats {
		if s.alive {
			n++
		}
	}
	return n
}

// nextAlive returns the first alive seat after from, wrapping around. When
// no seat is alive it returns from.
func (r *Round) nextAlive(from int) int {
	n := len(r.seats)
	for step := 1; step <= n; step++ {
		idx := ((from+step)%n + n) % n
		if r.seats[idx].alive {
			return idx
		}
	}
	return from
}

func (r *Round) append(ctx context.Context, typ event.Type, playerID string, payload any) error {
	evt, err := event.New(r.settings.MatchID, typ, payload)
	if err != nil {
		return err
	}
	evt = evt.ForRound(r.settings.RoundID).ForPlayer(playerID)
	if _, err := r.journal.Append(ctx, evt); err != nil {
		return fmt.Errorf("append %s: %w", typ, err)
	}
	return nil
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
