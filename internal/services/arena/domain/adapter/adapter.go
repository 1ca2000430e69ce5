// Package adapter wraps an untrusted competitor so the rest of the engine
// sees only time-bounded, well-formed outcomes.
//
// Every call into the competitor is timed and charged against a per-game
// budget that resets only on NewGame. Once the budget is exceeded the
// adapter stops calling the competitor for gameplay and reports TimedOut.
// Panics and returned errors become a Fault for the rest of the game.
package adapter

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/louisbranch/broadside/internal/services/arena/domain/board"
	"github.com/louisbranch/broadside/internal/services/arena/domain/competitor"
)

// DefaultMaxShotRetries bounds how many duplicate shots GetShot tolerates
// within one request before treating the competitor as faulty.
const DefaultMaxShotRetries = 10000

// Forfeit is returned by GetShot in place of a board position when the
// competitor can no longer shoot.
var Forfeit = board.Coordinate{X: -50, Y: -50}

// ErrTooManyRetries marks a competitor that kept repeating shots.
var ErrTooManyRetries = errors.New("competitor repeated shots too many times")

// Outcome is the result of one call into a competitor.
type Outcome int

const (
	// OK means the call returned within budget.
	OK Outcome = iota
	// TimedOut means the per-game budget is exhausted.
	TimedOut
	// Fault means the competitor panicked or returned an error.
	Fault
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case TimedOut:
		return "timed_out"
	case Fault:
		return "fault"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Shot is a legal, previously unseen shot returned by GetShot.
type Shot struct {
	At board.Coordinate
	// Clamped is set when a negative component was raised to zero.
	Clamped bool
	// Retries counts duplicate answers discarded before this one.
	Retries int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithClock overrides the clock used to time calls.
func WithClock(clock func() time.Time) Option {
	return func(a *Adapter) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithLogf overrides the logger used for timeouts, faults and clamped shots.
func WithLogf(logf func(string, ...any)) Option {
	return func(a *Adapter) {
		if logf != nil {
			a.logf = logf
		}
	}
}

// WithMaxShotRetries overrides DefaultMaxShotRetries.
func WithMaxShotRetries(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxRetries = n
		}
	}
}

// Adapter binds one competitor to its per-game state. It is not safe for
// concurrent use; the goroutine driving the match owns it.
type Adapter struct {
	competitor competitor.Competitor
	identity   competitor.Identity
	clock      func() time.Time
	logf       func(string, ...any)
	maxRetries int

	board    board.Config
	limit    time.Duration
	elapsed  time.Duration
	timedOut bool
	fault    error

	ships     []board.Ship
	shots     []board.Coordinate
	target    string
	shotSet   map[aimedShot]struct{}
	gameEnded bool
	matchOver bool
}

// New wraps c. The competitor's identity is read once here.
func New(c competitor.Competitor, opts ...Option) *Adapter {
	a := &Adapter{
		competitor: c,
		clock:      time.Now,
		logf:       log.Printf,
		maxRetries: DefaultMaxShotRetries,
		shotSet:    make(map[aimedShot]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	a.identity = a.readIdentity()
	return a
}

func (a *Adapter) readIdentity() (id competitor.Identity) {
	defer func() {
		if r := recover(); r != nil {
			a.logf("competitor identity panicked: %v", r)
			id = competitor.Identity{Name: "unknown"}
		}
	}()
	id = a.competitor.Identity()
	if id.Name == "" {
		id.Name = "unknown"
	}
	return id
}

// Identity returns the wrapped competitor's identity.
func (a *Adapter) Identity() competitor.Identity { return a.identity }

// Elapsed returns the time charged in the current game.
func (a *Adapter) Elapsed() time.Duration { return a.elapsed }

// TimedOut reports whether the current game's budget is exhausted.
func (a *Adapter) TimedOut() bool { return a.timedOut }

// Fault returns the failure that disqualified the competitor this game.
func (a *Adapter) Fault() error { return a.fault }

// Shots returns this game's shots in the order they were accepted.
func (a *Adapter) Shots() []board.Coordinate { return slices.Clone(a.shots) }

// Ships returns the layout from the last PlaceShips call.
func (a *Adapter) Ships() []board.Ship { return slices.Clone(a.ships) }

// Status is the sticky outcome of the current game so far.
func (a *Adapter) Status() Outcome {
	switch {
	case a.timedOut:
		return TimedOut
	case a.fault != nil:
		return Fault
	default:
		return OK
	}
}

// call times fn and folds the result into the game state. Gameplay calls
// short-circuit once the game is lost to a timeout or fault.
func (a *Adapter) call(name string, fn func() error) Outcome {
	if status := a.Status(); status != OK {
		return status
	}
	return a.invoke(name, fn)
}

func (a *Adapter) invoke(name string, fn func() error) Outcome {
	start := a.clock()
	err := guard(fn)
	a.elapsed += a.clock().Sub(start)

	if a.limit > 0 && a.elapsed > a.limit {
		if !a.timedOut {
			a.logf("%s timed out in %s: %s used of %s", a.identity, name, a.elapsed, a.limit)
		}
		a.timedOut = true
		return TimedOut
	}
	if err != nil {
		if a.fault == nil {
			a.logf("%s faulted in %s: %v", a.identity, name, err)
			a.fault = fmt.Errorf("%s: %w", name, err)
		}
		return Fault
	}
	return OK
}

func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// NewMatch introduces the opponent.
func (a *Adapter) NewMatch(opponent string) Outcome {
	a.matchOver = false
	return a.call("NewMatch", func() error { return a.competitor.NewMatch(opponent) })
}

// NewGame resets the per-game budget, shots and layout, then notifies the
// competitor. It is the only place the budget is reset.
func (a *Adapter) NewGame(info competitor.GameInfo) Outcome {
	a.board = info.Board.Clone()
	a.limit = info.TimeLimit
	a.elapsed = 0
	a.timedOut = false
	a.fault = nil
	a.ships = a.board.Fleet()
	a.shots = nil
	a.target = ""
	clear(a.shotSet)
	a.gameEnded = false
	return a.call("NewGame", func() error { return a.competitor.NewGame(info) })
}

// PlaceShips asks the competitor to place the configured fleet. Returned
// ships are accepted by position only when their lengths match the request.
func (a *Adapter) PlaceShips() Outcome {
	request := a.board.Fleet()
	var placed []board.Ship
	out := a.call("PlaceShips", func() error {
		var err error
		placed, err = a.competitor.PlaceShips(slices.Clone(request))
		return err
	})
	a.ships = request
	if out != OK || len(placed) != len(request) {
		return out
	}
	for i, s := range placed {
		if s.Length == request[i].Length {
			a.ships[i] = s
		}
	}
	return out
}

// ShipsReady reports whether the fleet is fully placed, on the board and
// free of overlaps.
func (a *Adapter) ShipsReady() bool {
	if len(a.ships) == 0 || len(a.ships) != len(a.board.ShipLengths) {
		return false
	}
	return board.ValidateLayout(a.ships, a.board.Width, a.board.Height) == nil
}

// LayoutError explains why ShipsReady is false.
func (a *Adapter) LayoutError() error {
	if len(a.ships) != len(a.board.ShipLengths) {
		return fmt.Errorf("expected %d ships, have %d", len(a.board.ShipLengths), len(a.ships))
	}
	return board.ValidateLayout(a.ships, a.board.Width, a.board.Height)
}

// aimedShot is a cell fired at one opponent's board.
type aimedShot struct {
	target string
	at     board.Coordinate
}

// Aim names the opponent the following shots land on. Duplicate detection
// is per opponent, so a cell already fired at one player may be fired at
// the next.
func (a *Adapter) Aim(target string) { a.target = target }

// GetShot asks for the next shot. Negative components are clamped to zero.
// Duplicates of an earlier shot at the current target this game are
// discarded and the competitor is asked again; each retry is charged to the budget. On timeout or fault
// the Forfeit coordinate is returned.
func (a *Adapter) GetShot() (Shot, Outcome) {
	for retries := 0; retries <= a.maxRetries; retries++ {
		var at board.Coordinate
		out := a.call("GetShot", func() error {
			var err error
			at, err = a.competitor.GetShot()
			return err
		})
		if out != OK {
			return Shot{At: Forfeit}, out
		}
		clamped := false
		if at.X < 0 || at.Y < 0 {
			a.logf("%s shot at %s, clamping to %s", a.identity, at, at.Clamp())
			at = at.Clamp()
			clamped = true
		}
		key := aimedShot{target: a.target, at: at}
		if _, seen := a.shotSet[key]; seen {
			continue
		}
		a.shotSet[key] = struct{}{}
		a.shots = append(a.shots, at)
		return Shot{At: at, Clamped: clamped, Retries: retries}, OK
	}
	a.fault = ErrTooManyRetries
	a.logf("%s faulted in GetShot: %v", a.identity, ErrTooManyRetries)
	return Shot{At: Forfeit}, Fault
}

// OpponentShot tells the competitor where it was shot at.
func (a *Adapter) OpponentShot(at board.Coordinate) Outcome {
	return a.call("OpponentShot", func() error { return a.competitor.OpponentShot(at) })
}

// ShotHit reports that the competitor's shot struck a ship.
func (a *Adapter) ShotHit(at board.Coordinate, sunk bool) Outcome {
	return a.call("ShotHit", func() error { return a.competitor.ShotHit(at, sunk) })
}

// ShotMiss reports that the competitor's shot struck water.
func (a *Adapter) ShotMiss(at board.Coordinate) Outcome {
	return a.call("ShotMiss", func() error { return a.competitor.ShotMiss(at) })
}

// GameWon delivers the win notification once per game, even after a
// timeout. Its outcome never changes the round result.
func (a *Adapter) GameWon() Outcome {
	return a.endOfGame("GameWon", a.competitor.GameWon)
}

// GameLost delivers the loss notification once per game, even after a
// timeout. Its outcome never changes the round result.
func (a *Adapter) GameLost() Outcome {
	return a.endOfGame("GameLost", a.competitor.GameLost)
}

func (a *Adapter) endOfGame(name string, fn func() error) Outcome {
	if a.gameEnded {
		return a.Status()
	}
	a.gameEnded = true
	return a.invoke(name, fn)
}

// MatchOver delivers the end-of-match notification at most once per match.
func (a *Adapter) MatchOver() Outcome {
	if a.matchOver {
		return OK
	}
	a.matchOver = true
	return a.invoke("MatchOver", a.competitor.MatchOver)
}
