package adapter

import (
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/broadside/internal/services/arena/domain/board"
	"github.com/louisbranch/broadside/internal/services/arena/domain/competitor"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// scripted charges cost to the clock on every call and answers GetShot from
// a queue.
type scripted struct {
	competitor.Base
	clock   *fakeClock
	costs   []time.Duration
	shots   []board.Coordinate
	layout  []board.Ship
	calls   int
	panicOn string
	errOn   string
	won     int
	lost    int
	over    int
}

func (s *scripted) charge(name string) error {
	if len(s.costs) > 0 {
		s.clock.Advance(s.costs[0])
		s.costs = s.costs[1:]
	}
	s.calls++
	if s.panicOn == name {
		panic("kaboom")
	}
	if s.errOn == name {
		return errors.New("nope")
	}
	return nil
}

func (s *scripted) Identity() competitor.Identity {
	return competitor.Identity{Name: "Scripted", Version: "1"}
}
func (s *scripted) NewGame(competitor.GameInfo) error { return s.charge("NewGame") }
func (s *scripted) PlaceShips(ships []board.Ship) ([]board.Ship, error) {
	if err := s.charge("PlaceShips"); err != nil {
		return nil, err
	}
	if s.layout != nil {
		return s.layout, nil
	}
	return ships, nil
}
func (s *scripted) GetShot() (board.Coordinate, error) {
	if err := s.charge("GetShot"); err != nil {
		return board.Coordinate{}, err
	}
	shot := s.shots[0]
	if len(s.shots) > 1 {
		s.shots = s.shots[1:]
	}
	return shot, nil
}
func (s *scripted) OpponentShot(board.Coordinate) error { return s.charge("OpponentShot") }
func (s *scripted) ShotMiss(board.Coordinate) error { return s.charge("ShotMiss") }
func (s *scripted) GameWon() error { s.won++; return s.charge("GameWon") }
func (s *scripted) GameLost() error { s.lost++; return s.charge("GameLost") }
func (s *scripted) MatchOver() error { s.over++; return s.charge("MatchOver") }

func newScripted(t *testing.T, s *scripted, limit time.Duration, opts ...Option) *Adapter {
	t.Helper()
	if s.clock == nil {
		s.clock = &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	}
	opts = append([]Option{WithClock(s.clock.Now), WithLogf(t.Logf)}, opts...)
	a := New(s, opts...)
	if out := a.NewGame(competitor.GameInfo{Board: board.Default(), TimeLimit: limit}); out != OK {
		t.Fatalf("new game outcome = %s", out)
	}
	return a
}

func TestCumulativeBudgetTimesOutThirdCall(t *testing.T) {
	s := &scripted{}
	a := newScripted(t, s, 100*time.Millisecond)
	s.costs = []time.Duration{40 * time.Millisecond, 40 * time.Millisecond, 30 * time.Millisecond}
	at := board.Coordinate{X: 1, Y: 1}

	if out := a.OpponentShot(at); out != OK {
		t.Fatalf("first call = %s, want ok", out)
	}
	if out := a.ShotMiss(at); out != OK {
		t.Fatalf("second call = %s, want ok", out)
	}
	if out := a.OpponentShot(at); out != TimedOut {
		t.Fatalf("third call = %s, want timed_out", out)
	}
	calls := s.calls
	if out := a.ShotMiss(at); out != TimedOut {
		t.Fatalf("fourth call = %s, want timed_out", out)
	}
	shot, out := a.GetShot()
	if out != TimedOut || shot.At != Forfeit {
		t.Fatalf("get shot = %v/%s, want forfeit/timed_out", shot.At, out)
	}
	if s.calls != calls {
		t.Fatalf("competitor called %d more times after timing out", s.calls-calls)
	}

	if out := a.NewGame(competitor.GameInfo{Board: board.Default(), TimeLimit: 100 * time.Millisecond}); out != OK {
		t.Fatalf("new game after timeout = %s, want ok", out)
	}
	if a.Elapsed() != 0 || a.TimedOut() {
		t.Fatalf("expected NewGame to reset the budget, elapsed %s", a.Elapsed())
	}
}

func TestBudgetIsStrictlyGreaterThan(t *testing.T) {
	s := &scripted{}
	a := newScripted(t, s, 100*time.Millisecond)
	s.costs = []time.Duration{100 * time.Millisecond}
	if out := a.ShotMiss(board.Coordinate{}); out != OK {
		t.Fatalf("call using exactly the budget = %s, want ok", out)
	}
}

func TestNewMatchDoesNotResetBudget(t *testing.T) {
	s := &scripted{}
	a := newScripted(t, s, time.Second)
	s.costs = []time.Duration{300 * time.Millisecond, 0}
	a.ShotMiss(board.Coordinate{})
	a.NewMatch("other")
	if a.Elapsed() != 300*time.Millisecond {
		t.Fatalf("elapsed = %s, want 300ms", a.Elapsed())
	}
}

func TestGetShotDiscardsDuplicatesAndClamps(t *testing.T) {
	s := &scripted{shots: []board.Coordinate{
		{X: 2, Y: 3}, {X: 2, Y: 3}, {X: -1, Y: 3}, {X: 0, Y: 3}, {X: 2, Y: 3}, {X: 4, Y: 4},
	}}
	a := newScripted(t, s, time.Second)

	first, out := a.GetShot()
	if out != OK || first.At != (board.Coordinate{X: 2, Y: 3}) {
		t.Fatalf("first shot = %+v/%s", first, out)
	}
	second, out := a.GetShot()
	if out != OK || second.At != (board.Coordinate{X: 0, Y: 3}) || !second.Clamped || second.Retries != 1 {
		t.Fatalf("second shot = %+v/%s", second, out)
	}
	third, out := a.GetShot()
	if out != OK || third.At != (board.Coordinate{X: 4, Y: 4}) || third.Retries != 2 {
		t.Fatalf("third shot = %+v/%s", third, out)
	}

	seen := map[board.Coordinate]bool{}
	for _, c := range a.Shots() {
		if seen[c] {
			t.Fatalf("duplicate shot %s recorded", c)
		}
		seen[c] = true
	}
	if len(seen) != 3 {
		t.Fatalf("recorded %d shots, want 3", len(seen))
	}
}

func TestGetShotDuplicatesArePerTarget(t *testing.T) {
	s := &scripted{shots: []board.Coordinate{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 2}}}
	a := newScripted(t, s, time.Hour)

	a.Aim("p1")
	if shot, out := a.GetShot(); out != OK || shot.At != (board.Coordinate{X: 1, Y: 1}) {
		t.Fatalf("shot at p1 = %+v/%s", shot, out)
	}
	a.Aim("p2")
	shot, out := a.GetShot()
	if out != OK || shot.At != (board.Coordinate{X: 1, Y: 1}) || shot.Retries != 0 {
		t.Fatalf("same cell at p2 = %+v/%s, want accepted without retry", shot, out)
	}
	a.Aim("p1")
	shot, out = a.GetShot()
	if out != OK || shot.At != (board.Coordinate{X: 2, Y: 2}) || shot.Retries != 1 {
		t.Fatalf("repeat at p1 = %+v/%s, want (2,2) after one retry", shot, out)
	}

	if out := a.NewGame(competitor.GameInfo{Board: board.Default(), TimeLimit: time.Hour}); out != OK {
		t.Fatalf("new game outcome = %s", out)
	}
	a.Aim("p1")
	if shot, out := a.GetShot(); out != OK || shot.At != (board.Coordinate{X: 2, Y: 2}) || shot.Retries != 0 {
		t.Fatalf("first shot of new game = %+v/%s", shot, out)
	}
}

func TestGetShotRetriesAreBounded(t *testing.T) {
	s := &scripted{shots: []board.Coordinate{{X: 1, Y: 1}}}
	a := newScripted(t, s, time.Hour, WithMaxShotRetries(5))
	if _, out := a.GetShot(); out != OK {
		t.Fatalf("first shot outcome = %s", out)
	}
	shot, out := a.GetShot()
	if out != Fault || shot.At != Forfeit {
		t.Fatalf("repeating competitor = %v/%s, want forfeit/fault", shot.At, out)
	}
	if !errors.Is(a.Fault(), ErrTooManyRetries) {
		t.Fatalf("fault = %v", a.Fault())
	}
}

func TestGetShotRetriesConsumeBudget(t *testing.T) {
	s := &scripted{shots: []board.Coordinate{{X: 1, Y: 1}}}
	a := newScripted(t, s, 50*time.Millisecond)
	s.costs = []time.Duration{0, 20 * time.Millisecond, 20 * time.Millisecond, 20 * time.Millisecond}
	a.GetShot()
	if _, out := a.GetShot(); out != TimedOut {
		t.Fatalf("outcome = %s, want timed_out", out)
	}
}

func TestPanicsBecomeFaults(t *testing.T) {
	s := &scripted{panicOn: "OpponentShot"}
	a := newScripted(t, s, time.Second)
	if out := a.OpponentShot(board.Coordinate{}); out != Fault {
		t.Fatalf("outcome = %s, want fault", out)
	}
	if a.Fault() == nil {
		t.Fatal("expected fault to be recorded")
	}
	if out := a.ShotMiss(board.Coordinate{}); out != Fault {
		t.Fatalf("call after fault = %s, want fault", out)
	}
}

func TestEndOfGameNotificationsDeliveredOnceAfterTimeout(t *testing.T) {
	s := &scripted{}
	a := newScripted(t, s, 10*time.Millisecond)
	s.costs = []time.Duration{20 * time.Millisecond}
	a.ShotMiss(board.Coordinate{})
	if !a.TimedOut() {
		t.Fatal("expected timeout")
	}
	a.GameLost()
	a.GameLost()
	a.GameWon()
	a.MatchOver()
	a.MatchOver()
	if s.lost != 1 || s.won != 0 || s.over != 1 {
		t.Fatalf("won/lost/over = %d/%d/%d, want 0/1/1", s.won, s.lost, s.over)
	}
}

func TestPlaceShipsAndShipsReady(t *testing.T) {
	good := []board.Ship{
		board.NewShip(2).Place(board.Coordinate{X: 0, Y: 0}, board.Horizontal),
		board.NewShip(3).Place(board.Coordinate{X: 0, Y: 1}, board.Horizontal),
		board.NewShip(3).Place(board.Coordinate{X: 0, Y: 2}, board.Horizontal),
		board.NewShip(4).Place(board.Coordinate{X: 0, Y: 3}, board.Horizontal),
		board.NewShip(5).Place(board.Coordinate{X: 0, Y: 4}, board.Horizontal),
	}
	s := &scripted{layout: good}
	a := newScripted(t, s, time.Second)
	if out := a.PlaceShips(); out != OK {
		t.Fatalf("place ships = %s", out)
	}
	if !a.ShipsReady() {
		t.Fatalf("expected layout to be ready: %v", a.LayoutError())
	}

	overlapping := append([]board.Ship{}, good...)
	overlapping[4] = board.NewShip(5).Place(board.Coordinate{X: 0, Y: 3}, board.Horizontal)
	s.layout = overlapping
	a.PlaceShips()
	if a.ShipsReady() {
		t.Fatal("expected overlapping layout to be rejected")
	}

	resized := append([]board.Ship{}, good...)
	resized[0] = board.NewShip(1).Place(board.Coordinate{X: 9, Y: 9}, board.Horizontal)
	s.layout = resized
	a.PlaceShips()
	if a.ShipsReady() {
		t.Fatal("expected ship with a different length to stay unplaced")
	}

	s.layout = good[:3]
	a.PlaceShips()
	if a.ShipsReady() {
		t.Fatal("expected short layout to be rejected")
	}
}

func TestUnplacedFleetIsNotReady(t *testing.T) {
	a := newScripted(t, &scripted{}, time.Second)
	if out := a.PlaceShips(); out != OK {
		t.Fatalf("place ships = %s", out)
	}
	if a.ShipsReady() {
		t.Fatal("expected competitor that placed nothing to be not ready")
	}
}

type panickyIdentity struct{ competitor.Base }

func (panickyIdentity) Identity() competitor.Identity { panic("who am i") }
func (panickyIdentity) PlaceShips([]board.Ship) ([]board.Ship, error) { return nil, nil }
func (panickyIdentity) GetShot() (board.Coordinate, error) { return board.Coordinate{}, nil }

func TestIdentityPanicIsContained(t *testing.T) {
	a := New(panickyIdentity{}, WithLogf(t.Logf))
	if a.Identity().Name != "unknown" {
		t.Fatalf("identity = %+v", a.Identity())
	}
}
