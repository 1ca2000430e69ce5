// Package match orchestrates rounds between registered competitors under a
// termination policy and records everything in the match journal.
//
// Competitor calls happen on the goroutine executing the current round
// (the driver while it runs, or a manual PlayRound caller). Other goroutines
// read the journal, or the snapshots returned by Players and Rounds.
package match

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/broadside/internal/platform/id"
	"github.com/louisbranch/broadside/internal/services/arena/domain/accolade"
	"github.com/louisbranch/broadside/internal/services/arena/domain/adapter"
	"github.com/louisbranch/broadside/internal/services/arena/domain/competitor"
	"github.com/louisbranch/broadside/internal/services/arena/domain/driver"
	"github.com/louisbranch/broadside/internal/services/arena/domain/event"
	"github.com/louisbranch/broadside/internal/services/arena/domain/journal"
	"github.com/louisbranch/broadside/internal/services/arena/domain/round"
)

const tracerName = "github.com/louisbranch/broadside/internal/services/arena/domain/match"

// Player is a snapshot of a registered player.
type Player struct {
	ID       string
	Identity competitor.Identity
	Seat     int
	Score    int
	Late     bool
}

type entry struct {
	player  Player
	adapter *adapter.Adapter
}

// Option configures a Match.
type Option func(*Match)

// WithJournal records into j instead of a fresh journal.
func WithJournal(j *journal.Journal) Option {
	return func(m *Match) {
		if j != nil {
			m.journal = j
		}
	}
}

// WithClock overrides the clock used to time competitor calls.
func WithClock(clock func() time.Time) Option {
	return func(m *Match) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithIDs overrides the id generator for match, round and player ids.
func WithIDs(gen id.Generator) Option {
	return func(m *Match) {
		if gen != nil {
			m.ids = gen
		}
	}
}

// WithLogf overrides the logger handed to adapters and rounds.
func WithLogf(logf func(string, ...any)) Option {
	return func(m *Match) {
		if logf != nil {
			m.logf = logf
		}
	}
}

// WithAccolades evaluates processors at the end of every round and appends
// a round.accolade event per award before round.end.
func WithAccolades(processors ...accolade.Processor) Option {
	return func(m *Match) {
		m.accolades = append(m.accolades, processors...)
	}
}

// WithTracer overrides the tracer used for per-round spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Match) {
		if tracer != nil {
			m.tracer = tracer
		}
	}
}

// WithAdapterOptions appends options applied to every competitor adapter.
func WithAdapterOptions(opts ...adapter.Option) Option {
	return func(m *Match) {
		m.adapterOpts = append(m.adapterOpts, opts...)
	}
}

// Match owns the players, the round history and the journal.
type Match struct {
	id          string
	cfg         Config
	journal     *journal.Journal
	clock       func() time.Time
	ids         id.Generator
	logf        func(string, ...any)
	tracer      trace.Tracer
	accolades   []accolade.Processor
	adapterOpts []adapter.Option
	driver      *driver.Driver

	// stepping serializes round execution and End.
	stepping sync.Mutex

	mu            sync.Mutex
	players       []*entry
	pending       []*entry
	rounds        []round.Result
	started       bool
	finished      bool
	ended         bool
	matchOverSent bool
}

// New validates cfg and returns an idle match. Configuration problems are
// returned as errors matching ErrConfiguration.
func New(cfg Config, opts ...Option) (*Match, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Match{
		cfg:    cfg.clone(),
		clock:  time.Now,
		ids:    id.NewID,
		logf:   log.Printf,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.journal == nil {
		m.journal = journal.New(journal.WithLogf(m.logf))
	}
	matchID, err := m.ids()
	if err != nil {
		return nil, fmt.Errorf("generate match id: %w", err)
	}
	m.id = matchID
	m.driver = driver.New(m.step)
	return m, nil
}

// ID returns the match id.
func (m *Match) ID() string { return m.id }

// Config returns a copy of the match configuration.
func (m *Match) Config() Config { return m.cfg.clone() }

// Journal returns the match journal.
func (m *Match) Journal() *journal.Journal { return m.journal }

// AddController seats c and returns its player id. After the first round
// has started this fails with ErrInvalidOperation unless late joins are
// allowed; late joiners are announced and take their seat at the next round
// boundary.
func (m *Match) AddController(ctx context.Context, c competitor.Competitor) (string, error) {
	if c == nil {
		return "", fmt.Errorf("competitor is required")
	}
	m.mu.Lock()
	ended, started := m.ended, m.started
	m.mu.Unlock()
	if ended {
		return "", ErrMatchEnded
	}
	// Before the first round the announcement must land ahead of
	// match.begin, so hold the round guard while adding.
	if !started {
		m.stepping.Lock()
		defer m.stepping.Unlock()
	}

	m.mu.Lock()
	if m.ended {
		m.mu.Unlock()
		return "", ErrMatchEnded
	}
	if m.started && !m.cfg.AllowLateJoin {
		m.mu.Unlock()
		return "", fmt.Errorf("add controller after start: %w", ErrInvalidOperation)
	}
	playerID, err := m.ids()
	if err != nil {
		m.mu.Unlock()
		return "", fmt.Errorf("generate player id: %w", err)
	}
	opts := append([]adapter.Option{adapter.WithClock(m.clock), adapter.WithLogf(m.logf)}, m.adapterOpts...)
	e := &entry{adapter: adapter.New(c, opts...)}
	e.player = Player{
		ID:       playerID,
		Identity: e.adapter.Identity(),
		Seat:     len(m.players) + len(m.pending),
		Late:     m.started,
	}
	if m.started {
		m.pending = append(m.pending, e)
		m.mu.Unlock()
		return playerID, nil
	}
	m.players = append(m.players, e)
	m.mu.Unlock()

	if err := m.announce(ctx, e); err != nil {
		m.mu.Lock()
		m.players = slices.DeleteFunc(m.players, func(other *entry) bool { return other == e })
		m.mu.Unlock()
		return "", err
	}
	return playerID, nil
}

func (m *Match) announce(ctx context.Context, e *entry) error {
	evt, err := event.New(m.id, event.TypePlayerAdded, event.PlayerAddedPayload{
		Name:    e.player.Identity.Name,
		Version: e.player.Identity.Version,
		Seat:    e.player.Seat,
		Late:    e.player.Late,
	})
	if err != nil {
		return err
	}
	if _, err := m.journal.Append(ctx, evt.ForPlayer(e.player.ID)); err != nil {
		return fmt.Errorf("append player added: %w", err)
	}
	return nil
}

// PlayRound plays exactly one round unless the match is already finished,
// in which case it returns true without playing. It returns whether the
// match is finished. It fails with ErrDriverRunning while the driver owns
// the match.
func (m *Match) PlayRound(ctx context.Context) (bool, error) {
	if m.driver.Running() {
		return false, ErrDriverRunning
	}
	return m.step(ctx)
}

// step plays the next round. Cancellation is honored only before a round
// starts; once round.begin is appended the round runs to round.end.
func (m *Match) step(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return m.Finished(), err
	}
	ctx = context.WithoutCancel(ctx)
	if !m.stepping.TryLock() {
		return false, fmt.Errorf("round already in progress: %w", ErrInvalidOperation)
	}
	defer m.stepping.Unlock()

	m.mu.Lock()
	if m.ended {
		m.mu.Unlock()
		return m.Finished(), ErrMatchEnded
	}
	if len(m.players)+len(m.pending) < 2 {
		m.mu.Unlock()
		return false, ErrPlayersRequired
	}
	beginning := !m.started
	m.started = true
	finished := m.finished
	m.mu.Unlock()

	if beginning {
		if err := m.begin(ctx); err != nil {
			return false, err
		}
	}
	if finished {
		return true, nil
	}
	if err := m.seatPending(ctx); err != nil {
		return false, err
	}
	return m.playNext(ctx)
}

// begin introduces every seated player to its opponents and appends
// match.begin.
func (m *Match) begin(ctx context.Context) error {
	seated := m.seated()
	ids := make([]string, len(seated))
	for i, e := range seated {
		ids[i] = e.player.ID
	}
	if err := m.appendMatch(ctx, event.TypeMatchBegin, event.MatchBeginPayload{
		Board:         m.cfg.Board,
		GameMode:      m.cfg.modeNames(),
		RoundsMode:    string(m.cfg.RoundsMode),
		Rounds:        m.cfg.Rounds,
		PerGameLimit:  m.cfg.PerGameTimeout,
		AllowLateJoin: m.cfg.AllowLateJoin,
		Seed:          m.cfg.Seed,
		PlayerIDs:     ids,
	}); err != nil {
		return err
	}
	for _, e := range seated {
		m.introduce(e, seated)
	}
	return nil
}

func (m *Match) introduce(e *entry, seated []*entry) {
	var names []string
	for _, other := range seated {
		if other != e {
			names = append(names, other.player.Identity.String())
		}
	}
	if out := e.adapter.NewMatch(strings.Join(names, ", ")); out != adapter.OK {
		m.logf("match %s: NewMatch for %s: %s", m.id, e.player.Identity, out)
	}
}

// seatPending moves late joiners into their seats at a round boundary.
func (m *Match) seatPending(ctx context.Context) error {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.players = append(m.players, pending...)
	m.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	seated := m.seated()
	for _, e := range pending {
		if err := m.announce(ctx, e); err != nil {
			return err
		}
		m.introduce(e, seated)
	}
	return nil
}

func (m *Match) playNext(ctx context.Context) (bool, error) {
	seated := m.seated()
	m.mu.Lock()
	number := len(m.rounds) + 1
	m.mu.Unlock()

	roundID, err := m.ids()
	if err != nil {
		return false, fmt.Errorf("generate round id: %w", err)
	}
	ctx, span := m.tracer.Start(ctx, "arena.round", trace.WithAttributes(
		attribute.String("arena.match_id", m.id),
		attribute.String("arena.round_id", roundID),
		attribute.Int("arena.round", number),
		attribute.Int("arena.players", len(seated)),
	))
	defer span.End()

	participants := make([]round.Participant, len(seated))
	for i, e := range seated {
		participants[i] = round.Participant{PlayerID: e.player.ID, Adapter: e.adapter}
	}
	startSeq := uint64(m.journal.Len())
	r, err := round.New(round.Settings{
		MatchID:   m.id,
		RoundID:   roundID,
		Number:    number,
		Board:     m.cfg.Board,
		TimeLimit: m.cfg.PerGameTimeout,
		Seed:      m.cfg.Seed,
	}, participants, m.journal, round.WithLogf(m.logf), round.WithBeforeEnd(func(ctx context.Context, _ round.Result) error {
		return m.awardAccolades(ctx, startSeq)
	}))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("create round %d: %w", number, err)
	}
	res, err := r.Play(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("play round %d: %w", number, err)
	}
	span.SetAttributes(
		attribute.String("arena.winner", res.Winner),
		attribute.String("arena.reason", string(res.Reason)),
		attribute.Bool("arena.draw", res.Draw),
		attribute.Int("arena.shots", res.Shots),
	)

	// Scores change only once round.end is in the journal.
	m.score(res)
	m.mu.Lock()
	m.rounds = append(m.rounds, res)
	scores := make([]int, len(m.players))
	for i, e := range m.players {
		scores[i] = e.player.Score
	}
	m.finished = m.cfg.Finished(len(m.rounds), scores)
	finished := m.finished
	m.mu.Unlock()

	if finished {
		m.deliverMatchOver()
	}
	return finished, nil
}

func (m *Match) score(res round.Result) {
	if res.Winner == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.players {
		if e.player.ID == res.Winner {
			e.player.Score++
			return
		}
	}
}

func (m *Match) awardAccolades(ctx context.Context, afterSeq uint64) error {
	if len(m.accolades) == 0 {
		return nil
	}
	for _, award := range accolade.Evaluate(m.journal.ListEvents(afterSeq, 0), m.accolades...) {
		evt, err := event.New(m.id, event.TypeRoundAccolade, event.RoundAccoladePayload{
			Accolade: award.Accolade,
			Detail:   award.Detail,
		})
		if err != nil {
			return err
		}
		if _, err := m.journal.Append(ctx, evt.ForRound(award.RoundID).ForPlayer(award.PlayerID)); err != nil {
			return fmt.Errorf("append accolade: %w", err)
		}
	}
	return nil
}

func (m *Match) deliverMatchOver() {
	m.mu.Lock()
	if m.matchOverSent || !m.started {
		m.mu.Unlock()
		return
	}
	m.matchOverSent = true
	seated := slices.Clone(m.players)
	m.mu.Unlock()
	for _, e := range seated {
		if out := e.adapter.MatchOver(); out != adapter.OK {
			m.logf("match %s: MatchOver for %s: %s", m.id, e.player.Identity, out)
		}
	}
}

// Start runs rounds on the background driver until the match finishes,
// Stop is called or ctx is canceled.
func (m *Match) Start(ctx context.Context) error {
	m.mu.Lock()
	ended := m.ended
	m.mu.Unlock()
	if ended {
		return ErrMatchEnded
	}
	return m.driver.Start(ctx)
}

// Stop asks the driver to exit after the current round.
func (m *Match) Stop() { m.driver.Stop() }

// Wait blocks until the driver exits and returns the error that ended it.
func (m *Match) Wait() error { return m.driver.Join() }

// Running reports whether the driver is active.
func (m *Match) Running() bool { return m.driver.Running() }

// End stops the driver, waits for it, delivers MatchOver if it was not yet
// delivered and appends match.end. Nothing is appended after match.end.
// Calling End again is a no-op.
func (m *Match) End(ctx context.Context) error {
	m.driver.Stop()
	loopErr := m.driver.Join()

	m.stepping.Lock()
	defer m.stepping.Unlock()

	m.mu.Lock()
	if m.ended {
		m.mu.Unlock()
		return nil
	}
	m.ended = true
	m.mu.Unlock()

	m.deliverMatchOver()

	m.mu.Lock()
	scores := make(map[string]int, len(m.players))
	for _, e := range m.players {
		scores[e.player.ID] = e.player.Score
	}
	payload := event.MatchEndPayload{
		RoundsPlayed: len(m.rounds),
		Finished:     m.finished,
		Scores:       scores,
	}
	m.mu.Unlock()

	if err := m.appendMatch(context.WithoutCancel(ctx), event.TypeMatchEnd, payload); err != nil {
		return err
	}
	if loopErr != nil {
		return fmt.Errorf("driver: %w", loopErr)
	}
	return nil
}

// Finished reports whether the termination policy is satisfied.
func (m *Match) Finished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished
}

// Ended reports whether End has completed.
func (m *Match) Ended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ended
}

// Players returns a snapshot of every registered player, including late
// joiners waiting for their seat.
func (m *Match) Players() []Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Player, 0, len(m.players)+len(m.pending))
	for _, e := range m.players {
		out = append(out, e.player)
	}
	for _, e := range m.pending {
		out = append(out, e.player)
	}
	return out
}

// Rounds returns the completed round results in play order.
func (m *Match) Rounds() []round.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.rounds)
}

func (m *Match) seated() []*entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.players)
}

func (m *Match) appendMatch(ctx context.Context, typ event.Type, payload any) error {
	evt, err := event.New(m.id, typ, payload)
	if err != nil {
		return err
	}
	if _, err := m.journal.Append(ctx, evt); err != nil {
		return fmt.Errorf("append %s: %w", typ, err)
	}
	return nil
}
