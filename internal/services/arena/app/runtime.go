// Package app wires a match to its competitors, archive and health endpoint
// and runs it to completion.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/louisbranch/broadside/internal/platform/timeouts"
	"github.com/louisbranch/broadside/internal/random"
	"github.com/louisbranch/broadside/internal/services/arena/bots"
	"github.com/louisbranch/broadside/internal/services/arena/domain/accolade"
	"github.com/louisbranch/broadside/internal/services/arena/domain/competitor"
	"github.com/louisbranch/broadside/internal/services/arena/domain/journal"
	"github.com/louisbranch/broadside/internal/services/arena/domain/match"
	"github.com/louisbranch/broadside/internal/services/arena/domain/standings"
	arenasqlite "github.com/louisbranch/broadside/internal/services/arena/storage/sqlite"
)

// RuntimeConfig controls one arena run.
type RuntimeConfig struct {
	Match match.Config
	// Players names the built-in bots to seat, in seat order.
	Players []string
	// DBPath enables the SQLite archive when set.
	DBPath string
	// HealthPort enables the gRPC health endpoint when positive.
	HealthPort     int
	AccoladeStreak int
	// Output receives the final report. Defaults to stdout.
	Output   io.Writer
	Language language.Tag
}

const defaultPlayers = "random,hunter"

// Run plays a match between the configured bots and writes the report.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var listener net.Listener
	if cfg.HealthPort > 0 {
		var err error
		listener, err = net.Listen("tcp", fmt.Sprintf(":%d", cfg.HealthPort))
		if err != nil {
			return fmt.Errorf("listen on health port %d: %w", cfg.HealthPort, err)
		}
		defer listener.Close()
	}
	competitors, err := seatBots(cfg.Players)
	if err != nil {
		return err
	}
	return run(ctx, cfg, competitors, listener)
}

func seatBots(names []string) ([]competitor.Competitor, error) {
	if len(names) == 0 {
		names = strings.Split(defaultPlayers, ",")
	}
	competitors := make([]competitor.Competitor, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c, err := bots.New(name)
		if err != nil {
			return nil, err
		}
		competitors = append(competitors, c)
	}
	return competitors, nil
}

// run is Run with the competitors and listener supplied by the caller.
func run(ctx context.Context, cfg RuntimeConfig, competitors []competitor.Competitor, listener net.Listener) error {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Language == language.Und {
		cfg.Language = language.English
	}
	if cfg.AccoladeStreak <= 0 {
		cfg.AccoladeStreak = accolade.DefaultDominationStreak
	}
	seed, err := random.SeedOrNew(cfg.Match.Seed)
	if err != nil {
		return fmt.Errorf("seed match: %w", err)
	}
	cfg.Match.Seed = seed

	j := journal.New(journal.WithLogf(log.Printf))

	var store *arenasqlite.Store
	if strings.TrimSpace(cfg.DBPath) != "" {
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create arena storage dir: %w", err)
			}
		}
		store, err = arenasqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open arena sqlite store: %w", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				log.Printf("close arena sqlite store: %v", closeErr)
			}
		}()
		unsubscribe := j.Subscribe(store.Subscriber(context.WithoutCancel(ctx), log.Printf))
		defer unsubscribe()
	}

	m, err := match.New(cfg.Match,
		match.WithJournal(j),
		match.WithLogf(log.Printf),
		match.WithAccolades(accolade.Domination{Streak: cfg.AccoladeStreak}),
	)
	if err != nil {
		return err
	}
	for _, c := range competitors {
		playerID, err := m.AddController(ctx, c)
		if err != nil {
			return fmt.Errorf("add %s: %w", c.Identity(), err)
		}
		log.Printf("seated %s as %s", c.Identity(), playerID)
	}

	log.Printf("match %s starting (seed %d)", m.ID(), seed)
	loopErr := play(ctx, m, listener)
	endErr := m.End(ctx)
	if err := errors.Join(loopErr, endErr); err != nil {
		return fmt.Errorf("play match %s: %w", m.ID(), err)
	}

	table, err := confirm(j, m)
	if err != nil {
		return err
	}
	if store != nil {
		if err := store.SinkErr(); err != nil {
			return fmt.Errorf("archive match %s: %w", m.ID(), err)
		}
	}
	return writeReport(cfg.Output, cfg.Language, table, m.Rounds())
}

// play runs the driver, alongside the health endpoint when listener is set,
// and returns once the driver exits.
func play(ctx context.Context, m *match.Match, listener net.Listener) error {
	if listener == nil {
		if err := m.Start(ctx); err != nil {
			return err
		}
		return waitForDriver(ctx, m)
	}

	endpoint := newHealthEndpoint(listener)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(endpoint.serve)
	g.Go(func() error {
		defer endpoint.shutdown()
		if err := m.Start(gctx); err != nil {
			return err
		}
		endpoint.matchRunning(true)
		defer endpoint.matchRunning(false)
		return waitForDriver(gctx, m)
	})
	return g.Wait()
}

// waitForDriver joins the driver, logging while a canceled run is still
// finishing its current round.
func waitForDriver(ctx context.Context, m *match.Match) error {
	joined := make(chan error, 1)
	go func() { joined <- m.Wait() }()
	select {
	case err := <-joined:
		return err
	case <-ctx.Done():
	}
	log.Printf("match %s interrupted; finishing current round", m.ID())
	timer := time.NewTimer(timeouts.DriverJoin)
	defer timer.Stop()
	select {
	case err := <-joined:
		return err
	case <-timer.C:
		log.Printf("match %s still busy after %v", m.ID(), timeouts.DriverJoin)
		return <-joined
	}
}

// confirm replays and verifies the journal and checks that it agrees with
// the live scores.
func confirm(j *journal.Journal, m *match.Match) (standings.Table, error) {
	events := j.Events()
	if err := journal.Verify(events); err != nil {
		return standings.Table{}, fmt.Errorf("verify journal: %w", err)
	}
	table, err := standings.Replay(events)
	if err != nil {
		return standings.Table{}, fmt.Errorf("replay journal: %w", err)
	}
	live := make(map[string]int)
	for _, p := range m.Players() {
		live[p.ID] = p.Score
	}
	if !maps.Equal(live, table.Scores()) {
		return standings.Table{}, fmt.Errorf("replayed scores %v differ from live scores %v", table.Scores(), live)
	}
	return table, nil
}
