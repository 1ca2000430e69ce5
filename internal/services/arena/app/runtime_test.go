package app

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/louisbranch/broadside/internal/platform/errors"
	"github.com/louisbranch/broadside/internal/services/arena/domain/journal"
	"github.com/louisbranch/broadside/internal/services/arena/domain/match"
	arenasqlite "github.com/louisbranch/broadside/internal/services/arena/storage/sqlite"
)

func testConfig(rounds int) RuntimeConfig {
	cfg := match.DefaultConfig()
	cfg.Rounds = rounds
	cfg.Seed = 42
	return RuntimeConfig{Match: cfg}
}

func TestRunPlaysMatchAndArchivesJournal(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig(3)
	cfg.Output = &out
	cfg.DBPath = filepath.Join(t.TempDir(), "nested", "arena.db")

	competitors, err := seatBots(nil)
	if err != nil {
		t.Fatalf("seat bots: %v", err)
	}
	if err := run(context.Background(), cfg, competitors, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	report := out.String()
	if !strings.Contains(report, "3 rounds played, finished") {
		t.Fatalf("report missing summary:\n%s", report)
	}
	if !strings.Contains(report, "Random 1.0") || !strings.Contains(report, "Hunter 1.0") {
		t.Fatalf("report missing players:\n%s", report)
	}

	store, err := arenasqlite.Open(cfg.DBPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()
	ids, err := store.ListMatches(ctx)
	if err != nil {
		t.Fatalf("list matches: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("archived matches = %v, want one", ids)
	}
	events, err := store.ListEvents(ctx, ids[0], 0, 100000)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if err := journal.Verify(events); err != nil {
		t.Fatalf("verify archived journal: %v", err)
	}
	if last := events[len(events)-1]; last.Type != "match.end" {
		t.Fatalf("last archived event = %s, want match.end", last.Type)
	}
}

func TestRunServesHealthWhilePlaying(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	var out bytes.Buffer
	cfg := testConfig(2)
	cfg.Output = &out
	competitors, err := seatBots([]string{"hunter", "hunter", "random"})
	if err != nil {
		t.Fatalf("seat bots: %v", err)
	}
	if err := run(context.Background(), cfg, competitors, listener); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "2 rounds played") {
		t.Fatalf("report missing summary:\n%s", out.String())
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(0)
	cfg.Output = &bytes.Buffer{}
	competitors, err := seatBots(nil)
	if err != nil {
		t.Fatalf("seat bots: %v", err)
	}
	err = run(context.Background(), cfg, competitors, nil)
	if apperrors.CodeOf(err) != apperrors.CodeConfigInvalid {
		t.Fatalf("code = %s, want %s (err %v)", apperrors.CodeOf(err), apperrors.CodeConfigInvalid, err)
	}
}

func TestSeatBots(t *testing.T) {
	competitors, err := seatBots([]string{" random ", "", "hunter"})
	if err != nil {
		t.Fatalf("seat bots: %v", err)
	}
	if len(competitors) != 2 {
		t.Fatalf("seated %d bots, want 2", len(competitors))
	}
	if _, err := seatBots([]string{"kraken"}); err == nil {
		t.Fatal("expected error for unknown bot")
	}
}
