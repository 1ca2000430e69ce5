// Package sqlite archives match journals in a SQLite database.
//
// The archive stores events exactly as the journal sequenced them, so a
// match can be re-verified and replayed after the process exits.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	apperrors "github.com/louisbranch/broadside/internal/platform/errors"
	"github.com/louisbranch/broadside/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/broadside/internal/platform/timeouts"
	"github.com/louisbranch/broadside/internal/services/arena/domain/event"
	"github.com/louisbranch/broadside/internal/services/arena/domain/journal"
	"github.com/louisbranch/broadside/internal/services/arena/storage/sqlite/migrations"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store is a SQLite-backed event archive.
type Store struct {
	sqlDB *sql.DB

	// appendMu serializes appends so the seq/prev-hash checks and the insert
	// see a consistent tail.
	appendMu sync.Mutex

	sinkMu  sync.Mutex
	sinkErr error
}

// Open opens (creating if needed) the archive at path and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=%d&_synchronous=NORMAL",
		cleanPath, timeouts.SQLiteBusy.Milliseconds())
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.EventsFS, "events"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the database. It is nil-safe.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// AppendEvent archives a sequenced event. The event must extend the stored
// chain for its match: seq one past the latest and prev hash equal to the
// latest chain hash. Re-archiving an identical event is a no-op.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(evt.MatchID) == "" || evt.Seq == 0 || evt.Hash == "" || evt.ChainHash == "" {
		return apperrors.New(apperrors.CodeEventInvalid, "event must be sequenced before archiving")
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var latestSeq int64
	var latestChain string
	err = tx.QueryRowContext(ctx,
		`SELECT seq, chain_hash FROM events WHERE match_id = ? ORDER BY seq DESC LIMIT 1`,
		evt.MatchID,
	).Scan(&latestSeq, &latestChain)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load latest event: %w", err)
	}

	if evt.Seq <= uint64(latestSeq) {
		stored, err := s.getEvent(ctx, tx, evt.MatchID, evt.Seq)
		if err != nil {
			return err
		}
		if stored.Hash == evt.Hash {
			return nil
		}
		return apperrors.WithMetadata(apperrors.CodeEventChainBroken,
			fmt.Sprintf("seq %d already archived with a different hash", evt.Seq),
			map[string]string{"match_id": evt.MatchID, "seq": fmt.Sprint(evt.Seq)})
	}
	if evt.Seq != uint64(latestSeq)+1 {
		return apperrors.WithMetadata(apperrors.CodeEventSequenceGap,
			fmt.Sprintf("expected seq %d, got %d", latestSeq+1, evt.Seq),
			map[string]string{"match_id": evt.MatchID, "seq": fmt.Sprint(evt.Seq)})
	}
	if evt.PrevHash != latestChain {
		return apperrors.WithMetadata(apperrors.CodeEventChainBroken,
			fmt.Sprintf("seq %d does not link to the archived chain", evt.Seq),
			map[string]string{"match_id": evt.MatchID, "seq": fmt.Sprint(evt.Seq)})
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO events (
    match_id, seq, event_hash, prev_hash, chain_hash, timestamp, event_type, round_id, player_id, payload_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.MatchID, int64(evt.Seq), evt.Hash, evt.PrevHash, evt.ChainHash, toMillis(evt.Timestamp),
		string(evt.Type), evt.RoundID, evt.PlayerID, evt.PayloadJSON,
	); err != nil {
		if isConstraintError(err) {
			return apperrors.Wrap(apperrors.CodeEventChainBroken, "archive event", err)
		}
		return fmt.Errorf("append event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) getEvent(ctx context.Context, q queryer, matchID string, seq uint64) (event.Event, error) {
	row := q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE match_id = ? AND seq = ?`, matchID, int64(seq))
	evt, err := scanEvent(row)
	if err != nil {
		return event.Event{}, fmt.Errorf("get event %d: %w", seq, err)
	}
	return evt, nil
}

// GetEventBySeq returns one archived event.
func (s *Store) GetEventBySeq(ctx context.Context, matchID string, seq uint64) (event.Event, error) {
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}
	return s.getEvent(ctx, s.sqlDB, matchID, seq)
}

// ListEvents returns up to limit events of a match with Seq > afterSeq.
func (s *Store) ListEvents(ctx context.Context, matchID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(matchID) == "" {
		return nil, fmt.Errorf("match id is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE match_id = ? AND seq > ? ORDER BY seq LIMIT ?`,
		matchID, int64(afterSeq), limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}

// ListMatches returns the archived match ids, oldest first.
func (s *Store) ListMatches(ctx context.Context) ([]string, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT match_id FROM events WHERE seq = 1 ORDER BY timestamp, match_id`)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan match id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Subscriber returns a journal subscriber that archives every event. The
// first archive failure is kept and reported by SinkErr; later events are
// still attempted so a transient failure surfaces as a chain gap.
func (s *Store) Subscriber(ctx context.Context, logf func(string, ...any)) journal.Subscriber {
	return func(evt event.Event) {
		if err := s.AppendEvent(ctx, evt); err != nil {
			if logf != nil {
				logf("archive %s seq %d: %v", evt.MatchID, evt.Seq, err)
			}
			s.sinkMu.Lock()
			if s.sinkErr == nil {
				s.sinkErr = err
			}
			s.sinkMu.Unlock()
		}
	}
}

// SinkErr returns the first error seen by a Subscriber.
func (s *Store) SinkErr() error {
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()
	return s.sinkErr
}

const eventColumns = `match_id, seq, event_hash, prev_hash, chain_hash, timestamp, event_type, round_id, player_id, payload_json`

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (event.Event, error) {
	var (
		evt       event.Event
		seq       int64
		timestamp int64
		typ       string
	)
	if err := row.Scan(&evt.MatchID, &seq, &evt.Hash, &evt.PrevHash, &evt.ChainHash, &timestamp, &typ,
		&evt.RoundID, &evt.PlayerID, &evt.PayloadJSON); err != nil {
		return event.Event{}, err
	}
	evt.Seq = uint64(seq)
	evt.Timestamp = fromMillis(timestamp)
	evt.Type = event.Type(typ)
	return evt, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
