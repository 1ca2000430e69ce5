package journal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/louisbranch/broadside/internal/platform/errors"
	"github.com/louisbranch/broadside/internal/services/arena/domain/event"
)

func fixedClock() func() time.Time {
	stamp := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		stamp = stamp.Add(time.Second)
		return stamp
	}
}

func appendBegin(t *testing.T, j *Journal, matchID string) event.Event {
	t.Helper()
	evt, err := j.Append(context.Background(), event.Event{MatchID: matchID, Type: event.TypeMatchBegin})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return evt
}

func TestAppendAssignsSeqAndHashes(t *testing.T) {
	j := New(WithClock(fixedClock()))

	first := appendBegin(t, j, "match-1")
	if first.Seq != 1 {
		t.Fatalf("first seq = %d, want 1", first.Seq)
	}
	if first.Hash == "" || first.ChainHash == "" {
		t.Fatal("expected hashes on first event")
	}
	if first.PrevHash != "" {
		t.Fatalf("first prev hash = %q, want empty", first.PrevHash)
	}

	second := appendBegin(t, j, "match-1")
	if second.Seq != 2 {
		t.Fatalf("second seq = %d, want 2", second.Seq)
	}
	if second.PrevHash != first.ChainHash {
		t.Fatalf("second prev hash = %q, want %q", second.PrevHash, first.ChainHash)
	}
	if !second.Timestamp.After(first.Timestamp) {
		t.Fatal("expected timestamps from the injected clock")
	}
}

func TestAppendRejectsInvalidEvents(t *testing.T) {
	j := New()
	_, err := j.Append(context.Background(), event.Event{MatchID: "m", Type: "nope"})
	if apperrors.CodeOf(err) != apperrors.CodeEventTypeUnknown {
		t.Fatalf("code = %s, want %s", apperrors.CodeOf(err), apperrors.CodeEventTypeUnknown)
	}
	if j.Len() != 0 {
		t.Fatalf("len = %d, want 0", j.Len())
	}
}

func TestAppendHonorsCanceledContext(t *testing.T) {
	j := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := j.Append(ctx, event.Event{MatchID: "m", Type: event.TypeMatchBegin}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSubscribersSeeAppendOrder(t *testing.T) {
	j := New()
	var first, second []uint64
	j.Subscribe(func(evt event.Event) { first = append(first, evt.Seq) })
	unsubscribe := j.Subscribe(func(evt event.Event) { second = append(second, evt.Seq) })

	for range 3 {
		appendBegin(t, j, "m")
	}
	unsubscribe()
	unsubscribe()
	appendBegin(t, j, "m")

	if len(first) != 4 || first[0] != 1 || first[3] != 4 {
		t.Fatalf("first subscriber saw %v", first)
	}
	if len(second) != 3 || second[2] != 3 {
		t.Fatalf("second subscriber saw %v", second)
	}
}

func TestSubscriberPanicDoesNotBreakAppend(t *testing.T) {
	var logged int
	j := New(WithLogf(func(string, ...any) { logged++ }))
	j.Subscribe(func(event.Event) { panic("boom") })
	var seen int
	j.Subscribe(func(event.Event) { seen++ })

	appendBegin(t, j, "m")
	if seen != 1 {
		t.Fatalf("later subscriber calls = %d, want 1", seen)
	}
	if logged != 1 {
		t.Fatalf("logged = %d, want 1", logged)
	}
}

func TestListEventsRespectsAfterSeqAndLimit(t *testing.T) {
	j := New()
	for range 3 {
		appendBegin(t, j, "m")
	}
	page := j.ListEvents(1, 2)
	if len(page) != 2 || page[0].Seq != 2 || page[1].Seq != 3 {
		t.Fatalf("page = %+v", page)
	}
	if got := j.ListEvents(3, 10); got != nil {
		t.Fatalf("expected empty page past the end, got %d events", len(got))
	}
	if got := j.ListEvents(0, 0); len(got) != 3 {
		t.Fatalf("unlimited page length = %d, want 3", len(got))
	}
}

func TestEventsReturnsSnapshot(t *testing.T) {
	j := New()
	appendBegin(t, j, "m")
	snap := j.Events()
	snap[0].Type = event.TypeMatchEnd
	if last, _ := j.Last(); last.Type != event.TypeMatchBegin {
		t.Fatal("snapshot mutation leaked into the journal")
	}
}

func TestConcurrentReadersDuringAppend(t *testing.T) {
	j := New()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 100 {
			_ = j.Events()
			_ = j.Len()
		}
	}()
	for range 100 {
		appendBegin(t, j, "m")
	}
	wg.Wait()
	if err := Verify(j.Events()); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	j := New(WithClock(fixedClock()))
	for range 3 {
		appendBegin(t, j, "m")
	}
	events := j.Events()
	if err := Verify(events); err != nil {
		t.Fatalf("verify clean chain: %v", err)
	}

	tampered := j.Events()
	tampered[1].PayloadJSON = []byte(`{"cheat":true}`)
	if err := Verify(tampered); apperrors.CodeOf(err) != apperrors.CodeEventChainBroken {
		t.Fatalf("code = %s, want %s", apperrors.CodeOf(err), apperrors.CodeEventChainBroken)
	}

	gap := append([]event.Event{}, events[0], events[2])
	if err := Verify(gap); apperrors.CodeOf(err) != apperrors.CodeEventSequenceGap {
		t.Fatalf("code = %s, want %s", apperrors.CodeOf(err), apperrors.CodeEventSequenceGap)
	}

	relinked := j.Events()
	relinked[2].PrevHash = "forged"
	if err := Verify(relinked); apperrors.CodeOf(err) != apperrors.CodeEventChainBroken {
		t.Fatalf("code = %s, want %s", apperrors.CodeOf(err), apperrors.CodeEventChainBroken)
	}
}
