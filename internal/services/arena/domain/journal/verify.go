package journal

import (
	"fmt"

	apperrors "github.com/louisbranch/broadside/internal/platform/errors"
	"github.com/louisbranch/broadside/internal/services/arena/domain/event"
)

// Verify re-derives the hash chain of events, which must start at seq 1 and
// be contiguous. It reports the first gap or broken link.
func Verify(events []event.Event) error {
	prevChain := ""
	for i, evt := range events {
		want := uint64(i) + 1
		if evt.Seq != want {
			return apperrors.WithMetadata(apperrors.CodeEventSequenceGap,
				fmt.Sprintf("expected seq %d, found %d", want, evt.Seq),
				map[string]string{"seq": fmt.Sprint(evt.Seq)})
		}
		if evt.PrevHash != prevChain {
			return chainBroken(evt, "prev hash does not match predecessor")
		}
		hash, err := event.EventHash(evt)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeEventChainBroken, fmt.Sprintf("hash seq %d", evt.Seq), err)
		}
		if hash != evt.Hash {
			return chainBroken(evt, "content hash mismatch")
		}
		chain, err := event.ChainHash(evt, prevChain)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeEventChainBroken, fmt.Sprintf("chain seq %d", evt.Seq), err)
		}
		if chain != evt.ChainHash {
			return chainBroken(evt, "chain hash mismatch")
		}
		prevChain = evt.ChainHash
	}
	return nil
}

func chainBroken(evt event.Event, reason string) error {
	return apperrors.WithMetadata(apperrors.CodeEventChainBroken,
		fmt.Sprintf("seq %d: %s", evt.Seq, reason),
		map[string]string{"seq": fmt.Sprint(evt.Seq), "type": string(evt.Type)})
}
