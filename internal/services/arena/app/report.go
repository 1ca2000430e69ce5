package app

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	// Registers the report.* formats with the default message catalog.
	_ "github.com/louisbranch/broadside/internal/platform/i18n/catalog"
	"github.com/louisbranch/broadside/internal/services/arena/domain/round"
	"github.com/louisbranch/broadside/internal/services/arena/domain/standings"
)

func writeReport(w io.Writer, tag language.Tag, table standings.Table, rounds []round.Result) error {
	p := message.NewPrinter(tag)
	status := p.Sprintf("report.stopped")
	if table.Finished {
		status = p.Sprintf("report.finished")
	}
	if _, err := p.Fprintf(w, "report.summary", table.MatchID, table.Rounds, status); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	var shots, turns int
	reasons := make(map[round.Reason]int)
	for _, r := range rounds {
		shots += r.Shots
		turns += r.Turns
		reasons[r.Reason]++
	}
	p.Fprintf(w, "report.shots", shots, turns)

	p.Fprintf(w, "report.header",
		p.Sprintf("report.col.rank"), p.Sprintf("report.col.player"), p.Sprintf("report.col.wins"),
		p.Sprintf("report.col.losses"), p.Sprintf("report.col.draws"), p.Sprintf("report.col.awards"))
	for i, s := range table.Ranked() {
		name := s.Name
		if s.Version != "" {
			name += " " + s.Version
		}
		p.Fprintf(w, "report.row", i+1, name, s.Score, s.Losses, s.Draws, table.Accolades[s.PlayerID])
	}

	if len(reasons) > 0 {
		p.Fprintf(w, "report.endings")
		for _, reason := range slices.Sorted(maps.Keys(reasons)) {
			p.Fprintf(w, "report.ending", string(reason), reasons[reason])
		}
	}
	return nil
}
