package external

import (
	"context"
	"fmt"
)

// SyntheticRoster fabricates a roster of Size players for any
// competitor ref, with every identifier in IdentifierNames filled.
// It exists for demo and fixture runs where no roster system is
// deployed; check-in always succeeds against it.
type SyntheticRoster struct {
	Size            int
	IdentifierNames []string
}

func (p SyntheticRoster) GetRoster(_ context.Context, competitorRef string) (*Roster, error) {
	size := p.Size
	if size < 1 {
		size = 1
	}
	roster := &Roster{CompetitorRef: competitorRef}
	for i := 1; i <= size; i++ {
		player := RosterPlayer{
			Ref:         fmt.Sprintf("%s/p%d", competitorRef, i),
			DisplayName: fmt.Sprintf("Player %d", i),
			Identifiers: map[string]string{},
		}
		for _, name := range p.IdentifierNames {
			player.Identifiers[name] = fmt.Sprintf("%s-%d", competitorRef, i)
		}
		roster.Players = append(roster.Players, player)
	}
	return roster, nil
}
