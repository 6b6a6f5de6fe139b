package brackets

import (
	"context"
	"fmt"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() Generator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) Name() string {
	return "RoundRobin"
}

// Generate builds a round-robin schedule with the circle method: one
// entrant stays fixed while the rest rotate, so every pair meets exactly
// once across n-1 rounds (n rounds for odd counts, where the entrant
// paired with the hole sits out). When DoubleRoundRobin is set a second
// mirrored cycle follows with home/away swapped.
func (g *RoundRobinGenerator) Generate(_ context.Context, params GenerateParams) ([]*SlotMatch, error) {
	entrants := params.Entrants
	if len(entrants) < 2 {
		return nil, ErrNotEnoughEntrants
	}

	// ring holds registration IDs; -1 is the hole added for odd counts.
	ring := make([]int, 0, len(entrants)+1)
	for _, e := range entrants {
		ring = append(ring, e.ID)
	}
	if len(ring)%2 != 0 {
		ring = append(ring, -1)
	}

	cycles := 1
	if params.Tournament != nil && params.Tournament.Settings != nil &&
		params.Tournament.Settings.DoubleRoundRobin {
		cycles = 2
	}

	n := len(ring)
	roundsPerCycle := n - 1
	matches := make([]*SlotMatch, 0, cycles*roundsPerCycle*n/2)

	for cycle := 0; cycle < cycles; cycle++ {
		rot := append([]int(nil), ring...)
		for r := 0; r < roundsPerCycle; r++ {
			roundNo := cycle*roundsPerCycle + r + 1
			pos := 0
			for i := 0; i < n/2; i++ {
				a, b := rot[i], rot[n-1-i]
				if a == -1 || b == -1 {
					continue
				}
				if cycle == 1 {
					a, b = b, a
				}
				pos++
				aID, bID := a, b
				matches = append(matches, &SlotMatch{
					UID:          fmt.Sprintf("R%dM%d", roundNo, pos),
					Round:        roundNo,
					OrderInRound: pos,
					EntrantA:     &aID,
					EntrantB:     &bID,
				})
			}
			// Rotate everything but the pivot one step clockwise.
			last := rot[n-1]
			for i := n - 1; i > 1; i-- {
				rot[i] = rot[i-1]
			}
			rot[1] = last
		}
	}

	return matches, nil
}
