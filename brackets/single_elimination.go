package brackets

import (
	"context"
	"fmt"
	"math"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() Generator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() string {
	return "SingleElimination"
}

// bracketSize returns the smallest power of two >= count.
func bracketSize(count int) int {
	if count <= 1 {
		return count
	}
	return 1 << uint(math.Ceil(math.Log2(float64(count))))
}

// seedOrder lays out seeds 0..size-1 in bracket order so that adjacent
// pairs give the standard pairings (1 vs size, 2 vs size-1, ...) and the
// top seeds cannot meet before the late rounds. Built by iterative
// expansion: each pass doubles the layout, pairing every seed with its
// complement.
func seedOrder(size int) []int {
	order := []int{0}
	for len(order) < size {
		doubled := len(order) * 2
		next := make([]int, 0, doubled)
		for _, seed := range order {
			next = append(next, seed, doubled-1-seed)
		}
		order = next
	}
	return order
}

// Generate builds the full single-elimination topology. Entrants are
// taken in seed order; with N entrants and bracket size S, the top S-N
// seeds receive round-1 byes. Byes are emitted as explicit single-entrant
// slots so the persistence layer can auto-advance them.
func (g *SingleEliminationGenerator) Generate(_ context.Context, params GenerateParams) ([]*SlotMatch, error) {
	entrants := params.Entrants
	n := len(entrants)
	if n < 2 {
		return nil, ErrNotEnoughEntrants
	}

	size := bracketSize(n)
	rounds := int(math.Log2(float64(size)))
	order := seedOrder(size)

	matches := make([]*SlotMatch, 0, size-1)

	// Round 1: pair adjacent seeds from the layout. A seed index >= n is
	// an empty slot; the opposing entrant gets a bye. Two empty slots in
	// one pair cannot happen because byes = size-n <= size/2.
	firstRound := make([]*SlotMatch, 0, size/2)
	for i := 0; i < size; i += 2 {
		sm := &SlotMatch{
			UID:          fmt.Sprintf("R1M%d", i/2+1),
			Round:        1,
			OrderInRound: i/2 + 1,
		}
		seedA, seedB := order[i], order[i+1]
		switch {
		case seedA < n && seedB < n:
			sm.EntrantA = &entrants[seedA].ID
			sm.EntrantB = &entrants[seedB].ID
		case seedA < n:
			sm.EntrantA = &entrants[seedA].ID
			sm.IsBye = true
		default:
			sm.EntrantA = &entrants[seedB].ID
			sm.IsBye = true
		}
		firstRound = append(firstRound, sm)
	}
	matches = append(matches, firstRound...)

	// Later rounds are placeholders fed by the two matches directly
	// above them in the previous round.
	prev := firstRound
	for r := 2; r <= rounds; r++ {
		current := make([]*SlotMatch, 0, len(prev)/2)
		for p := 0; p < len(prev); p += 2 {
			srcA, srcB := prev[p].UID, prev[p+1].UID
			current = append(current, &SlotMatch{
				UID:          fmt.Sprintf("R%dM%d", r, p/2+1),
				Round:        r,
				OrderInRound: p/2 + 1,
				SourceAUID:   &srcA,
				SourceBUID:   &srcB,
			})
		}
		matches = append(matches, current...)
		prev = current
	}

	return matches, nil
}
