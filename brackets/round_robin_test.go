package brackets

import (
	"context"
	"fmt"
	"testing"

	"github.com/deltacrown/deltacrown/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d-%d", a, b)
}

func TestRoundRobinEveryPairMeetsOnce(t *testing.T) {
	for _, n := range []int{2, 4, 5, 6, 9} {
		t.Run(fmt.Sprintf("%d entrants", n), func(t *testing.T) {
			gen := NewRoundRobinGenerator()
			matches, err := gen.Generate(context.Background(), GenerateParams{Entrants: seededEntrants(n)})
			require.NoError(t, err)

			assert.Len(t, matches, n*(n-1)/2)

			seen := make(map[string]int)
			for _, m := range matches {
				require.NotNil(t, m.EntrantA)
				require.NotNil(t, m.EntrantB)
				assert.False(t, m.IsBye)
				seen[pairKey(*m.EntrantA, *m.EntrantB)]++
			}
			for pair, count := range seen {
				assert.Equal(t, 1, count, "pair %s scheduled %d times", pair, count)
			}
		})
	}
}

func TestRoundRobinRoundStructure(t *testing.T) {
	gen := NewRoundRobinGenerator()
	matches, err := gen.Generate(context.Background(), GenerateParams{Entrants: seededEntrants(6)})
	require.NoError(t, err)

	// 6 entrants: 5 rounds of 3 parallel matches, and no entrant plays
	// twice in the same round.
	for r := 1; r <= 5; r++ {
		round := matchesInRound(matches, r)
		require.Len(t, round, 3, "round %d", r)

		busy := make(map[int]bool)
		for _, m := range round {
			assert.False(t, busy[*m.EntrantA])
			assert.False(t, busy[*m.EntrantB])
			busy[*m.EntrantA] = true
			busy[*m.EntrantB] = true
		}
	}
}

func TestRoundRobinDoubleCycle(t *testing.T) {
	gen := NewRoundRobinGenerator()
	tournament := &models.Tournament{
		Settings: &models.TournamentSettings{DoubleRoundRobin: true},
	}
	matches, err := gen.Generate(context.Background(), GenerateParams{
		Tournament: tournament,
		Entrants:   seededEntrants(4),
	})
	require.NoError(t, err)

	assert.Len(t, matches, 12) // 2 * C(4,2)

	seen := make(map[string]int)
	for _, m := range matches {
		seen[pairKey(*m.EntrantA, *m.EntrantB)]++
	}
	for pair, count := range seen {
		assert.Equal(t, 2, count, "pair %s", pair)
	}
}

func TestRoundRobinDeterministic(t *testing.T) {
	gen := NewRoundRobinGenerator()
	params := GenerateParams{Entrants: seededEntrants(5)}

	first, err := gen.Generate(context.Background(), params)
	require.NoError(t, err)
	second, err := gen.Generate(context.Background(), params)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, *first[i], *second[i])
	}
}
