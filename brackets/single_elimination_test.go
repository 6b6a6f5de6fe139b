package brackets

import (
	"context"
	"testing"

	"github.com/deltacrown/deltacrown/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededEntrants(n int) []*models.Registration {
	entrants := make([]*models.Registration, n)
	for i := 0; i < n; i++ {
		entrants[i] = &models.Registration{
			ID:           100 + i,
			TournamentID: 1,
			Status:       models.RegistrationConfirmed,
		}
	}
	return entrants
}

func TestSeedOrder(t *testing.T) {
	testCases := []struct {
		name     string
		size     int
		expected []int
	}{
		{name: "2 slots", size: 2, expected: []int{0, 1}},
		{name: "4 slots", size: 4, expected: []int{0, 3, 1, 2}},
		{name: "8 slots", size: 8, expected: []int{0, 7, 3, 4, 1, 6, 2, 5}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, seedOrder(tc.size))
		})
	}
}

func TestBracketSize(t *testing.T) {
	assert.Equal(t, 2, bracketSize(2))
	assert.Equal(t, 4, bracketSize(3))
	assert.Equal(t, 8, bracketSize(5))
	assert.Equal(t, 8, bracketSize(8))
	assert.Equal(t, 16, bracketSize(9))
}

func TestGenerateFourEntrants(t *testing.T) {
	gen := NewSingleEliminationGenerator()
	entrants := seededEntrants(4)

	matches, err := gen.Generate(context.Background(), GenerateParams{Entrants: entrants})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	round1 := matchesInRound(matches, 1)
	round2 := matchesInRound(matches, 2)
	require.Len(t, round1, 2)
	require.Len(t, round2, 1)

	// Standard pairing: 1 vs 4, 2 vs 3.
	assert.Equal(t, 100, *round1[0].EntrantA)
	assert.Equal(t, 103, *round1[0].EntrantB)
	assert.Equal(t, 101, *round1[1].EntrantA)
	assert.Equal(t, 102, *round1[1].EntrantB)

	final := round2[0]
	require.NotNil(t, final.SourceAUID)
	require.NotNil(t, final.SourceBUID)
	assert.Equal(t, round1[0].UID, *final.SourceAUID)
	assert.Equal(t, round1[1].UID, *final.SourceBUID)
	assert.Nil(t, final.EntrantA)
	assert.Nil(t, final.EntrantB)
}

func TestGenerateAssignsByesToTopSeeds(t *testing.T) {
	gen := NewSingleEliminationGenerator()
	entrants := seededEntrants(10) // bracket size 16, 6 byes

	matches, err := gen.Generate(context.Background(), GenerateParams{Entrants: entrants})
	require.NoError(t, err)
	// 8 + 4 + 2 + 1 slots for a 16-bracket.
	require.Len(t, matches, 15)

	round1 := matchesInRound(matches, 1)
	require.Len(t, round1, 8)

	byes := make([]int, 0)
	for _, m := range round1 {
		if m.IsBye {
			require.NotNil(t, m.EntrantA)
			assert.Nil(t, m.EntrantB)
			byes = append(byes, *m.EntrantA)
		} else {
			require.NotNil(t, m.EntrantA)
			require.NotNil(t, m.EntrantB)
		}
	}
	// The top 6 seeds skip round 1.
	assert.ElementsMatch(t, []int{100, 101, 102, 103, 104, 105}, byes)
}

func TestGenerateDeterministic(t *testing.T) {
	gen := NewSingleEliminationGenerator()
	entrants := seededEntrants(7)

	first, err := gen.Generate(context.Background(), GenerateParams{Entrants: entrants})
	require.NoError(t, err)
	second, err := gen.Generate(context.Background(), GenerateParams{Entrants: entrants})
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, *first[i], *second[i])
	}
}

func TestGenerateRejectsTooFewEntrants(t *testing.T) {
	gen := NewSingleEliminationGenerator()

	_, err := gen.Generate(context.Background(), GenerateParams{Entrants: seededEntrants(1)})
	assert.ErrorIs(t, err, ErrNotEnoughEntrants)

	_, err = gen.Generate(context.Background(), GenerateParams{Entrants: nil})
	assert.ErrorIs(t, err, ErrNotEnoughEntrants)
}

func matchesInRound(matches []*SlotMatch, round int) []*SlotMatch {
	out := make([]*SlotMatch, 0)
	for _, m := range matches {
		if m.Round == round {
			out = append(out, m)
		}
	}
	return out
}
