package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltacrown/deltacrown/models"
	"github.com/deltacrown/deltacrown/storage"
)

type fakeEvidenceStore struct {
	objects map[string][]byte
}

func newFakeEvidenceStore() *fakeEvidenceStore {
	return &fakeEvidenceStore{objects: make(map[string][]byte)}
}

func (f *fakeEvidenceStore) Put(ctx context.Context, key, contentType string, content io.Reader) (*storage.StoredObject, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	f.objects[key] = data
	return &storage.StoredObject{Key: key, URL: f.PublicURL(key)}, nil
}

func (f *fakeEvidenceStore) Remove(ctx context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeEvidenceStore) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

// openDisputeFixture drives a match into a disputed state and returns
// the environment, the dispute, and a player on side A.
func openDisputeFixture(t *testing.T) (*testEnv, *models.MatchDispute, int) {
	t.Helper()
	e := newTestEnv(t)
	ctx := context.Background()
	_, regs, r1m1, _, _ := runningBracket(t, e)

	_, err := e.matches.Start(ctx, r1m1.ID)
	require.NoError(t, err)
	_, err = e.matches.SubmitResult(ctx, r1m1.ID, regs[0].ID, report(2, 0))
	require.NoError(t, err)
	_, err = e.matches.SubmitResult(ctx, r1m1.ID, regs[3].ID, report(0, 2))
	require.NoError(t, err)

	dispute, err := e.disputeRepo.FindOpenByMatch(ctx, nil, r1m1.ID)
	require.NoError(t, err)
	return e, dispute, *regs[0].UserID
}

func newDisputeService(e *testEnv, store storage.EvidenceStore) *DisputeService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDisputeService(e.disputeRepo, e.matchRepo, store, logger)
}

func TestAddEvidence(t *testing.T) {
	e, dispute, uploaderUserID := openDisputeFixture(t)
	ctx := context.Background()
	store := newFakeEvidenceStore()
	disputes := newDisputeService(e, store)

	evidence, err := disputes.AddEvidence(ctx, dispute.ID, uploaderUserID, "image/png", strings.NewReader("screenshot"))
	require.NoError(t, err)
	assert.Equal(t, dispute.ID, evidence.DisputeID)
	assert.Equal(t, uploaderUserID, evidence.UploaderID)
	assert.True(t, strings.HasSuffix(evidence.ObjectKey, ".png"))
	assert.NotEmpty(t, evidence.URL)

	// The object landed in storage under the recorded key.
	_, stored := store.objects[evidence.ObjectKey]
	assert.True(t, stored)

	full, err := disputes.GetByID(ctx, dispute.ID)
	require.NoError(t, err)
	require.Len(t, full.Evidence, 1)
	assert.Equal(t, store.PublicURL(evidence.ObjectKey), full.Evidence[0].URL)
}

func TestAddEvidenceGuards(t *testing.T) {
	e, dispute, uploaderUserID := openDisputeFixture(t)
	ctx := context.Background()
	disputes := newDisputeService(e, newFakeEvidenceStore())

	t.Run("unsupported content type", func(t *testing.T) {
		_, err := disputes.AddEvidence(ctx, dispute.ID, uploaderUserID, "application/zip", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrEvidenceInvalidType)
	})

	t.Run("unknown dispute", func(t *testing.T) {
		_, err := disputes.AddEvidence(ctx, 999, uploaderUserID, "image/png", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("storage not configured", func(t *testing.T) {
		disabled := newDisputeService(e, nil)
		_, err := disabled.AddEvidence(ctx, dispute.ID, uploaderUserID, "image/png", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrEvidenceStorageDisabled)
	})
}

func TestAddEvidenceClosedDispute(t *testing.T) {
	e, dispute, uploaderUserID := openDisputeFixture(t)
	ctx := context.Background()
	disputes := newDisputeService(e, newFakeEvidenceStore())

	tournament, err := e.tournamentRepo.GetByID(ctx, nil, dispute.TournamentID)
	require.NoError(t, err)
	_, err = e.matches.ResolveDispute(ctx, dispute.ID, tournament.OrganizerID, report(2, 0), "ruled")
	require.NoError(t, err)

	_, err = disputes.AddEvidence(ctx, dispute.ID, uploaderUserID, "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrDisputeNotOpen)
}

func TestListDisputesByTournament(t *testing.T) {
	e, dispute, _ := openDisputeFixture(t)
	ctx := context.Background()
	disputes := newDisputeService(e, nil)

	open := models.DisputeOpen
	listed, err := disputes.ListByTournament(ctx, dispute.TournamentID, &open)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, dispute.ID, listed[0].ID)

	resolved := models.DisputeResolved
	listed, err = disputes.ListByTournament(ctx, dispute.TournamentID, &resolved)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
