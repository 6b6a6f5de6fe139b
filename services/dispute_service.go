package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/deltacrown/deltacrown/models"
	"github.com/deltacrown/deltacrown/repositories"
	"github.com/deltacrown/deltacrown/storage"
	"github.com/google/uuid"
)

var evidenceExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"video/mp4":  ".mp4",
	"text/plain": ".txt",
}

// DisputeService handles the evidence side of disputes: uploads to
// object storage and read access with resolved public URLs. The ruling
// itself lives on MatchService, where the bracket advances.
type DisputeService struct {
	disputeRepo repositories.DisputeRepository
	matchRepo   repositories.MatchRepository
	evidence    storage.EvidenceStore
	logger      *slog.Logger
}

func NewDisputeService(
	disputeRepo repositories.DisputeRepository,
	matchRepo repositories.MatchRepository,
	evidence storage.EvidenceStore,
	logger *slog.Logger,
) *DisputeService {
	return &DisputeService{
		disputeRepo: disputeRepo,
		matchRepo:   matchRepo,
		evidence:    evidence,
		logger:      logger,
	}
}

// AddEvidence stores an attachment for an open dispute. The object key
// is random, so uploads never collide and the key leaks nothing about
// the match.
func (s *DisputeService) AddEvidence(ctx context.Context, disputeID, uploaderID int, contentType string, content io.Reader) (*models.DisputeEvidence, error) {
	if s.evidence == nil {
		return nil, ErrEvidenceStorageDisabled
	}
	ext, ok := evidenceExtensions[contentType]
	if !ok {
		return nil, ErrEvidenceInvalidType
	}

	dispute, err := s.disputeRepo.GetByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repositories.ErrDisputeNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if dispute.Status != models.DisputeOpen {
		return nil, ErrDisputeNotOpen
	}

	key := path.Join("disputes", fmt.Sprintf("%d", disputeID), uuid.NewString()+ext)
	stored, err := s.evidence.Put(ctx, key, contentType, content)
	if err != nil {
		return nil, fmt.Errorf("failed to store evidence: %w", err)
	}

	evidence := &models.DisputeEvidence{
		DisputeID:   disputeID,
		UploaderID:  uploaderID,
		ObjectKey:   stored.Key,
		ContentType: contentType,
	}
	if err := s.disputeRepo.AddEvidence(ctx, evidence); err != nil {
		// Orphaned object; best effort cleanup.
		if delErr := s.evidence.Remove(ctx, stored.Key); delErr != nil {
			s.logger.Error("evidence cleanup failed",
				slog.String("key", stored.Key), slog.Any("error", delErr))
		}
		return nil, err
	}
	evidence.URL = stored.URL

	s.logger.Info("dispute evidence added",
		slog.Int("dispute_id", disputeID), slog.Int("uploader_id", uploaderID))
	return evidence, nil
}

// GetByID returns a dispute with its evidence, public URLs resolved.
func (s *DisputeService) GetByID(ctx context.Context, disputeID int) (*models.MatchDispute, error) {
	dispute, err := s.disputeRepo.GetByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repositories.ErrDisputeNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	evidence, err := s.disputeRepo.ListEvidence(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if s.evidence != nil {
		for i := range evidence {
			evidence[i].URL = s.evidence.PublicURL(evidence[i].ObjectKey)
		}
	}
	dispute.Evidence = evidence
	return dispute, nil
}

func (s *DisputeService) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.DisputeStatus) ([]*models.MatchDispute, error) {
	return s.disputeRepo.ListByTournament(ctx, tournamentID, statusFilter)
}
