package usecase

import (
	"context"
	"fmt"
	"time"

	docdomain "cfdivault-backend/internal/document/domain"
	"cfdivault-backend/internal/document/repository"
	"cfdivault-backend/pkg/sat"

	"go.uber.org/zap"
)

const (
	// sweepBatchSize caps how many documents one Sweep call verifies.
	sweepBatchSize = 500

	// staleness is how long a legal-status check stays fresh.
	staleness = 24 * time.Hour
)

// StatusChange records one observed legal-status transition.
type StatusChange struct {
	UUID string                `json:"uuid"`
	From docdomain.LegalStatus `json:"from"`
	To   docdomain.LegalStatus `json:"to"`
}

// SweepResult summarizes one verification pass.
type SweepResult struct {
	TotalPending int64          `json:"total_pending"`
	VerifiedNow  int            `json:"verified_now"`
	Changes      []StatusChange `json:"changes"`
}

// Sweeper re-checks the legal status of stale indexed documents against the
// authority's verification service. It only touches legal-status fields on
// existing rows, so it is safe to run alongside the runner.
type Sweeper struct {
	docRepo repository.DocumentRepository
	status  sat.StatusService
	now     func() time.Time
	logger  *zap.Logger
}

func NewSweeper(docRepo repository.DocumentRepository, status sat.StatusService, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		docRepo: docRepo,
		status:  status,
		now:     time.Now,
		logger:  logger,
	}
}

// Sweep verifies up to one batch of stale, not-cancelled documents for the
// taxpayer. Indeterminate remote answers leave the document untouched but
// still count toward VerifiedNow.
func (s *Sweeper) Sweep(ctx context.Context, taxpayerRFC string, filters repository.StaleFilters) (*SweepResult, error) {
	now := s.now()
	cutoff := now.Add(-staleness)

	docs, total, err := s.docRepo.FindStale(taxpayerRFC, cutoff, filters, sweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("selecting stale documents: %w", err)
	}

	result := &SweepResult{TotalPending: total, Changes: []StatusChange{}}

	for _, doc := range docs {
		remote, err := s.status.QueryDocumentStatus(ctx, doc.UUID, doc.IssuerRFC, doc.ReceiverRFC, doc.Total)
		result.VerifiedNow++

		if err != nil || remote == sat.DocumentStatusUnknown {
			s.logger.Warn("indeterminate legal status, leaving document untouched",
				zap.String("uuid", doc.UUID),
				zap.Error(err),
			)
			continue
		}

		status := legalStatusFromRemote(remote)
		if status != doc.LegalStatus {
			result.Changes = append(result.Changes, StatusChange{
				UUID: doc.UUID,
				From: doc.LegalStatus,
				To:   status,
			})
			s.logger.Info("legal status changed",
				zap.String("uuid", doc.UUID),
				zap.String("from", string(doc.LegalStatus)),
				zap.String("to", string(status)),
			)
		}

		cancelled := status == docdomain.LegalStatusCancelled
		if err := s.docRepo.UpdateLegalStatus(doc.UUID, status, cancelled, now); err != nil {
			return nil, fmt.Errorf("updating legal status for %s: %w", doc.UUID, err)
		}
	}

	return result, nil
}

// SweepTaxpayer runs an unfiltered sweep. It satisfies the planner's
// verification trigger.
func (s *Sweeper) SweepTaxpayer(ctx context.Context, rfc string) error {
	_, err := s.Sweep(ctx, rfc, repository.StaleFilters{})
	return err
}

func legalStatusFromRemote(remote sat.DocumentStatus) docdomain.LegalStatus {
	switch remote {
	case sat.DocumentStatusCurrent:
		return docdomain.LegalStatusCurrent
	case sat.DocumentStatusCancelled:
		return docdomain.LegalStatusCancelled
	default:
		return docdomain.LegalStatusUnknown
	}
}
