package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	acqdomain "cfdivault-backend/internal/acquisition/domain"
	"cfdivault-backend/internal/acquisition/repository"
	"cfdivault-backend/pkg/sat"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// backfillYears is how far the first sync of a taxpayer reaches back.
	backfillYears = 5

	// overlapDays is the incremental-window overlap that catches documents
	// the remote service finalizes late.
	overlapDays = 2

	// endLag keeps the window end in the past, as the remote service
	// requires.
	endLag = 5 * time.Minute

	// verificationInterval is how often a taxpayer's documents get a
	// legal-status sweep.
	verificationInterval = 24 * time.Hour
)

var ErrTaxpayerNotFound = errors.New("taxpayer not found")

// SyncOutcome is the result of a sync-if-needed call.
type SyncOutcome string

const (
	SyncOutcomeAlreadySyncing SyncOutcome = "already_syncing"
	SyncOutcomeTooRecent      SyncOutcome = "too_recent"
	SyncOutcomeSuccess        SyncOutcome = "success"
)

// SyncResult reports what a planning pass did.
type SyncResult struct {
	Outcome         SyncOutcome `json:"outcome"`
	RequestsCreated int         `json:"requests_created"`
}

// DocumentDates supplies the latest indexed document date per taxpayer and
// direction. Implemented by the document repository.
type DocumentDates interface {
	LatestIssuedAt(taxpayerRFC string, direction sat.Direction) (*time.Time, error)
}

// VerificationTrigger runs a legal-status sweep for one taxpayer.
// Implemented by the document verification sweeper.
type VerificationTrigger interface {
	SweepTaxpayer(ctx context.Context, rfc string) error
}

// SyncPlanner decides what date window each taxpayer and direction needs
// next and creates the acquisition requests for it.
type SyncPlanner struct {
	taxpayers       repository.TaxpayerRepository
	requests        repository.RequestRepository
	docDates        DocumentDates
	verifier        VerificationTrigger
	minSyncInterval time.Duration
	stopChan        chan struct{}
	now             func() time.Time
	logger          *zap.Logger
}

func NewSyncPlanner(
	taxpayers repository.TaxpayerRepository,
	requests repository.RequestRepository,
	docDates DocumentDates,
	verifier VerificationTrigger,
	minSyncInterval time.Duration,
	logger *zap.Logger,
) *SyncPlanner {
	return &SyncPlanner{
		taxpayers:       taxpayers,
		requests:        requests,
		docDates:        docDates,
		verifier:        verifier,
		minSyncInterval: minSyncInterval,
		stopChan:        make(chan struct{}),
		now:             time.Now,
		logger:          logger,
	}
}

// Start plans every registered taxpayer on a fixed cadence until Stop or
// context cancellation. The recency guard keeps repeated passes cheap.
func (p *SyncPlanner) Start(ctx context.Context, interval time.Duration) {
	p.logger.Info("starting sync planner", zap.Duration("interval", interval))

	go func() {
		p.PlanAll(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.PlanAll(ctx)
			case <-p.stopChan:
				p.logger.Info("sync planner stopped")
				return
			case <-ctx.Done():
				p.logger.Info("sync planner context cancelled")
				return
			}
		}
	}()
}

// Stop ends the periodic loop after the current pass.
func (p *SyncPlanner) Stop() {
	close(p.stopChan)
}

// PlanAll runs SyncIfNeeded for every registered taxpayer. Per-taxpayer
// failures are logged and do not stop the pass. It returns how many
// acquisition requests were created.
func (p *SyncPlanner) PlanAll(ctx context.Context) int {
	tps, err := p.taxpayers.List()
	if err != nil {
		p.logger.Error("failed to list taxpayers for planning", zap.Error(err))
		return 0
	}

	created := 0
	for _, tp := range tps {
		result, err := p.SyncIfNeeded(ctx, tp.RFC, false)
		if err != nil {
			p.logger.Error("planning pass failed for taxpayer",
				zap.String("rfc", tp.RFC), zap.Error(err))
			continue
		}
		created += result.RequestsCreated
	}
	return created
}

// SyncIfNeeded plans both directions for the taxpayer. It is guarded by the
// per-taxpayer syncing flag and a minimum interval between full syncs; force
// bypasses the interval check and the duplicate-window check.
func (p *SyncPlanner) SyncIfNeeded(ctx context.Context, rfc string, force bool) (*SyncResult, error) {
	tp, err := p.taxpayers.FindByRFC(rfc)
	if err != nil {
		return nil, fmt.Errorf("loading taxpayer %s: %w", rfc, err)
	}
	if tp == nil {
		return nil, ErrTaxpayerNotFound
	}

	now := p.now()
	if !force && tp.LastFullSyncAt != nil && now.Sub(*tp.LastFullSyncAt) < p.minSyncInterval {
		return &SyncResult{Outcome: SyncOutcomeTooRecent}, nil
	}

	won, err := p.taxpayers.TryBeginSync(rfc)
	if err != nil {
		return nil, fmt.Errorf("acquiring sync flag for %s: %w", rfc, err)
	}
	if !won {
		return &SyncResult{Outcome: SyncOutcomeAlreadySyncing}, nil
	}

	created := 0
	for _, dir := range []sat.Direction{sat.DirectionIssued, sat.DirectionReceived} {
		n, err := p.planDirection(tp, dir, force)
		if err != nil {
			// Leave no half-planned state behind: clear the flag and
			// propagate so a later attempt is not blocked.
			if clearErr := p.taxpayers.EndSync(rfc, nil); clearErr != nil {
				p.logger.Error("failed to clear syncing flag after planner error",
					zap.String("rfc", rfc), zap.Error(clearErr))
			}
			return nil, fmt.Errorf("planning %s window for %s: %w", dir, rfc, err)
		}
		created += n
	}

	syncedAt := p.now()
	if err := p.taxpayers.EndSync(rfc, &syncedAt); err != nil {
		return nil, fmt.Errorf("recording sync completion for %s: %w", rfc, err)
	}

	p.maybeVerify(ctx, tp, now)

	return &SyncResult{Outcome: SyncOutcomeSuccess, RequestsCreated: created}, nil
}

// PlanWindow computes the next request window for one direction.
func (p *SyncPlanner) PlanWindow(tp *acqdomain.Taxpayer, direction sat.Direction) (time.Time, time.Time, error) {
	now := p.now()
	end := now.Add(-endLag)

	if tp.LastFullSyncAt == nil {
		return p.backfillStart(now), end, nil
	}

	latest, err := p.docDates.LatestIssuedAt(tp.RFC, direction)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("finding latest document date: %w", err)
	}
	if latest == nil {
		return p.backfillStart(now), end, nil
	}

	overlap := latest.AddDate(0, 0, -overlapDays)
	start := time.Date(overlap.Year(), overlap.Month(), overlap.Day(), 0, 0, 0, 0, overlap.Location())
	return start, end, nil
}

// backfillStart is Jan 1 of the calendar year five years before now.
func (p *SyncPlanner) backfillStart(now time.Time) time.Time {
	return time.Date(now.Year()-backfillYears, time.January, 1, 0, 0, 0, 0, now.Location())
}

func (p *SyncPlanner) planDirection(tp *acqdomain.Taxpayer, direction sat.Direction, force bool) (int, error) {
	start, end, err := p.PlanWindow(tp, direction)
	if err != nil {
		return 0, err
	}

	// end > start always holds; widen the window rather than reject it.
	if !end.After(start) {
		end = start.Add(2 * time.Second)
	}

	if !force {
		existing, err := p.requests.FindActiveWindow(tp.RFC, direction, start, end)
		if err != nil {
			return 0, fmt.Errorf("checking for duplicate window: %w", err)
		}
		if existing != nil {
			p.logger.Info("window already has an in-flight request, skipping",
				zap.String("rfc", tp.RFC),
				zap.String("direction", string(direction)),
				zap.String("request_id", existing.ID),
			)
			return 0, nil
		}
	}

	req := &acqdomain.AcquisitionRequest{
		ID:          uuid.NewString(),
		TaxpayerRFC: tp.RFC,
		Direction:   direction,
		WindowStart: start,
		WindowEnd:   end,
		State:       acqdomain.StateCreated,
	}
	if err := p.requests.Create(req); err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	p.logger.Info("acquisition request planned",
		zap.String("rfc", tp.RFC),
		zap.String("direction", string(direction)),
		zap.String("request_id", req.ID),
		zap.Time("start", start),
		zap.Time("end", end),
	)
	return 1, nil
}

func (p *SyncPlanner) maybeVerify(ctx context.Context, tp *acqdomain.Taxpayer, now time.Time) {
	if p.verifier == nil {
		return
	}
	if tp.LastVerifiedAt != nil && now.Sub(*tp.LastVerifiedAt) < verificationInterval {
		return
	}

	if err := p.verifier.SweepTaxpayer(ctx, tp.RFC); err != nil {
		p.logger.Warn("verification sweep failed",
			zap.String("rfc", tp.RFC), zap.Error(err))
		return
	}
	if err := p.taxpayers.SetLastVerified(tp.RFC, p.now()); err != nil {
		p.logger.Warn("failed to record verification time",
			zap.String("rfc", tp.RFC), zap.Error(err))
	}
}
