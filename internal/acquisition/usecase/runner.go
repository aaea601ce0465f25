package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	acqdomain "cfdivault-backend/internal/acquisition/domain"
	"cfdivault-backend/internal/acquisition/repository"
	docusecase "cfdivault-backend/internal/document/usecase"
	"cfdivault-backend/pkg/archive"
	"cfdivault-backend/pkg/cfdi"
	"cfdivault-backend/pkg/sat"

	"go.uber.org/zap"
)

const (
	// pollDelay spaces out verify calls while the remote query is still
	// being prepared.
	pollDelay = 1 * time.Minute

	// retryDelay is the state-level retry spacing after a transient
	// failure. Exponential backoff lives inside the client wrapper, not
	// here.
	retryDelay = 1 * time.Minute
)

var ErrRequestNotFound = errors.New("acquisition request not found")

// Indexer ingests one parsed invoice. Implemented by the document indexer.
type Indexer interface {
	Index(inv *cfdi.Invoice, raw []byte, taxpayerRFC, requestID string) (docusecase.IndexOutcome, error)
}

// Runner drives acquisition requests through their lifecycle:
// created → polling → downloading → completed, with failed reachable from any
// non-terminal state. One tick processes a batch of eligible requests
// sequentially, oldest first.
type Runner struct {
	requests   repository.RequestRepository
	client     sat.Client
	indexer    Indexer
	storageDir string
	batchSize  int
	interval   time.Duration
	stopChan   chan struct{}
	now        func() time.Time
	logger     *zap.Logger
}

func NewRunner(
	requests repository.RequestRepository,
	client sat.Client,
	indexer Indexer,
	storageDir string,
	batchSize int,
	interval time.Duration,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		requests:   requests,
		client:     client,
		indexer:    indexer,
		storageDir: storageDir,
		batchSize:  batchSize,
		interval:   interval,
		stopChan:   make(chan struct{}),
		now:        time.Now,
		logger:     logger,
	}
}

// Start runs ticks continuously until Stop or context cancellation. The stop
// condition is only checked between ticks.
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("starting acquisition runner",
		zap.Duration("interval", r.interval),
		zap.Int("batch_size", r.batchSize),
	)

	go func() {
		// Run immediately on start
		r.Tick(ctx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.Tick(ctx)
			case <-r.stopChan:
				r.logger.Info("acquisition runner stopped")
				return
			case <-ctx.Done():
				r.logger.Info("acquisition runner context cancelled")
				return
			}
		}
	}()
}

// Stop ends the continuous loop after the current tick.
func (r *Runner) Stop() {
	close(r.stopChan)
}

// Tick selects one batch of eligible requests and advances each in turn.
// It returns how many requests were processed.
func (r *Runner) Tick(ctx context.Context) int {
	reqs, err := r.requests.FindEligible(r.now(), r.batchSize)
	if err != nil {
		r.logger.Error("failed to select eligible requests", zap.Error(err))
		return 0
	}

	for _, req := range reqs {
		r.process(ctx, req)
	}
	return len(reqs)
}

// process advances one request by a single step. Errors never escape: they
// either fail the request (rejections, corrupt packages) or schedule a
// state-level retry.
func (r *Runner) process(ctx context.Context, req *acqdomain.AcquisitionRequest) {
	var err error

	switch req.State {
	case acqdomain.StateCreated:
		err = r.stepCreate(ctx, req)
	case acqdomain.StatePolling:
		err = r.stepPoll(ctx, req)
	case acqdomain.StateDownloading:
		err = r.stepDownload(ctx, req)
	default:
		// Terminal states are absorbing.
		return
	}

	if err == nil {
		return
	}

	if sat.IsRejected(err) || errors.Is(err, archive.ErrCorruptArchive) {
		r.fail(req, err)
		return
	}
	r.scheduleRetry(req, err)
}

// stepCreate issues the remote query. A request recovered after a crash with
// the remote id already set skips the remote call: the id is set at most
// once.
func (r *Runner) stepCreate(ctx context.Context, req *acqdomain.AcquisitionRequest) error {
	if req.RemoteRequestID == "" {
		remoteID, err := r.client.CreateQuery(ctx, sat.QueryParams{
			RFC:         req.TaxpayerRFC,
			Start:       req.WindowStart,
			End:         req.WindowEnd,
			Direction:   req.Direction,
			RequestType: sat.RequestTypeCFDI,
		})
		if err != nil {
			return err
		}
		req.RemoteRequestID = remoteID
	}

	req.State = acqdomain.StatePolling
	req.NextRetryAt = nil
	req.LastError = ""
	if err := r.requests.Update(req); err != nil {
		return fmt.Errorf("persisting polling transition: %w", err)
	}

	r.logger.Info("query created",
		zap.String("request_id", req.ID),
		zap.String("rfc", req.TaxpayerRFC),
		zap.String("remote_request_id", req.RemoteRequestID),
	)
	return nil
}

func (r *Runner) stepPoll(ctx context.Context, req *acqdomain.AcquisitionRequest) error {
	result, err := r.client.VerifyQuery(ctx, req.RemoteRequestID)
	if err != nil {
		return err
	}

	req.RemoteStatus = string(result.Status)

	switch result.Status {
	case sat.QueryStatusFinished:
		if len(result.PackageIDs) == 0 {
			req.State = acqdomain.StateCompleted
			r.logger.Info("query finished with no packages",
				zap.String("request_id", req.ID),
				zap.String("rfc", req.TaxpayerRFC),
			)
		} else {
			req.State = acqdomain.StateDownloading
			req.PackageIDs = strings.Join(result.PackageIDs, ",")
			req.PackageCount = len(result.PackageIDs)
			r.logger.Info("query finished",
				zap.String("request_id", req.ID),
				zap.String("rfc", req.TaxpayerRFC),
				zap.Int("packages", req.PackageCount),
			)
		}
		req.NextRetryAt = nil

	case sat.QueryStatusAccepted, sat.QueryStatusInProgress:
		next := r.now().Add(pollDelay)
		req.NextRetryAt = &next

	case sat.QueryStatusRejected, sat.QueryStatusFailed:
		// Persisted by fail() in the caller.
		return &sat.RejectedError{Op: "VerifyQuery", Message: result.Message}

	default:
		return fmt.Errorf("unexpected verify status %q", result.Status)
	}

	return r.requests.Update(req)
}

// stepDownload fetches, extracts, and indexes every package. Packages whose
// bookkeeping says they are done are skipped, and a package whose artifact is
// already on disk is not downloaded again, so re-entering after a crash does
// no duplicate work.
func (r *Runner) stepDownload(ctx context.Context, req *acqdomain.AcquisitionRequest) error {
	for _, pkgID := range req.Packages() {
		if req.PackageProcessed(pkgID) {
			continue
		}

		data, err := r.loadOrDownload(ctx, req, pkgID)
		if err != nil {
			return err
		}

		indexed := 0
		err = archive.ExtractZip(data, func(name string, content []byte) error {
			inv, perr := cfdi.Parse(content)
			if perr != nil {
				// Per-file faults never abort the rest of the package.
				r.logger.Warn("skipping unparseable document",
					zap.String("request_id", req.ID),
					zap.String("package_id", pkgID),
					zap.String("file", name),
					zap.Error(perr),
				)
				return nil
			}
			if inv.DateFallback {
				r.logger.Warn("document date unparseable, substituted current time",
					zap.String("uuid", inv.UUID),
					zap.String("file", name),
				)
			}

			outcome, ierr := r.indexer.Index(inv, content, req.TaxpayerRFC, req.ID)
			if ierr != nil {
				return ierr
			}
			if outcome == docusecase.OutcomeInserted {
				indexed++
				req.DocumentCount++
			}
			return nil
		})
		if err != nil {
			return err
		}

		req.MarkPackageProcessed(pkgID)
		if err := r.requests.Update(req); err != nil {
			return fmt.Errorf("persisting package bookkeeping: %w", err)
		}

		r.logger.Info("package indexed",
			zap.String("request_id", req.ID),
			zap.String("package_id", pkgID),
			zap.Int("documents", indexed),
		)
	}

	req.State = acqdomain.StateCompleted
	req.NextRetryAt = nil
	if err := r.requests.Update(req); err != nil {
		return fmt.Errorf("persisting completion: %w", err)
	}

	r.logger.Info("request completed",
		zap.String("request_id", req.ID),
		zap.String("rfc", req.TaxpayerRFC),
		zap.Int("documents", req.DocumentCount),
	)
	return nil
}

// loadOrDownload returns the raw package bytes, reusing the on-disk artifact
// when a previous attempt already persisted it.
func (r *Runner) loadOrDownload(ctx context.Context, req *acqdomain.AcquisitionRequest, pkgID string) ([]byte, error) {
	path := r.packagePath(req, pkgID)

	if data, err := os.ReadFile(path); err == nil {
		r.logger.Info("package artifact already on disk, skipping download",
			zap.String("request_id", req.ID),
			zap.String("package_id", pkgID),
		)
		return data, nil
	}

	data, err := r.client.DownloadPackage(ctx, req.RemoteRequestID, pkgID)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating package dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("persisting package %s: %w", pkgID, err)
	}
	return data, nil
}

func (r *Runner) packagePath(req *acqdomain.AcquisitionRequest, pkgID string) string {
	return filepath.Join(r.storageDir, "packages", req.TaxpayerRFC, req.ID, pkgID+".zip")
}

// Requeue puts a failed request back in flight. Recovery point depends on
// how far it got: remote id and package list survive the failure.
func (r *Runner) Requeue(id string) (*acqdomain.AcquisitionRequest, error) {
	req, err := r.requests.FindByID(id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.State != acqdomain.StateFailed {
		return nil, fmt.Errorf("request %s is %s, only failed requests can be requeued", id, req.State)
	}

	switch {
	case req.RemoteRequestID == "":
		req.State = acqdomain.StateCreated
	case req.PackageIDs != "":
		req.State = acqdomain.StateDownloading
	default:
		req.State = acqdomain.StatePolling
	}
	req.NextRetryAt = nil
	req.LastError = ""

	if err := r.requests.Update(req); err != nil {
		return nil, err
	}

	r.logger.Info("request requeued",
		zap.String("request_id", req.ID),
		zap.String("state", string(req.State)),
	)
	return req, nil
}

func (r *Runner) fail(req *acqdomain.AcquisitionRequest, cause error) {
	req.State = acqdomain.StateFailed
	req.LastError = cause.Error()
	req.NextRetryAt = nil

	if err := r.requests.Update(req); err != nil {
		r.logger.Error("failed to persist request failure",
			zap.String("request_id", req.ID), zap.Error(err))
		return
	}

	r.logger.Error("request failed",
		zap.String("request_id", req.ID),
		zap.String("rfc", req.TaxpayerRFC),
		zap.Error(cause),
	)
}

func (r *Runner) scheduleRetry(req *acqdomain.AcquisitionRequest, cause error) {
	req.AttemptCount++
	next := r.now().Add(retryDelay)
	req.NextRetryAt = &next
	req.LastError = cause.Error()

	if err := r.requests.Update(req); err != nil {
		r.logger.Error("failed to persist retry schedule",
			zap.String("request_id", req.ID), zap.Error(err))
		return
	}

	r.logger.Warn("request retry scheduled",
		zap.String("request_id", req.ID),
		zap.String("state", string(req.State)),
		zap.Int("attempts", req.AttemptCount),
		zap.Time("next_retry_at", next),
		zap.Error(cause),
	)
}
