package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	acqdomain "cfdivault-backend/internal/acquisition/domain"
	docusecase "cfdivault-backend/internal/document/usecase"
	"cfdivault-backend/pkg/cfdi"
	"cfdivault-backend/pkg/sat"
)

// fakeTaxpayerRepo is an in-memory TaxpayerRepository.
type fakeTaxpayerRepo struct {
	tps          map[string]*acqdomain.Taxpayer
	denySync     bool
	endSyncCalls []*time.Time
}

func newFakeTaxpayerRepo(tps ...*acqdomain.Taxpayer) *fakeTaxpayerRepo {
	f := &fakeTaxpayerRepo{tps: map[string]*acqdomain.Taxpayer{}}
	for _, tp := range tps {
		f.tps[tp.RFC] = tp
	}
	return f
}

func (f *fakeTaxpayerRepo) Create(tp *acqdomain.Taxpayer) error {
	f.tps[tp.RFC] = tp
	return nil
}

func (f *fakeTaxpayerRepo) FindByRFC(rfc string) (*acqdomain.Taxpayer, error) {
	return f.tps[rfc], nil
}

func (f *fakeTaxpayerRepo) List() ([]*acqdomain.Taxpayer, error) {
	var out []*acqdomain.Taxpayer
	for _, tp := range f.tps {
		out = append(out, tp)
	}
	return out, nil
}

func (f *fakeTaxpayerRepo) TryBeginSync(rfc string) (bool, error) {
	if f.denySync {
		return false, nil
	}
	tp := f.tps[rfc]
	if tp.Syncing {
		return false, nil
	}
	tp.Syncing = true
	return true, nil
}

func (f *fakeTaxpayerRepo) EndSync(rfc string, syncedAt *time.Time) error {
	tp := f.tps[rfc]
	tp.Syncing = false
	if syncedAt != nil {
		tp.LastFullSyncAt = syncedAt
	}
	f.endSyncCalls = append(f.endSyncCalls, syncedAt)
	return nil
}

func (f *fakeTaxpayerRepo) SetLastVerified(rfc string, t time.Time) error {
	f.tps[rfc].LastVerifiedAt = &t
	return nil
}

func (f *fakeTaxpayerRepo) ResetSyncing(rfc string) error {
	f.tps[rfc].Syncing = false
	return nil
}

// fakeRequestRepo is an in-memory RequestRepository.
type fakeRequestRepo struct {
	reqs      map[string]*acqdomain.AcquisitionRequest
	createErr error
	created   []*acqdomain.AcquisitionRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{reqs: map[string]*acqdomain.AcquisitionRequest{}}
}

func (f *fakeRequestRepo) Create(req *acqdomain.AcquisitionRequest) error {
	if f.createErr != nil {
		return f.createErr
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	f.reqs[req.ID] = req
	f.created = append(f.created, req)
	return nil
}

func (f *fakeRequestRepo) Update(req *acqdomain.AcquisitionRequest) error {
	if _, ok := f.reqs[req.ID]; !ok {
		return errors.New("request not found")
	}
	f.reqs[req.ID] = req
	return nil
}

func (f *fakeRequestRepo) FindByID(id string) (*acqdomain.AcquisitionRequest, error) {
	return f.reqs[id], nil
}

func (f *fakeRequestRepo) FindByTaxpayer(rfc string, limit int) ([]*acqdomain.AcquisitionRequest, error) {
	var out []*acqdomain.AcquisitionRequest
	for _, req := range f.reqs {
		if req.TaxpayerRFC == rfc {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) FindEligible(now time.Time, limit int) ([]*acqdomain.AcquisitionRequest, error) {
	var out []*acqdomain.AcquisitionRequest
	for _, req := range f.reqs {
		if req.State.Terminal() {
			continue
		}
		if req.NextRetryAt != nil && req.NextRetryAt.After(now) {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRequestRepo) FindActiveWindow(rfc string, direction sat.Direction, start, end time.Time) (*acqdomain.AcquisitionRequest, error) {
	for _, req := range f.reqs {
		if req.TaxpayerRFC == rfc && req.Direction == direction &&
			req.WindowStart.Equal(start) && req.WindowEnd.Equal(end) &&
			!req.State.Terminal() {
			return req, nil
		}
	}
	return nil, nil
}

func (f *fakeRequestRepo) IncrementDocumentCount(id string, delta int) error {
	return nil
}

// fakeDocDates serves per-direction latest document dates.
type fakeDocDates struct {
	latest map[sat.Direction]*time.Time
}

func (f *fakeDocDates) LatestIssuedAt(_ string, direction sat.Direction) (*time.Time, error) {
	if f.latest == nil {
		return nil, nil
	}
	return f.latest[direction], nil
}

// fakeVerifier counts sweep triggers.
type fakeVerifier struct {
	calls []string
	err   error
}

func (f *fakeVerifier) SweepTaxpayer(_ context.Context, rfc string) error {
	f.calls = append(f.calls, rfc)
	return f.err
}

// stubClient is a scriptable sat.Client.
type stubClient struct {
	createFn   func(sat.QueryParams) (string, error)
	verifyFn   func(string) (*sat.VerifyResult, error)
	downloadFn func(remoteID, packageID string) ([]byte, error)

	createCalls   int
	verifyCalls   int
	downloadCalls int
}

func (c *stubClient) CreateQuery(_ context.Context, params sat.QueryParams) (string, error) {
	c.createCalls++
	return c.createFn(params)
}

func (c *stubClient) VerifyQuery(_ context.Context, remoteID string) (*sat.VerifyResult, error) {
	c.verifyCalls++
	return c.verifyFn(remoteID)
}

func (c *stubClient) DownloadPackage(_ context.Context, remoteID, packageID string) ([]byte, error) {
	c.downloadCalls++
	return c.downloadFn(remoteID, packageID)
}

// fakeIndexer records what it was asked to index and reports duplicates by
// UUID.
type fakeIndexer struct {
	indexed []string
	seen    map[string]bool
	err     error
}

func (f *fakeIndexer) Index(inv *cfdi.Invoice, _ []byte, _, _ string) (docusecase.IndexOutcome, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[inv.UUID] {
		return docusecase.OutcomeSkippedDuplicate, nil
	}
	f.seen[inv.UUID] = true
	f.indexed = append(f.indexed, inv.UUID)
	return docusecase.OutcomeInserted, nil
}
