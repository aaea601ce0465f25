package repository

import (
	"time"

	acqdomain "cfdivault-backend/internal/acquisition/domain"
	"cfdivault-backend/pkg/sat"
)

// RequestRepository persists acquisition requests.
type RequestRepository interface {
	Create(req *acqdomain.AcquisitionRequest) error
	Update(req *acqdomain.AcquisitionRequest) error
	FindByID(id string) (*acqdomain.AcquisitionRequest, error)
	FindByTaxpayer(rfc string, limit int) ([]*acqdomain.AcquisitionRequest, error)

	// FindEligible returns up to limit non-terminal requests whose retry
	// timestamp is unset or in the past, oldest-created first.
	FindEligible(now time.Time, limit int) ([]*acqdomain.AcquisitionRequest, error)

	// FindActiveWindow returns a non-terminal request for the exact
	// taxpayer/direction/window combination, or nil.
	FindActiveWindow(rfc string, direction sat.Direction, start, end time.Time) (*acqdomain.AcquisitionRequest, error)

	IncrementDocumentCount(id string, delta int) error
}

// TaxpayerRepository persists sync subjects.
type TaxpayerRepository interface {
	Create(tp *acqdomain.Taxpayer) error
	FindByRFC(rfc string) (*acqdomain.Taxpayer, error)
	List() ([]*acqdomain.Taxpayer, error)

	// TryBeginSync atomically sets the syncing flag and reports whether this
	// caller won it.
	TryBeginSync(rfc string) (bool, error)

	// EndSync clears the syncing flag. A non-nil syncedAt also records the
	// last full sync time.
	EndSync(rfc string, syncedAt *time.Time) error

	SetLastVerified(rfc string, t time.Time) error

	// ResetSyncing is the operator escape hatch for a flag left set by a
	// crashed planner pass.
	ResetSyncing(rfc string) error
}
