package repository

import (
	"time"

	docdomain "cfdivault-backend/internal/document/domain"
	"cfdivault-backend/pkg/sat"
)

// StaleFilters narrows a verification sweep. Zero values mean no filter.
type StaleFilters struct {
	Year      int
	Month     int
	Direction docdomain.Classification
}

// SearchParams scopes a document listing.
type SearchParams struct {
	TaxpayerRFC    string
	Classification docdomain.Classification
	From           time.Time
	To             time.Time
	Limit          int
	Offset         int
}

// DocumentRepository persists indexed documents.
type DocumentRepository interface {
	// Insert adds a document with an atomic unique-constraint insert.
	// It reports false when the UUID already exists; no row is touched in
	// that case.
	Insert(doc *docdomain.Document) (bool, error)

	ExistsByUUID(uuid string) (bool, error)
	FindByUUID(uuid string) (*docdomain.Document, error)

	// LatestIssuedAt returns the newest document date indexed for the
	// taxpayer in the given direction, or nil when none exists.
	LatestIssuedAt(taxpayerRFC string, direction sat.Direction) (*time.Time, error)

	// FindStale returns not-cancelled documents whose legal status was never
	// checked or was checked before cutoff, plus the total count pending.
	FindStale(taxpayerRFC string, cutoff time.Time, filters StaleFilters, limit int) ([]*docdomain.Document, int64, error)

	UpdateLegalStatus(uuid string, status docdomain.LegalStatus, cancelled bool, checkedAt time.Time) error

	Search(params SearchParams) ([]*docdomain.Document, int64, error)
}
