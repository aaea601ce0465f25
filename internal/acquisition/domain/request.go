package domain

import (
	"strings"
	"time"

	"cfdivault-backend/pkg/sat"
)

// RequestState is the lifecycle state of an acquisition request.
type RequestState string

const (
	StateCreated     RequestState = "created"
	StatePolling     RequestState = "polling"
	StateDownloading RequestState = "downloading"
	StateCompleted   RequestState = "completed"
	StateFailed      RequestState = "failed"
)

// Terminal reports whether the state is absorbing.
func (s RequestState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// NonTerminalStates is the set the runner's tick query selects from.
var NonTerminalStates = []RequestState{StateCreated, StatePolling, StateDownloading}

// AcquisitionRequest tracks one bulk-download query for one taxpayer and
// direction. Rows are mutated exclusively by the runner and kept as an audit
// trail; they are never deleted automatically.
type AcquisitionRequest struct {
	ID              string        `json:"id" gorm:"primaryKey"`
	TaxpayerRFC     string        `json:"taxpayer_rfc" gorm:"index;not null"`
	Direction       sat.Direction `json:"direction" gorm:"type:varchar(16);not null"`
	WindowStart     time.Time     `json:"window_start" gorm:"not null"`
	WindowEnd       time.Time     `json:"window_end" gorm:"not null"`
	RemoteRequestID string        `json:"remote_request_id" gorm:"index"`
	State           RequestState  `json:"state" gorm:"type:varchar(16);index;not null"`
	RemoteStatus    string        `json:"remote_status"`
	PackageIDs      string        `json:"package_ids"`
	ProcessedIDs    string        `json:"processed_ids"`
	PackageCount    int           `json:"package_count"`
	DocumentCount   int           `json:"document_count"`
	AttemptCount    int           `json:"attempt_count"`
	NextRetryAt     *time.Time    `json:"next_retry_at" gorm:"index"`
	LastError       string        `json:"last_error"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Packages returns the package ids recorded by the verify step.
func (r *AcquisitionRequest) Packages() []string {
	return splitIDs(r.PackageIDs)
}

// PackageProcessed reports whether a package has already been extracted and
// indexed.
func (r *AcquisitionRequest) PackageProcessed(packageID string) bool {
	for _, id := range splitIDs(r.ProcessedIDs) {
		if id == packageID {
			return true
		}
	}
	return false
}

// MarkPackageProcessed records a package as fully indexed.
func (r *AcquisitionRequest) MarkPackageProcessed(packageID string) {
	if r.PackageProcessed(packageID) {
		return
	}
	ids := splitIDs(r.ProcessedIDs)
	ids = append(ids, packageID)
	r.ProcessedIDs = strings.Join(ids, ",")
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
