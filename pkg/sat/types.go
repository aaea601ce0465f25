package sat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction selects which side of the invoice the queried taxpayer is on.
type Direction string

const (
	DirectionIssued   Direction = "issued"
	DirectionReceived Direction = "received"
)

// RequestType selects whether the remote query returns full XML documents or
// only metadata rows.
type RequestType string

const (
	RequestTypeCFDI     RequestType = "CFDI"
	RequestTypeMetadata RequestType = "Metadata"
)

// StatusFilter narrows a query to documents in a given legal state. The empty
// value means no filter.
type StatusFilter string

const (
	StatusFilterAll       StatusFilter = ""
	StatusFilterActive    StatusFilter = "active"
	StatusFilterCancelled StatusFilter = "cancelled"
)

// QueryStatus is the remote service's answer to VerifyQuery.
type QueryStatus string

const (
	QueryStatusAccepted   QueryStatus = "accepted"
	QueryStatusInProgress QueryStatus = "in_progress"
	QueryStatusFinished   QueryStatus = "finished"
	QueryStatusRejected   QueryStatus = "rejected"
	QueryStatusFailed     QueryStatus = "failed"
)

// DocumentStatus is the authoritative legal state of a single document as
// reported by the verification service.
type DocumentStatus string

const (
	DocumentStatusCurrent   DocumentStatus = "current"
	DocumentStatusCancelled DocumentStatus = "cancelled"
	DocumentStatusUnknown   DocumentStatus = "unknown"
)

// QueryParams describes one bulk-download query.
type QueryParams struct {
	RFC          string
	Start        time.Time
	End          time.Time
	Direction    Direction
	RequestType  RequestType
	StatusFilter StatusFilter
}

// VerifyResult is the outcome of polling a previously created query.
type VerifyResult struct {
	Status     QueryStatus
	PackageIDs []string
	Message    string
}

// Client is the remote acquisition service. The real SOAP transport and FIEL
// authentication live behind this interface and are not part of the core.
type Client interface {
	CreateQuery(ctx context.Context, params QueryParams) (string, error)
	VerifyQuery(ctx context.Context, remoteRequestID string) (*VerifyResult, error)
	DownloadPackage(ctx context.Context, remoteRequestID, packageID string) ([]byte, error)
}

// StatusService answers per-document legal-status queries. It is a separate
// remote endpoint from the bulk-download service and is consumed only by the
// verification sweeper.
type StatusService interface {
	QueryDocumentStatus(ctx context.Context, uuid, issuerRFC, receiverRFC string, total decimal.Decimal) (DocumentStatus, error)
}

// RemoteError is a transport-level failure. Transient marks server-side
// faults that are worth retrying.
type RemoteError struct {
	Op        string
	Message   string
	Code      int
	Transient bool
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("sat: %s: %s (code %d)", e.Op, e.Message, e.Code)
}

// RejectedError is an explicit protocol rejection. It is never retried.
type RejectedError struct {
	Op      string
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("sat: %s rejected: %s", e.Op, e.Message)
}

// IsRetryable reports whether err is a transient server-side fault.
func IsRetryable(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Transient
}

// IsRejected reports whether err is an explicit protocol rejection.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
