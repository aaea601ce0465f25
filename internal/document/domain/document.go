package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Classification places a document relative to its taxpayer of record.
type Classification string

const (
	ClassificationIssued   Classification = "issued"
	ClassificationReceived Classification = "received"
	ClassificationOther    Classification = "other"
)

// LegalStatus is the last known authoritative state of a document at the tax
// authority, independent of the locally stored data.
type LegalStatus string

const (
	LegalStatusCurrent   LegalStatus = "current"
	LegalStatusCancelled LegalStatus = "cancelled"
	LegalStatusUnknown   LegalStatus = "unknown"
)

// Document is one indexed tax record. The UUID is globally unique: a second
// ingestion attempt with the same UUID is a no-op. Financial fields are
// immutable after creation; only the legal-status fields are refreshed by the
// verification sweeper.
type Document struct {
	UUID           string          `json:"uuid" gorm:"primaryKey"`
	IssuerRFC      string          `json:"issuer_rfc" gorm:"index;not null"`
	IssuerName     string          `json:"issuer_name"`
	ReceiverRFC    string          `json:"receiver_rfc" gorm:"index;not null"`
	ReceiverName   string          `json:"receiver_name"`
	IssuedAt       time.Time       `json:"issued_at" gorm:"index;not null"`
	DocType        string          `json:"doc_type" gorm:"type:varchar(8)"`
	Total          decimal.Decimal `json:"total" gorm:"type:numeric(18,6)"`
	TransferredTax decimal.Decimal `json:"transferred_tax" gorm:"type:numeric(18,6)"`
	WithheldTax    decimal.Decimal `json:"withheld_tax" gorm:"type:numeric(18,6)"`
	TaxpayerRFC    string          `json:"taxpayer_rfc" gorm:"index;not null"`
	Classification Classification  `json:"classification" gorm:"type:varchar(16);not null"`
	StoragePath    string          `json:"storage_path"`
	RequestID      string          `json:"request_id" gorm:"index"`
	LegalStatus    LegalStatus     `json:"legal_status" gorm:"type:varchar(16);index;default:unknown"`
	Cancelled      bool            `json:"cancelled" gorm:"not null;default:false"`
	LegalCheckedAt *time.Time      `json:"legal_checked_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
