package usecase

import (
	"fmt"
	"os"
	"path/filepath"

	docdomain "cfdivault-backend/internal/document/domain"
	"cfdivault-backend/internal/document/repository"
	"cfdivault-backend/pkg/cfdi"

	"go.uber.org/zap"
)

// IndexOutcome is the result of one indexing attempt.
type IndexOutcome string

const (
	OutcomeInserted         IndexOutcome = "inserted"
	OutcomeSkippedDuplicate IndexOutcome = "skipped_duplicate"
)

// RequestCounter bumps the document counter on the owning acquisition
// request. Implemented by the acquisition request repository.
type RequestCounter interface {
	IncrementDocumentCount(requestID string, delta int) error
}

// Indexer persists parsed invoices exactly once, keyed by fiscal UUID.
type Indexer struct {
	docRepo    repository.DocumentRepository
	requests   RequestCounter
	storageDir string
	logger     *zap.Logger
}

func NewIndexer(docRepo repository.DocumentRepository, requests RequestCounter, storageDir string, logger *zap.Logger) *Indexer {
	return &Indexer{
		docRepo:    docRepo,
		requests:   requests,
		storageDir: storageDir,
		logger:     logger,
	}
}

// Index classifies the invoice against the taxpayer of record, persists the
// raw content at its deterministic path, and inserts the index row. A UUID
// that already exists is a no-op skip with no writes at all.
func (ix *Indexer) Index(inv *cfdi.Invoice, raw []byte, taxpayerRFC, requestID string) (IndexOutcome, error) {
	exists, err := ix.docRepo.ExistsByUUID(inv.UUID)
	if err != nil {
		return "", fmt.Errorf("checking document %s: %w", inv.UUID, err)
	}
	if exists {
		ix.logger.Info("document already indexed, skipping",
			zap.String("uuid", inv.UUID),
			zap.String("taxpayer", taxpayerRFC),
		)
		return OutcomeSkippedDuplicate, nil
	}

	classification := Classify(inv, taxpayerRFC)
	path := StoragePath(ix.storageDir, taxpayerRFC, classification, inv)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating storage dir for %s: %w", inv.UUID, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("writing raw content for %s: %w", inv.UUID, err)
	}

	doc := &docdomain.Document{
		UUID:           inv.UUID,
		IssuerRFC:      inv.IssuerRFC,
		IssuerName:     inv.IssuerName,
		ReceiverRFC:    inv.ReceiverRFC,
		ReceiverName:   inv.ReceiverName,
		IssuedAt:       inv.IssuedAt,
		DocType:        inv.DocType,
		Total:          inv.Total,
		TransferredTax: inv.TransferredTax,
		WithheldTax:    inv.WithheldTax,
		TaxpayerRFC:    taxpayerRFC,
		Classification: classification,
		StoragePath:    path,
		RequestID:      requestID,
		LegalStatus:    docdomain.LegalStatusUnknown,
	}

	inserted, err := ix.docRepo.Insert(doc)
	if err != nil {
		return "", fmt.Errorf("inserting document %s: %w", inv.UUID, err)
	}
	if !inserted {
		// Lost the insert to another writer; the path is deterministic so
		// the file written above is byte-identical to theirs.
		ix.logger.Info("document inserted concurrently, skipping",
			zap.String("uuid", inv.UUID))
		return OutcomeSkippedDuplicate, nil
	}

	if err := ix.requests.IncrementDocumentCount(requestID, 1); err != nil {
		return "", fmt.Errorf("incrementing document count for request %s: %w", requestID, err)
	}

	return OutcomeInserted, nil
}

// Classify places the invoice relative to the taxpayer of record.
func Classify(inv *cfdi.Invoice, taxpayerRFC string) docdomain.Classification {
	switch taxpayerRFC {
	case inv.IssuerRFC:
		return docdomain.ClassificationIssued
	case inv.ReceiverRFC:
		return docdomain.ClassificationReceived
	default:
		return docdomain.ClassificationOther
	}
}

// StoragePath derives the durable location of the raw XML. It depends only
// on the taxpayer of record, the document date, the classification, and the
// UUID, so re-running extraction with the same inputs lands on the same path.
func StoragePath(root, taxpayerRFC string, classification docdomain.Classification, inv *cfdi.Invoice) string {
	return filepath.Join(
		root,
		taxpayerRFC,
		inv.IssuedAt.Format("2006"),
		string(classification),
		inv.IssuedAt.Format("01"),
		inv.UUID+".xml",
	)
}
