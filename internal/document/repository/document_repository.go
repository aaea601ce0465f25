package repository

import (
	"errors"
	"time"

	docdomain "cfdivault-backend/internal/document/domain"
	"cfdivault-backend/pkg/sat"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// documentRepository implements DocumentRepository on gorm.
type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Insert(doc *docdomain.Document) (bool, error) {
	// Conflict on the UUID primary key is the deduplication mechanism; the
	// insert must stay atomic so concurrent runners cannot race a
	// check-then-write.
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(doc)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *documentRepository) ExistsByUUID(uuid string) (bool, error) {
	var count int64
	err := r.db.Model(&docdomain.Document{}).Where("uuid = ?", uuid).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *documentRepository) FindByUUID(uuid string) (*docdomain.Document, error) {
	var doc docdomain.Document
	err := r.db.Where("uuid = ?", uuid).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) LatestIssuedAt(taxpayerRFC string, direction sat.Direction) (*time.Time, error) {
	classification := docdomain.ClassificationIssued
	if direction == sat.DirectionReceived {
		classification = docdomain.ClassificationReceived
	}

	var doc docdomain.Document
	err := r.db.
		Where("taxpayer_rfc = ? AND classification = ?", taxpayerRFC, classification).
		Order("issued_at DESC").
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc.IssuedAt, nil
}

func (r *documentRepository) FindStale(taxpayerRFC string, cutoff time.Time, filters StaleFilters, limit int) ([]*docdomain.Document, int64, error) {
	q := r.db.Model(&docdomain.Document{}).
		Where("taxpayer_rfc = ? AND cancelled = ?", taxpayerRFC, false).
		Where("legal_checked_at IS NULL OR legal_checked_at < ?", cutoff)

	if filters.Year > 0 {
		q = q.Where("EXTRACT(YEAR FROM issued_at) = ?", filters.Year)
	}
	if filters.Month > 0 {
		q = q.Where("EXTRACT(MONTH FROM issued_at) = ?", filters.Month)
	}
	if filters.Direction != "" {
		q = q.Where("classification = ?", filters.Direction)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var docs []*docdomain.Document
	if err := q.Order("issued_at ASC").Limit(limit).Find(&docs).Error; err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (r *documentRepository) UpdateLegalStatus(uuid string, status docdomain.LegalStatus, cancelled bool, checkedAt time.Time) error {
	return r.db.Model(&docdomain.Document{}).
		Where("uuid = ?", uuid).
		Updates(map[string]interface{}{
			"legal_status":     status,
			"cancelled":        cancelled,
			"legal_checked_at": checkedAt,
		}).Error
}

func (r *documentRepository) Search(params SearchParams) ([]*docdomain.Document, int64, error) {
	q := r.db.Model(&docdomain.Document{}).Where("taxpayer_rfc = ?", params.TaxpayerRFC)

	if params.Classification != "" {
		q = q.Where("classification = ?", params.Classification)
	}
	if !params.From.IsZero() {
		q = q.Where("issued_at >= ?", params.From)
	}
	if !params.To.IsZero() {
		q = q.Where("issued_at < ?", params.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	var docs []*docdomain.Document
	err := q.Order("issued_at DESC").Limit(limit).Offset(params.Offset).Find(&docs).Error
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}
