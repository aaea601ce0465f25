package repository

import (
	"errors"
	"time"

	acqdomain "cfdivault-backend/internal/acquisition/domain"
	"cfdivault-backend/pkg/sat"

	"gorm.io/gorm"
)

// requestRepository implements RequestRepository on gorm.
type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(req *acqdomain.AcquisitionRequest) error {
	return r.db.Create(req).Error
}

func (r *requestRepository) Update(req *acqdomain.AcquisitionRequest) error {
	return r.db.Save(req).Error
}

func (r *requestRepository) FindByID(id string) (*acqdomain.AcquisitionRequest, error) {
	var req acqdomain.AcquisitionRequest
	err := r.db.Where("id = ?", id).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindByTaxpayer(rfc string, limit int) ([]*acqdomain.AcquisitionRequest, error) {
	var reqs []*acqdomain.AcquisitionRequest
	q := r.db.Where("taxpayer_rfc = ?", rfc).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *requestRepository) FindEligible(now time.Time, limit int) ([]*acqdomain.AcquisitionRequest, error) {
	var reqs []*acqdomain.AcquisitionRequest
	err := r.db.
		Where("state IN ?", acqdomain.NonTerminalStates).
		Where("next_retry_at IS NULL OR next_retry_at <= ?", now).
		Order("created_at ASC").
		Limit(limit).
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *requestRepository) FindActiveWindow(rfc string, direction sat.Direction, start, end time.Time) (*acqdomain.AcquisitionRequest, error) {
	var req acqdomain.AcquisitionRequest
	err := r.db.
		Where("taxpayer_rfc = ? AND direction = ?", rfc, direction).
		Where("window_start = ? AND window_end = ?", start, end).
		Where("state IN ?", acqdomain.NonTerminalStates).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) IncrementDocumentCount(id string, delta int) error {
	return r.db.Model(&acqdomain.AcquisitionRequest{}).
		Where("id = ?", id).
		Update("document_count", gorm.Expr("document_count + ?", delta)).Error
}
