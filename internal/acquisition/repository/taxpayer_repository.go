package repository

import (
	"errors"
	"time"

	acqdomain "cfdivault-backend/internal/acquisition/domain"

	"gorm.io/gorm"
)

// taxpayerRepository implements TaxpayerRepository on gorm.
type taxpayerRepository struct {
	db *gorm.DB
}

func NewTaxpayerRepository(db *gorm.DB) TaxpayerRepository {
	return &taxpayerRepository{db: db}
}

func (r *taxpayerRepository) Create(tp *acqdomain.Taxpayer) error {
	return r.db.Create(tp).Error
}

func (r *taxpayerRepository) FindByRFC(rfc string) (*acqdomain.Taxpayer, error) {
	var tp acqdomain.Taxpayer
	err := r.db.Where("rfc = ?", rfc).First(&tp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tp, nil
}

func (r *taxpayerRepository) List() ([]*acqdomain.Taxpayer, error) {
	var tps []*acqdomain.Taxpayer
	if err := r.db.Order("rfc ASC").Find(&tps).Error; err != nil {
		return nil, err
	}
	return tps, nil
}

func (r *taxpayerRepository) TryBeginSync(rfc string) (bool, error) {
	res := r.db.Model(&acqdomain.Taxpayer{}).
		Where("rfc = ? AND syncing = ?", rfc, false).
		Update("syncing", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *taxpayerRepository) EndSync(rfc string, syncedAt *time.Time) error {
	updates := map[string]interface{}{"syncing": false}
	if syncedAt != nil {
		updates["last_full_sync_at"] = *syncedAt
	}
	return r.db.Model(&acqdomain.Taxpayer{}).Where("rfc = ?", rfc).Updates(updates).Error
}

func (r *taxpayerRepository) SetLastVerified(rfc string, t time.Time) error {
	return r.db.Model(&acqdomain.Taxpayer{}).Where("rfc = ?", rfc).
		Update("last_verified_at", t).Error
}

func (r *taxpayerRepository) ResetSyncing(rfc string) error {
	return r.db.Model(&acqdomain.Taxpayer{}).Where("rfc = ?", rfc).
		Update("syncing", false).Error
}
