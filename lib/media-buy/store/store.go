package mediabuystore

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"adops-backend/models"
	mediabuyapimodels "adops-backend/models/api/mediabuy"
	dbmodels "adops-backend/models/db"
)

type Provider interface {
	Create(rec dbmodels.MediaBuy) (id string, err error)
	GetByID(tenantID, id string) (rec *dbmodels.MediaBuy, err error)
	Update(tenantID, id string, updMap map[string]interface{}) error
	ListCount(tenantID string, filter mediabuyapimodels.MediaBuyFilter) (count int64, err error)
	List(tenantID string, filter mediabuyapimodels.MediaBuyFilter) (list []dbmodels.MediaBuy, err error)
	// ListDeliverable активные закупки, по которым ведётся учёт открутки
	ListDeliverable() (list []dbmodels.MediaBuy, err error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Create(rec dbmodels.MediaBuy) (id string, err error) {
	err = i.db.
		Create(&rec).
		Error
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (i impl) GetByID(tenantID, id string) (*dbmodels.MediaBuy, error) {
	rec := dbmodels.MediaBuy{}
	tx := i.db.
		Where("id = ?", id)
	if tenantID != "" {
		tx = tx.Where("tenant_id = ?", tenantID)
	}
	err := tx.
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (i impl) Update(tenantID, id string, updMap map[string]interface{}) error {
	if len(updMap) == 0 {
		return nil
	}
	err := i.db.
		Model(&dbmodels.MediaBuy{}).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Updates(updMap).
		Error
	if err != nil {
		return err
	}
	return nil
}

func (i impl) ListCount(tenantID string, filter mediabuyapimodels.MediaBuyFilter) (count int64, err error) {
	var rowCount int64
	tx := i.db.
		Model(dbmodels.MediaBuy{}).
		Where("tenant_id = ?", tenantID)
	i.addFilter(tx, filter)
	err = tx.Count(&rowCount).Error
	if err != nil {
		return 0, errors.Wrap(err, "ошибка получения общего количества закупок")
	}
	return rowCount, nil
}

func (i impl) List(tenantID string, filter mediabuyapimodels.MediaBuyFilter) (list []dbmodels.MediaBuy, err error) {
	list = []dbmodels.MediaBuy{}
	tx := i.db.
		Model(dbmodels.MediaBuy{}).
		Where("tenant_id = ?", tenantID)
	i.addFilter(tx, filter)
	page, limit := filter.GetPage()
	i.setPage(tx, page, limit)
	err = tx.
		Order("created_at DESC").
		Find(&list).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return list, nil
}

func (i impl) ListDeliverable() (list []dbmodels.MediaBuy, err error) {
	list = []dbmodels.MediaBuy{}
	err = i.db.
		Model(dbmodels.MediaBuy{}).
		Where("status = ?", models.MediaBuyStatusActive).
		Find(&list).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return list, nil
}

func (i impl) addFilter(tx *gorm.DB, filter mediabuyapimodels.MediaBuyFilter) {
	if len(filter.Statuses) > 0 {
		tx = tx.Where("status IN ?", filter.Statuses)
	}
	if filter.PrincipalID != "" {
		tx = tx.Where("principal_id = ?", filter.PrincipalID)
	}
	if filter.Platform != "" {
		tx = tx.Where("platform = ?", filter.Platform)
	}
}

func (i impl) setPage(tx *gorm.DB, page, limit int) {
	offset := (page - 1) * limit
	tx.Limit(limit).Offset(offset)
}
