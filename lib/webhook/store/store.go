package webhookstore

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	dbmodels "adops-backend/models/db"
)

type Provider interface {
	Create(rec dbmodels.WebhookSubscription) (id string, err error)
	GetByID(tenantID, id string) (rec *dbmodels.WebhookSubscription, err error)
	Update(tenantID, id string, updMap map[string]interface{}) error
	Delete(tenantID, id string) error
	List(tenantID string) (list []dbmodels.WebhookSubscription, err error)
	ListActive(tenantID string) (list []dbmodels.WebhookSubscription, err error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Create(rec dbmodels.WebhookSubscription) (id string, err error) {
	err = i.db.
		Create(&rec).
		Error
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (i impl) GetByID(tenantID, id string) (*dbmodels.WebhookSubscription, error) {
	rec := dbmodels.WebhookSubscription{}
	err := i.db.
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
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
	return i.db.
		Model(&dbmodels.WebhookSubscription{}).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Updates(updMap).
		Error
}

func (i impl) Delete(tenantID, id string) error {
	rec := dbmodels.WebhookSubscription{}
	err := i.db.
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Delete(&rec).
		Error
	if err != nil {
		return err
	}
	return nil
}

func (i impl) List(tenantID string) (list []dbmodels.WebhookSubscription, err error) {
	list = []dbmodels.WebhookSubscription{}
	err = i.db.
		Model(dbmodels.WebhookSubscription{}).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
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

func (i impl) ListActive(tenantID string) (list []dbmodels.WebhookSubscription, err error) {
	list = []dbmodels.WebhookSubscription{}
	err = i.db.
		Model(dbmodels.WebhookSubscription{}).
		Where("tenant_id = ?", tenantID).
		Where("active = true").
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
