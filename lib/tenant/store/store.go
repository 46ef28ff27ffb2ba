package tenantstore

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	dbmodels "adops-backend/models/db"
)

type Provider interface {
	Create(rec dbmodels.Tenant) (id string, err error)
	GetByID(id string) (*dbmodels.Tenant, error)
	List() ([]dbmodels.Tenant, error)
	Update(id string, updMap map[string]interface{}) error
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Create(rec dbmodels.Tenant) (id string, err error) {
	err = i.db.
		Create(&rec).
		Error
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (i impl) GetByID(id string) (*dbmodels.Tenant, error) {
	rec := dbmodels.Tenant{}
	err := i.db.
		Where("id = ?", id).
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

func (i impl) List() (list []dbmodels.Tenant, err error) {
	err = i.db.Model(dbmodels.Tenant{}).
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

func (i impl) Update(id string, updMap map[string]interface{}) error {
	return i.db.
		Model(&dbmodels.Tenant{}).
		Where("id = ?", id).
		Updates(updMap).
		Error
}
