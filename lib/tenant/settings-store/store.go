package tenantsettingsstore

import (
	"errors"

	"gorm.io/gorm"

	"adops-backend/models"
	dbmodels "adops-backend/models/db"
)

type Provider interface {
	Save(rec dbmodels.TenantSetting) error
	Update(tenantID string, code models.TenantSettingCode, value string) error
	List(tenantID string) (settingsList []dbmodels.TenantSetting, err error)
	GetValueByCode(tenantID string, code models.TenantSettingCode) (value string, err error)
	Delete(tenantID string, code models.TenantSettingCode) error
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Save(rec dbmodels.TenantSetting) error {
	return i.db.
		Save(&rec).
		Error
}

func (i impl) GetValueByCode(tenantID string, code models.TenantSettingCode) (value string, err error) {
	err = i.db.Model(dbmodels.TenantSetting{}).
		Select("value").
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&value).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

func (i impl) List(tenantID string) (settingsList []dbmodels.TenantSetting, err error) {
	tx := i.db.Model(dbmodels.TenantSetting{})
	err = tx.
		Where("tenant_id = ?", tenantID).
		Find(&settingsList).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return settingsList, nil
}

func (i impl) Update(tenantID string, code models.TenantSettingCode, value string) error {
	updMap := map[string]interface{}{
		"value": value,
	}
	return i.db.
		Model(&dbmodels.TenantSetting{}).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		Updates(updMap).
		Error
}

func (i impl) Delete(tenantID string, code models.TenantSettingCode) error {
	rec := dbmodels.TenantSetting{}
	err := i.db.
		Where("tenant_id = ? AND code = ?", tenantID, code).
		Delete(&rec).
		Error

	if err != nil {
		return err
	}
	return nil
}
