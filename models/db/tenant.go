package dbmodels

import (
	"adops-backend/models"
)

// Tenant издатель, в рамках которого действуют принципалы и настройки согласования
type Tenant struct {
	BaseModel
	Name       string `gorm:"type:varchar(255)"`
	ExternalID string `gorm:"type:varchar(64);uniqueIndex"`
	Active     bool   `gorm:"default:true"`
}

type TenantSetting struct {
	BaseModel
	TenantID string                   `gorm:"type:varchar(36);index:idx_tenant_setting,unique"`
	Code     models.TenantSettingCode `gorm:"type:varchar(64);index:idx_tenant_setting,unique"`
	Value    string
}
