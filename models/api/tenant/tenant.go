package tenantapimodels

import (
	"time"

	"github.com/pkg/errors"

	"adops-backend/models"
	dbmodels "adops-backend/models/db"
)

type CreateRequest struct {
	Name       string `json:"name"`        // название тенанта
	ExternalID string `json:"external_id"` // идентификатор во внешней системе
}

func (r CreateRequest) Validate() error {
	if r.Name == "" {
		return errors.New("не указано название тенанта")
	}
	if r.ExternalID == "" {
		return errors.New("не указан внешний идентификатор")
	}
	return nil
}

type SettingData struct {
	Code  models.TenantSettingCode `json:"code"`
	Value string                   `json:"value"`
}

func (r SettingData) Validate() error {
	if err := r.Code.Validate(); err != nil {
		return err
	}
	return nil
}

type TenantView struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ExternalID string    `json:"external_id"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

func TenantConvert(rec dbmodels.Tenant) TenantView {
	return TenantView{
		ID:         rec.ID,
		Name:       rec.Name,
		ExternalID: rec.ExternalID,
		Active:     rec.Active,
		CreatedAt:  rec.CreatedAt,
	}
}

type SettingView struct {
	Code  models.TenantSettingCode `json:"code"`
	Value string                   `json:"value"`
}

func SettingConvert(rec dbmodels.TenantSetting) SettingView {
	return SettingView{
		Code:  rec.Code,
		Value: rec.Value,
	}
}
