package tenanthandler

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"adops-backend/db"
	tenantsettingsstore "adops-backend/lib/tenant/settings-store"
	tenantstore "adops-backend/lib/tenant/store"
	"adops-backend/models"
	dbmodels "adops-backend/models/db"
)

// ErrPolicyNotFound у тенанта нет настроек согласования, операции не принимаются
var ErrPolicyNotFound = errors.New("политика согласования тенанта не настроена")

type Provider interface {
	Create(name, externalID string) (id string, err error)
	GetByID(id string) (*dbmodels.Tenant, error)
	List() ([]dbmodels.Tenant, error)
	GetPolicy(tenantID string) (*models.ApprovalPolicy, error)
	UpdateSettingValue(tenantID string, code models.TenantSettingCode, value string) error
	GetSettings(tenantID string) ([]dbmodels.TenantSetting, error)
}

var Instance Provider

func NewHandler() {
	Instance = impl{
		store:         tenantstore.NewInstance(db.DB),
		settingsStore: tenantsettingsstore.NewInstance(db.DB),
	}
}

type impl struct {
	store         tenantstore.Provider
	settingsStore tenantsettingsstore.Provider
}

func (i impl) getLogger(tenantID string) *log.Entry {
	return log.WithField("tenant_id", tenantID)
}

func (i impl) Create(name, externalID string) (id string, err error) {
	rec := dbmodels.Tenant{
		Name:       name,
		ExternalID: externalID,
		Active:     true,
	}
	id, err = i.store.Create(rec)
	if err != nil {
		return "", errors.Wrap(err, "ошибка создания тенанта")
	}
	// новый тенант получает настройки по умолчанию, дальше правятся через api
	for code, value := range models.DefaultTenantSettings {
		setting := dbmodels.TenantSetting{
			TenantID: id,
			Code:     code,
			Value:    value,
		}
		if err = i.settingsStore.Save(setting); err != nil {
			return "", errors.Wrapf(err, "ошибка создания настройки тенанта (%v)", code)
		}
	}
	i.getLogger(id).Info("Тенант создан")
	return id, nil
}

func (i impl) GetByID(id string) (*dbmodels.Tenant, error) {
	return i.store.GetByID(id)
}

func (i impl) List() ([]dbmodels.Tenant, error) {
	return i.store.List()
}

// GetPolicy собирает политику согласования из настроек тенанта
func (i impl) GetPolicy(tenantID string) (*models.ApprovalPolicy, error) {
	settings, err := i.settingsStore.List(tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка получения настроек тенанта")
	}
	if len(settings) == 0 {
		return nil, ErrPolicyNotFound
	}
	policy := models.ApprovalPolicy{
		TenantID:           tenantID,
		ApprovalOperations: map[models.ToolName]bool{},
		Platform:           models.PlatformMock,
	}
	for _, setting := range settings {
		switch setting.Code {
		case models.ManualApprovalSetting:
			policy.ManualApprovalRequired, _ = strconv.ParseBool(setting.Value)
		case models.ApprovalOperationsSetting:
			for _, name := range strings.Split(setting.Value, ",") {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				policy.ApprovalOperations[models.ToolName(name)] = true
			}
		case models.PlatformCodeSetting:
			if setting.Value != "" {
				policy.Platform = models.PlatformCode(setting.Value)
			}
		case models.SupportEmailSetting:
			policy.SupportEmail = setting.Value
		case models.WebhookSecretSetting:
			policy.WebhookSecret = setting.Value
		case models.SimulationEnabledSetting:
			policy.SimulationEnabled, _ = strconv.ParseBool(setting.Value)
		case models.SimulationAccelerationSetting:
			policy.SimulationAcceleration, _ = strconv.ParseFloat(setting.Value, 64)
		}
	}
	return &policy, nil
}

func (i impl) UpdateSettingValue(tenantID string, code models.TenantSettingCode, value string) error {
	err := i.settingsStore.Update(tenantID, code, value)
	if err != nil {
		i.getLogger(tenantID).
			WithField("setting_code", code).
			WithError(err).
			Error("ошибка обновления настройки тенанта")
		return err
	}
	return nil
}

func (i impl) GetSettings(tenantID string) ([]dbmodels.TenantSetting, error) {
	list, err := i.settingsStore.List(tenantID)
	if err != nil {
		i.getLogger(tenantID).
			WithError(err).
			Error("ошибка получения списка настроек тенанта")
		return nil, err
	}
	return list, nil
}
