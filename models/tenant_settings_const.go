package models

import (
	"github.com/pkg/errors"
)

type TenantSettingCode string

const (
	ManualApprovalSetting         TenantSettingCode = "ManualApprovalRequired" // true/false, ручное согласование операций
	ApprovalOperationsSetting     TenantSettingCode = "ApprovalOperations"     // список операций через запятую, требующих согласования
	PlatformCodeSetting           TenantSettingCode = "PlatformCode"           // код рекламной площадки тенанта
	SupportEmailSetting           TenantSettingCode = "SupportEmail"           // почта для эскалаций по просроченным задачам
	WebhookSecretSetting          TenantSettingCode = "WebhookSecret"          // секрет для подписчиков вебхуков
	SimulationEnabledSetting      TenantSettingCode = "SimulationEnabled"      // эмуляция открутки, если площадка не отдаёт статистику
	SimulationAccelerationSetting TenantSettingCode = "SimulationAcceleration"
)

func (c TenantSettingCode) Validate() error {
	switch c {
	case ManualApprovalSetting, ApprovalOperationsSetting, PlatformCodeSetting,
		SupportEmailSetting, WebhookSecretSetting, SimulationEnabledSetting,
		SimulationAccelerationSetting:
		return nil
	}
	return errors.Errorf("неизвестный код настройки: %v", c)
}

// DefaultTenantSettings настройки нового тенанта
var DefaultTenantSettings = map[TenantSettingCode]string{
	ManualApprovalSetting:         "true",
	ApprovalOperationsSetting:     "",
	PlatformCodeSetting:           string(PlatformMock),
	SupportEmailSetting:           "",
	WebhookSecretSetting:          "",
	SimulationEnabledSetting:      "true",
	SimulationAccelerationSetting: "3600",
}

// ApprovalPolicy политика согласования операций тенанта
type ApprovalPolicy struct {
	TenantID               string
	ManualApprovalRequired bool
	ApprovalOperations     map[ToolName]bool
	Platform               PlatformCode
	SupportEmail           string
	WebhookSecret          string
	SimulationEnabled      bool
	SimulationAcceleration float64
}

// RequiresApproval операция выполняется только после ручного согласования
func (p ApprovalPolicy) RequiresApproval(tool ToolName) bool {
	if !p.ManualApprovalRequired {
		return false
	}
	if len(p.ApprovalOperations) == 0 {
		// список не задан, согласуем все операции
		return true
	}
	return p.ApprovalOperations[tool]
}
