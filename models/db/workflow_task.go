package dbmodels

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"adops-backend/models"
)

type WorkflowTask struct {
	BaseTenantModel
	PrincipalID      string               `gorm:"type:varchar(36);index"`
	StepType         models.TaskStepType  `gorm:"type:varchar(32)"`
	ToolName         models.ToolName      `gorm:"type:varchar(64)"`
	Status           models.TaskStatus    `gorm:"type:varchar(32);index"`
	Owner            models.TaskOwner     `gorm:"type:varchar(16)"`
	Action           models.TaskAction    `gorm:"type:varchar(32)"`
	MediaBuyID       *string              `gorm:"type:varchar(64);index"`
	RequestContext   RequestContext       `gorm:"type:jsonb"` // исходная операция, не изменяется после создания
	AssignedTo       string               `gorm:"type:varchar(36)"`
	DueAt            time.Time            `gorm:"index"`
	ResolvedAt       *time.Time
	ResolvedBy       string                `gorm:"type:varchar(36)"`
	Resolution       models.TaskResolution `gorm:"type:varchar(16)"`
	ResolutionDetail string
	Escalated        bool // задача просрочена, уведомление отправлено
}

// RequestContext сериализованная операция + человекочитаемое описание действия
type RequestContext struct {
	ToolName     models.ToolName `json:"tool_name"`
	Payload      json.RawMessage `json:"payload"`
	ActionDetail string          `json:"action_detail"`
	SubmittedAt  time.Time       `json:"submitted_at"`
}

func (j RequestContext) Value() (driver.Value, error) {
	valueString, err := json.Marshal(j)
	return string(valueString), err
}

func (j *RequestContext) Scan(value any) error {
	if err := json.Unmarshal(value.([]byte), &j); err != nil {
		return err
	}
	return nil
}

// IsOverdue срок реакции по SLA истёк, задача остаётся доступной для решения
func (t WorkflowTask) IsOverdue(now time.Time) bool {
	return t.Status == models.TaskStatusPendingApproval && t.DueAt.Before(now)
}
