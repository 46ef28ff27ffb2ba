package taskapimodels

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"adops-backend/models"
	apimodels "adops-backend/models/api"
	dbmodels "adops-backend/models/db"
)

type ResolveRequest struct {
	Resolution models.TaskResolution `json:"resolution"` // approved/rejected
	Comment    string                `json:"comment"`    // комментарий проверяющего
}

func (r ResolveRequest) Validate() error {
	if err := r.Resolution.Validate(); err != nil {
		return err
	}
	if r.Resolution == models.TaskResolutionRejected && r.Comment == "" {
		return errors.New("не указана причина отклонения")
	}
	return nil
}

type TaskFilter struct {
	apimodels.Pagination
	Statuses    []models.TaskStatus `json:"statuses"`     // фильтр по статусам
	ToolName    models.ToolName     `json:"tool_name"`    // фильтр по типу операции
	Owner       models.TaskOwner    `json:"owner"`        // publisher/system
	PrincipalID string              `json:"principal_id"` // фильтр по принципалу
	MediaBuyID  string              `json:"media_buy_id"` // фильтр по закупке
	OverdueOnly bool                `json:"overdue_only"` // только просроченные по SLA
}

func (r TaskFilter) Validate() error {
	for _, status := range r.Statuses {
		switch status {
		case models.TaskStatusPendingApproval, models.TaskStatusWorking,
			models.TaskStatusCompleted, models.TaskStatusRejected, models.TaskStatusFailed:
		default:
			return errors.Errorf("неизвестный статус задачи (%v)", status)
		}
	}
	if r.ToolName != "" {
		if err := r.ToolName.Validate(); err != nil {
			return err
		}
	}
	return nil
}

type TaskView struct {
	ID               string                `json:"id"`
	TenantID         string                `json:"tenant_id"`
	PrincipalID      string                `json:"principal_id"`
	StepType         models.TaskStepType   `json:"step_type"`
	ToolName         models.ToolName       `json:"tool_name"`
	Status           models.TaskStatus     `json:"status"`
	Owner            models.TaskOwner      `json:"owner"`
	Action           models.TaskAction     `json:"action"`
	ActionDetail     string                `json:"action_detail"`
	MediaBuyID       string                `json:"media_buy_id,omitempty"`
	Payload          json.RawMessage       `json:"payload,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	DueAt            time.Time             `json:"due_at"`
	Overdue          bool                  `json:"overdue"`
	ResolvedAt       *time.Time            `json:"resolved_at,omitempty"`
	ResolvedBy       string                `json:"resolved_by,omitempty"`
	Resolution       models.TaskResolution `json:"resolution,omitempty"`
	ResolutionDetail string                `json:"resolution_detail,omitempty"`
}

func TaskConvert(rec dbmodels.WorkflowTask) TaskView {
	result := TaskView{
		ID:               rec.ID,
		TenantID:         rec.TenantID,
		PrincipalID:      rec.PrincipalID,
		StepType:         rec.StepType,
		ToolName:         rec.ToolName,
		Status:           rec.Status,
		Owner:            rec.Owner,
		Action:           rec.Action,
		ActionDetail:     rec.RequestContext.ActionDetail,
		Payload:          rec.RequestContext.Payload,
		CreatedAt:        rec.CreatedAt,
		DueAt:            rec.DueAt,
		Overdue:          rec.IsOverdue(time.Now()),
		ResolvedAt:       rec.ResolvedAt,
		ResolvedBy:       rec.ResolvedBy,
		Resolution:       rec.Resolution,
		ResolutionDetail: rec.ResolutionDetail,
	}
	if rec.MediaBuyID != nil {
		result.MediaBuyID = *rec.MediaBuyID
	}
	return result
}

type AuditView struct {
	ID        string               `json:"id"`
	TaskID    string               `json:"task_id"`
	EventType models.TaskEventType `json:"event_type"`
	ActorID   string               `json:"actor_id,omitempty"`
	Detail    string               `json:"detail,omitempty"`
	Changes   map[string]any       `json:"changes,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

func AuditConvert(rec dbmodels.TaskAudit) AuditView {
	return AuditView{
		ID:        rec.ID,
		TaskID:    rec.TaskID,
		EventType: rec.EventType,
		ActorID:   rec.ActorID,
		Detail:    rec.Detail,
		Changes:   rec.Changes,
		CreatedAt: rec.CreatedAt,
	}
}
