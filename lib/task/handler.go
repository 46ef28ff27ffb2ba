package taskhandler

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"adops-backend/config"
	"adops-backend/db"
	resumehandler "adops-backend/lib/resume"
	taskauditstore "adops-backend/lib/task/audit-store"
	taskstore "adops-backend/lib/task/store"
	"adops-backend/lib/utils/lock"
	webhookhandler "adops-backend/lib/webhook"
	"adops-backend/models"
	taskapimodels "adops-backend/models/api/task"
	webhookapimodels "adops-backend/models/api/webhook"
	dbmodels "adops-backend/models/db"
)

var ErrTaskNotFound = errors.New("задача не найдена")

type Provider interface {
	// CreateApproval создаёт задачу согласования с SLA по типу операции
	CreateApproval(tenantID, principalID string, action models.TaskAction, mediaBuyID *string, reqCtx dbmodels.RequestContext) (taskID string, err error)
	GetByID(tenantID, id string) (*taskapimodels.TaskView, error)
	List(tenantID string, filter taskapimodels.TaskFilter) (list []taskapimodels.TaskView, rowCount int64, err error)
	// Resolve идемпотентное решение по задаче: повторный вызов возвращает сохранённый результат
	Resolve(ctx context.Context, tenantID, taskID, resolvedBy string, data taskapimodels.ResolveRequest) (*taskapimodels.TaskView, error)
	History(tenantID, taskID string) ([]taskapimodels.AuditView, error)
}

var Instance Provider

func NewHandler() {
	Instance = impl{
		store:       taskstore.NewInstance(db.DB),
		auditStore:  taskauditstore.NewInstance(db.DB),
		resolveWait: time.Duration(config.Conf.Workflow.ResolveWaitSec) * time.Second,
	}
}

type impl struct {
	store       taskstore.Provider
	auditStore  taskauditstore.Provider
	resolveWait time.Duration
}

func (i impl) getLogger(tenantID, taskID string) *log.Entry {
	logger := log.
		WithField("tenant_id", tenantID)
	if taskID != "" {
		logger = logger.WithField("task_id", taskID)
	}
	return logger
}

func (i impl) CreateApproval(tenantID, principalID string, action models.TaskAction, mediaBuyID *string, reqCtx dbmodels.RequestContext) (taskID string, err error) {
	rec := dbmodels.WorkflowTask{
		BaseTenantModel: dbmodels.BaseTenantModel{
			TenantID: tenantID,
		},
		PrincipalID:    principalID,
		StepType:       stepTypeByAction(action),
		ToolName:       reqCtx.ToolName,
		Status:         models.TaskStatusPendingApproval,
		Owner:          models.TaskOwnerPublisher,
		Action:         action,
		MediaBuyID:     mediaBuyID,
		RequestContext: reqCtx,
		DueAt:          time.Now().Add(reqCtx.ToolName.SLA()),
	}
	taskID, err = i.store.Create(rec)
	if err != nil {
		return "", errors.Wrap(err, "ошибка создания задачи согласования")
	}
	rec.ID = taskID
	i.getLogger(tenantID, taskID).
		WithField("tool_name", reqCtx.ToolName).
		Info("Создана задача согласования")
	i.audit(models.TaskEventCreated, rec, "", reqCtx.ActionDetail, nil)
	i.notify(rec, models.WebhookEventTaskCreated, models.WebhookStatusStarted, reqCtx.ActionDetail)
	return taskID, nil
}

func (i impl) GetByID(tenantID, id string) (*taskapimodels.TaskView, error) {
	rec, err := i.store.GetByID(tenantID, id)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка получения задачи")
	}
	if rec == nil {
		return nil, ErrTaskNotFound
	}
	view := taskapimodels.TaskConvert(*rec)
	return &view, nil
}

func (i impl) List(tenantID string, filter taskapimodels.TaskFilter) (list []taskapimodels.TaskView, rowCount int64, err error) {
	rowCount, err = i.store.ListCount(tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	recs, err := i.store.List(tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	list = make([]taskapimodels.TaskView, 0, len(recs))
	for _, rec := range recs {
		list = append(list, taskapimodels.TaskConvert(rec))
	}
	return list, rowCount, nil
}

func (i impl) Resolve(ctx context.Context, tenantID, taskID, resolvedBy string, data taskapimodels.ResolveRequest) (*taskapimodels.TaskView, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	var result *taskapimodels.TaskView
	ok, err := lock.WithDelay(ctx, resolveLockKey(taskID), i.resolveWait, func() error {
		var innerErr error
		result, innerErr = i.resolve(ctx, tenantID, taskID, resolvedBy, data)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("задача обрабатывается другим запросом, повторите позже")
	}
	return result, nil
}

func (i impl) resolve(ctx context.Context, tenantID, taskID, resolvedBy string, data taskapimodels.ResolveRequest) (*taskapimodels.TaskView, error) {
	logger := i.getLogger(tenantID, taskID)
	rec, err := i.store.GetByID(tenantID, taskID)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка получения задачи")
	}
	if rec == nil {
		return nil, ErrTaskNotFound
	}
	if rec.StepType == models.TaskStepBackground {
		return nil, errors.New("фоновая задача не подлежит ручному решению")
	}
	if rec.Status != models.TaskStatusPendingApproval {
		// повторное решение: без побочных эффектов возвращаем сохранённый результат
		logger.
			WithField("status", rec.Status).
			Info("Повторное решение по задаче, возвращаем сохранённое")
		view := taskapimodels.TaskConvert(*rec)
		return &view, nil
	}

	now := time.Now()
	if data.Resolution == models.TaskResolutionRejected {
		updMap := map[string]interface{}{
			"status":            models.TaskStatusRejected,
			"resolved_at":       now,
			"resolved_by":       resolvedBy,
			"resolution":        data.Resolution,
			"resolution_detail": data.Comment,
		}
		changed, err := i.store.TryStatusChange(taskID, []models.TaskStatus{models.TaskStatusPendingApproval}, updMap)
		if err != nil {
			return nil, errors.Wrap(err, "ошибка отклонения задачи")
		}
		if changed {
			rec.Status = models.TaskStatusRejected
			i.audit(models.TaskEventRejected, *rec, resolvedBy, data.Comment, nil)
			logger.Info("Задача отклонена, операция не будет выполнена")
		}
		return i.finishResolve(tenantID, taskID)
	}

	// согласовано: переводим задачу в работу, исполнение принадлежит этому вызову
	updMap := map[string]interface{}{
		"status":            models.TaskStatusWorking,
		"resolved_at":       now,
		"resolved_by":       resolvedBy,
		"resolution":        data.Resolution,
		"resolution_detail": data.Comment,
	}
	changed, err := i.store.TryStatusChange(taskID, []models.TaskStatus{models.TaskStatusPendingApproval}, updMap)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка согласования задачи")
	}
	if !changed {
		// задачу конкурентно решил другой процесс, адаптер повторно не вызываем
		logger.Info("Задача уже решена конкурентно, возвращаем сохранённое")
		return i.finishResolve(tenantID, taskID)
	}
	rec, err = i.store.GetByID(tenantID, taskID)
	if err != nil || rec == nil {
		return nil, errors.Wrap(err, "ошибка получения задачи после согласования")
	}
	if err = resumehandler.Instance.OnApproved(ctx, *rec); err != nil {
		return nil, errors.Wrap(err, "ошибка воспроизведения согласованной операции")
	}
	return i.finishResolve(tenantID, taskID)
}

// finishResolve отдаёт актуальное состояние задачи и шлёт уведомление о решении
func (i impl) finishResolve(tenantID, taskID string) (*taskapimodels.TaskView, error) {
	rec, err := i.store.GetByID(tenantID, taskID)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка получения задачи")
	}
	if rec == nil {
		return nil, ErrTaskNotFound
	}
	if rec.Status.IsTerminal() {
		i.notify(*rec, models.WebhookEventTaskResolved, models.WebhookStatusCompleted, rec.ResolutionDetail)
	}
	view := taskapimodels.TaskConvert(*rec)
	return &view, nil
}

func (i impl) History(tenantID, taskID string) ([]taskapimodels.AuditView, error) {
	list, err := i.auditStore.ListByTask(tenantID, taskID)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка получения истории задачи")
	}
	result := make([]taskapimodels.AuditView, 0, len(list))
	for _, rec := range list {
		result = append(result, taskapimodels.AuditConvert(rec))
	}
	return result, nil
}

func (i impl) audit(event models.TaskEventType, task dbmodels.WorkflowTask, actorID, detail string, changes map[string]interface{}) {
	rec := dbmodels.TaskAudit{
		BaseTenantModel: dbmodels.BaseTenantModel{
			TenantID: task.TenantID,
		},
		TaskID:    task.ID,
		EventType: event,
		ActorID:   actorID,
		Detail:    detail,
		Changes:   changes,
	}
	_, err := i.auditStore.Create(rec)
	if err != nil {
		i.getLogger(task.TenantID, task.ID).
			WithField("event_type", event).
			WithError(err).
			Error("Ошибка записи события в журнал задачи")
	}
}

func (i impl) notify(task dbmodels.WorkflowTask, event models.WebhookEventType, status models.WebhookStatus, detail string) {
	payload := webhookapimodels.Payload{
		TaskID:    task.ID,
		Status:    status,
		Timestamp: time.Now(),
		Data: webhookapimodels.PayloadData{
			EventType: event,
			Detail:    detail,
		},
	}
	if task.MediaBuyID != nil {
		payload.Data.MediaBuyID = *task.MediaBuyID
	}
	webhookhandler.Instance.Notify(task.TenantID, payload)
}

func stepTypeByAction(action models.TaskAction) models.TaskStepType {
	switch action {
	case models.TaskActionCreate:
		return models.TaskStepCreation
	case models.TaskActionCheckStatus:
		return models.TaskStepBackground
	}
	return models.TaskStepApproval
}

func resolveLockKey(taskID string) string {
	return fmt.Sprintf("task_resolve:%v", taskID)
}
