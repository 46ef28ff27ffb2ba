package resumehandler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"adops-backend/config"
	"adops-backend/db"
	"adops-backend/lib/adapter"
	oprunner "adops-backend/lib/op-runner"
	pollerhandler "adops-backend/lib/poller"
	taskauditstore "adops-backend/lib/task/audit-store"
	taskstore "adops-backend/lib/task/store"
	tenanthandler "adops-backend/lib/tenant/handler"
	"adops-backend/models"
	operationapimodels "adops-backend/models/api/operation"
	dbmodels "adops-backend/models/db"
)

// Воспроизведение согласованной операции: задача уже переведена в working
// атомарной сменой статуса, поэтому адаптер будет вызван не более одного раза

type Provider interface {
	OnApproved(ctx context.Context, task dbmodels.WorkflowTask) error
}

var Instance Provider

func NewHandler() {
	Instance = impl{
		store:       taskstore.NewInstance(db.DB),
		auditStore:  taskauditstore.NewInstance(db.DB),
		pollTimeout: time.Duration(config.Conf.Workflow.PollTimeoutSec) * time.Second,
	}
}

type impl struct {
	store       taskstore.Provider
	auditStore  taskauditstore.Provider
	pollTimeout time.Duration
}

func (i impl) getLogger(task dbmodels.WorkflowTask) *log.Entry {
	return log.
		WithField("tenant_id", task.TenantID).
		WithField("task_id", task.ID).
		WithField("tool_name", task.ToolName)
}

func (i impl) OnApproved(ctx context.Context, task dbmodels.WorkflowTask) error {
	logger := i.getLogger(task)
	policy, err := tenanthandler.Instance.GetPolicy(task.TenantID)
	if err != nil {
		return i.failTask(task, errors.Wrap(err, "политика тенанта недоступна"))
	}
	result, err := oprunner.Instance.Execute(ctx, *policy, task.PrincipalID, task.ID, task.RequestContext)
	if err != nil {
		return i.failTask(task, err)
	}

	updMap := map[string]interface{}{
		"status":            models.TaskStatusCompleted,
		"resolution_detail": result.Detail,
	}
	if result.MediaBuyID != "" {
		updMap["media_buy_id"] = result.MediaBuyID
	}
	changed, err := i.store.TryStatusChange(task.ID, []models.TaskStatus{models.TaskStatusWorking}, updMap)
	if err != nil {
		return errors.Wrap(err, "ошибка завершения задачи")
	}
	if !changed {
		logger.Warn("Задача изменила статус во время исполнения, результат не записан")
		return nil
	}
	if result.MediaBuyID != "" {
		task.MediaBuyID = &result.MediaBuyID
	}
	i.audit(models.TaskEventExecuted, task, result.Detail, map[string]interface{}{
		"media_buy_id": result.MediaBuyID,
	})
	logger.
		WithField("media_buy_id", result.MediaBuyID).
		Info("Согласованная операция выполнена")

	if result.Pending {
		// площадка ещё обрабатывает операцию, заводим фоновый опрос статуса
		if err = i.spawnPolling(task, *result); err != nil {
			return err
		}
	}
	return nil
}

// failTask переводит задачу в failed с текстом ошибки площадки, без повторов
func (i impl) failTask(task dbmodels.WorkflowTask, cause error) error {
	detail := cause.Error()
	if adapter.IsTransient(cause) {
		detail = fmt.Sprintf("%v (временная ошибка площадки, отправьте операцию повторно)", detail)
	}
	updMap := map[string]interface{}{
		"status":            models.TaskStatusFailed,
		"resolution_detail": detail,
	}
	changed, err := i.store.TryStatusChange(task.ID, []models.TaskStatus{models.TaskStatusWorking}, updMap)
	if err != nil {
		return errors.Wrap(err, "ошибка перевода задачи в статус failed")
	}
	if changed {
		i.audit(models.TaskEventExecutionFailed, task, detail, nil)
	}
	i.getLogger(task).
		WithError(cause).
		Error("Операция не выполнена площадкой")
	return nil
}

func (i impl) spawnPolling(task dbmodels.WorkflowTask, result oprunner.Result) error {
	payload, err := json.Marshal(operationapimodels.CheckStatusRequest{MediaBuyID: result.MediaBuyID})
	if err != nil {
		return errors.Wrap(err, "ошибка сериализации операции опроса")
	}
	now := time.Now()
	rec := dbmodels.WorkflowTask{
		BaseTenantModel: dbmodels.BaseTenantModel{
			TenantID: task.TenantID,
		},
		PrincipalID: task.PrincipalID,
		StepType:    models.TaskStepBackground,
		ToolName:    models.ToolCheckMediaBuy,
		Status:      models.TaskStatusWorking,
		Owner:       models.TaskOwnerSystem,
		Action:      models.TaskActionCheckStatus,
		MediaBuyID:  &result.MediaBuyID,
		RequestContext: dbmodels.RequestContext{
			ToolName:     models.ToolCheckMediaBuy,
			Payload:      payload,
			ActionDetail: "Опрос статуса активации закупки на площадке",
			SubmittedAt:  now,
		},
		DueAt: now.Add(i.pollTimeout),
	}
	taskID, err := i.store.Create(rec)
	if err != nil {
		return errors.Wrap(err, "ошибка создания фоновой задачи опроса")
	}
	rec.ID = taskID
	i.audit(models.TaskEventPollingStarted, rec, rec.RequestContext.ActionDetail, nil)
	i.getLogger(rec).
		WithField("media_buy_id", result.MediaBuyID).
		Info("Запущен фоновый опрос статуса закупки")
	pollerhandler.Instance.Watch(rec)
	return nil
}

func (i impl) audit(event models.TaskEventType, task dbmodels.WorkflowTask, detail string, changes map[string]interface{}) {
	_, err := i.auditStore.Create(dbmodels.TaskAudit{
		BaseTenantModel: dbmodels.BaseTenantModel{
			TenantID: task.TenantID,
		},
		TaskID:    task.ID,
		EventType: event,
		Detail:    detail,
		Changes:   changes,
	})
	if err != nil {
		i.getLogger(task).
			WithField("event_type", event).
			WithError(err).
			Error("Ошибка записи события в журнал задачи")
	}
}
