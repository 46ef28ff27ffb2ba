package pollerhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"adops-backend/config"
	"adops-backend/db"
	"adops-backend/lib/adapter"
	mediabuystore "adops-backend/lib/media-buy/store"
	taskauditstore "adops-backend/lib/task/audit-store"
	taskstore "adops-backend/lib/task/store"
	baseworker "adops-backend/lib/utils/base-worker"
	initchecker "adops-backend/lib/utils/init-checker"
	webhookhandler "adops-backend/lib/webhook"
	"adops-backend/models"
	webhookapimodels "adops-backend/models/api/webhook"
	dbmodels "adops-backend/models/db"
)

// Супервизор фонового опроса: по одной горутине на активную фоновую задачу.
// Память процесса не является единственным источником прогресса: после
// рестарта воркеры поднимаются заново сканом хранилища задач

type Provider interface {
	// Watch запускает воркер опроса для фоновой задачи, повторный вызов безопасен
	Watch(task dbmodels.WorkflowTask)
	// StartWorker периодически пересканирует хранилище и поднимает потерянные воркеры
	StartWorker(ctx context.Context)
}

var Instance Provider

func NewHandler() {
	instance := &impl{
		store:          taskstore.NewInstance(db.DB),
		auditStore:     taskauditstore.NewInstance(db.DB),
		mediaBuyStore:  mediabuystore.NewInstance(db.DB),
		pollPeriod:     time.Duration(config.Conf.Workflow.PollPeriodSec) * time.Second,
		recoveryPeriod: time.Duration(config.Conf.Workflow.RecoveryPeriodSec) * time.Second,
		ctx:            context.Background(),
		watched:        map[string]bool{},
	}
	initchecker.CheckInit(
		"store", instance.store,
		"auditStore", instance.auditStore,
		"mediaBuyStore", instance.mediaBuyStore,
	)
	Instance = instance
}

type impl struct {
	store          taskstore.Provider
	auditStore     taskauditstore.Provider
	mediaBuyStore  mediabuystore.Provider
	pollPeriod     time.Duration
	recoveryPeriod time.Duration

	mu      sync.Mutex
	ctx     context.Context
	watched map[string]bool
}

func (i *impl) getLogger(task dbmodels.WorkflowTask) *log.Entry {
	logger := log.
		WithField("tenant_id", task.TenantID).
		WithField("task_id", task.ID)
	if task.MediaBuyID != nil {
		logger = logger.WithField("media_buy_id", *task.MediaBuyID)
	}
	return logger
}

func (i *impl) StartWorker(ctx context.Context) {
	i.mu.Lock()
	i.ctx = ctx
	i.mu.Unlock()
	worker := baseworker.NewInstance("polling_recovery", time.Second, i.recoveryPeriod)
	go worker.Run(ctx, func(ctx context.Context) {
		i.recover(worker.GetLogger())
	})
}

// recover поднимает воркеры для фоновых задач, оставшихся в работе
func (i *impl) recover(logger *log.Entry) {
	list, err := i.store.ListActiveBackground()
	if err != nil {
		logger.WithError(err).Error("Ошибка скана фоновых задач")
		return
	}
	for _, task := range list {
		i.Watch(task)
	}
}

func (i *impl) Watch(task dbmodels.WorkflowTask) {
	if task.StepType != models.TaskStepBackground || task.Status != models.TaskStatusWorking {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.watched[task.ID] {
		return
	}
	i.watched[task.ID] = true
	go i.runWorker(i.ctx, task)
}

func (i *impl) unwatch(taskID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.watched, taskID)
}

func (i *impl) runWorker(ctx context.Context, task dbmodels.WorkflowTask) {
	logger := i.getLogger(task)
	defer func() {
		// паника воркера не должна ронять процесс: фиксируем отказ задачи
		if r := recover(); r != nil {
			logger.Errorf("Паника воркера опроса: (%v)", r)
			i.failPolling(task, fmt.Sprintf("внутренняя ошибка воркера опроса: %v", r))
		}
		i.unwatch(task.ID)
	}()
	logger.Info("Запущен воркер опроса статуса")
	ticker := time.NewTicker(i.pollPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// состояние в хранилище, после рестарта воркер поднимется сканом
			logger.Info("Воркер опроса остановлен")
			return
		case now := <-ticker.C:
			if now.After(task.DueAt) {
				i.timeoutPolling(task)
				return
			}
			if done := i.pollOnce(ctx, task); done {
				return
			}
		}
	}
}

// pollOnce один тик опроса, true когда опрос можно прекращать
func (i *impl) pollOnce(ctx context.Context, task dbmodels.WorkflowTask) bool {
	logger := i.getLogger(task)
	if task.MediaBuyID == nil {
		i.failPolling(task, "у фоновой задачи не указана закупка")
		return true
	}
	rec, err := i.mediaBuyStore.GetByID(task.TenantID, *task.MediaBuyID)
	if err != nil {
		logger.WithError(err).Error("Ошибка получения закупки")
		return false
	}
	if rec == nil {
		i.failPolling(task, "закупка не найдена")
		return true
	}
	provider, err := adapter.Get(rec.Platform)
	if err != nil {
		i.failPolling(task, err.Error())
		return true
	}
	status, err := provider.CheckMediaBuyStatus(ctx, *rec)
	if err != nil {
		if adapter.IsTransient(err) {
			// площадка временно недоступна, продолжаем до предельного срока
			logger.WithError(err).Warn("Площадка недоступна, опрос продолжается")
			return false
		}
		i.failPolling(task, err.Error())
		return true
	}

	updMap := map[string]interface{}{
		"last_polled_at": time.Now(),
	}
	if status != rec.Status {
		updMap["status"] = status
		if status == models.MediaBuyStatusActive && rec.ActivatedAt == nil {
			updMap["activated_at"] = time.Now()
		}
	}
	if err = i.mediaBuyStore.Update(task.TenantID, rec.ID, updMap); err != nil {
		logger.WithError(err).Error("Ошибка обновления закупки")
		return false
	}
	if !status.IsTerminal() {
		return false
	}

	// терминальный статус площадки: опрос останавливается сразу после перехода
	if status == models.MediaBuyStatusFailed {
		i.failPolling(task, fmt.Sprintf("площадка отклонила закупку %v", rec.BuyerRef))
		return true
	}
	detail := fmt.Sprintf("Закупка %v активирована площадкой, статус %v", rec.BuyerRef, status)
	changed, err := i.store.TryStatusChange(task.ID, []models.TaskStatus{models.TaskStatusWorking}, map[string]interface{}{
		"status":            models.TaskStatusCompleted,
		"resolution_detail": detail,
	})
	if err != nil {
		logger.WithError(err).Error("Ошибка завершения фоновой задачи")
		return false
	}
	if !changed {
		logger.Warn("Фоновая задача уже переведена в терминальный статус другим процессом")
		return true
	}
	i.audit(models.TaskEventCompleted, task, detail, map[string]interface{}{
		"media_buy_status": status,
	})
	i.notify(task, models.WebhookEventTaskResolved, models.WebhookStatusCompleted, detail)
	logger.
		WithField("status", status).
		Info("Фоновый опрос завершён, закупка в терминальном статусе")
	return true
}

// failPolling переводит задачу в failed, воркер завершается, процесс живёт дальше
func (i *impl) failPolling(task dbmodels.WorkflowTask, detail string) {
	changed, err := i.store.TryStatusChange(task.ID, []models.TaskStatus{models.TaskStatusWorking}, map[string]interface{}{
		"status":            models.TaskStatusFailed,
		"resolution_detail": detail,
	})
	if err != nil {
		i.getLogger(task).WithError(err).Error("Ошибка перевода фоновой задачи в статус failed")
		return
	}
	if !changed {
		return
	}
	i.audit(models.TaskEventExecutionFailed, task, detail, nil)
	i.notify(task, models.WebhookEventTaskResolved, models.WebhookStatusCompleted, detail)
	i.getLogger(task).
		WithField("detail", detail).
		Error("Фоновая задача завершена с ошибкой")
}

// timeoutPolling предельное время опроса исчерпано: задача failed, операция
// не теряется: создаётся ровно одна новая задача ручной проверки
func (i *impl) timeoutPolling(task dbmodels.WorkflowTask) {
	logger := i.getLogger(task)
	detail := fmt.Sprintf("%v: превышена максимальная длительность опроса", models.PollingTimeoutReason)
	changed, err := i.store.TryStatusChange(task.ID, []models.TaskStatus{models.TaskStatusWorking}, map[string]interface{}{
		"status":            models.TaskStatusFailed,
		"resolution_detail": detail,
	})
	if err != nil {
		logger.WithError(err).Error("Ошибка перевода фоновой задачи в статус failed")
		return
	}
	if !changed {
		// задачу конкурентно закрыл другой процесс, ручную задачу не создаём
		logger.Warn("Фоновая задача уже переведена в терминальный статус другим процессом")
		return
	}
	i.audit(models.TaskEventPollingTimeout, task, detail, nil)
	i.notify(task, models.WebhookEventTaskResolved, models.WebhookStatusCompleted, detail)
	logger.Warn("Опрос статуса закупки не уложился в предельный срок")

	if err = i.spawnManual(task); err != nil {
		logger.WithError(err).Error("Ошибка создания задачи ручной проверки")
	}
}

// spawnManual создаёт задачу ручной проверки зависшей закупки
func (i *impl) spawnManual(task dbmodels.WorkflowTask) error {
	payload := task.RequestContext.Payload
	if len(payload) == 0 {
		raw, err := json.Marshal(map[string]interface{}{"media_buy_id": task.MediaBuyID})
		if err != nil {
			return errors.Wrap(err, "ошибка сериализации операции проверки")
		}
		payload = raw
	}
	now := time.Now()
	rec := dbmodels.WorkflowTask{
		BaseTenantModel: dbmodels.BaseTenantModel{
			TenantID: task.TenantID,
		},
		PrincipalID: task.PrincipalID,
		StepType:    models.TaskStepApproval,
		ToolName:    models.ToolCheckMediaBuy,
		Status:      models.TaskStatusPendingApproval,
		Owner:       models.TaskOwnerPublisher,
		Action:      models.TaskActionActivate,
		MediaBuyID:  task.MediaBuyID,
		RequestContext: dbmodels.RequestContext{
			ToolName:     models.ToolCheckMediaBuy,
			Payload:      payload,
			ActionDetail: "Закупка не активировалась за отведённое время, требуется ручная проверка на площадке",
			SubmittedAt:  now,
		},
		DueAt: now.Add(models.ToolCheckMediaBuy.SLA()),
	}
	taskID, err := i.store.Create(rec)
	if err != nil {
		return errors.Wrap(err, "ошибка создания задачи")
	}
	rec.ID = taskID
	i.audit(models.TaskEventCreated, rec, rec.RequestContext.ActionDetail, map[string]interface{}{
		"source_task_id": task.ID,
	})
	i.notify(rec, models.WebhookEventTaskCreated, models.WebhookStatusStarted, rec.RequestContext.ActionDetail)
	i.getLogger(rec).Info("Создана задача ручной проверки закупки")
	return nil
}

func (i *impl) audit(event models.TaskEventType, task dbmodels.WorkflowTask, detail string, changes map[string]interface{}) {
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

func (i *impl) notify(task dbmodels.WorkflowTask, event models.WebhookEventType, status models.WebhookStatus, detail string) {
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
