package escalationhandler

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"adops-backend/config"
	"adops-backend/db"
	"adops-backend/lib/smtp"
	taskauditstore "adops-backend/lib/task/audit-store"
	taskstore "adops-backend/lib/task/store"
	tenanthandler "adops-backend/lib/tenant/handler"
	baseworker "adops-backend/lib/utils/base-worker"
	"adops-backend/lib/utils/helpers"
	"adops-backend/models"
	dbmodels "adops-backend/models/db"
)

// Эскалация просроченных задач согласования: отметка advisory, задача
// остаётся решаемой, команде поддержки тенанта уходит письмо

type Provider interface {
	StartWorker(ctx context.Context)
}

var Instance Provider

func NewHandler() {
	Instance = impl{
		store:      taskstore.NewInstance(db.DB),
		auditStore: taskauditstore.NewInstance(db.DB),
		period:     time.Duration(config.Conf.Workflow.EscalationPeriodSec) * time.Second,
		fromEmail:  config.Conf.Smtp.FromEmail,
	}
}

type impl struct {
	store      taskstore.Provider
	auditStore taskauditstore.Provider
	period     time.Duration
	fromEmail  string
}

func (i impl) StartWorker(ctx context.Context) {
	worker := baseworker.NewInstance("sla_escalation", time.Minute, i.period)
	go worker.Run(ctx, func(ctx context.Context) {
		i.escalateOverdue(ctx, worker.GetLogger())
	})
}

func (i impl) escalateOverdue(ctx context.Context, logger *log.Entry) {
	list, err := i.store.ListOverdue(time.Now())
	if err != nil {
		logger.WithError(err).Error("Ошибка скана просроченных задач")
		return
	}
	for _, task := range list {
		if helpers.IsContextDone(ctx) {
			return
		}
		i.escalate(task)
	}
}

func (i impl) escalate(task dbmodels.WorkflowTask) {
	logger := log.
		WithField("tenant_id", task.TenantID).
		WithField("task_id", task.ID)
	if err := i.store.Update(task.TenantID, task.ID, map[string]interface{}{"escalated": true}); err != nil {
		logger.WithError(err).Error("Ошибка отметки эскалации задачи")
		return
	}
	detail := fmt.Sprintf("Задача согласования просрочена, срок реакции истёк %v", task.DueAt.Format("02.01.2006 15:04"))
	_, err := i.auditStore.Create(dbmodels.TaskAudit{
		BaseTenantModel: dbmodels.BaseTenantModel{
			TenantID: task.TenantID,
		},
		TaskID:    task.ID,
		EventType: models.TaskEventEscalated,
		Detail:    detail,
	})
	if err != nil {
		logger.WithError(err).Error("Ошибка записи события в журнал задачи")
	}
	logger.Warn("Задача согласования просрочена, эскалирована")
	i.sendEmail(task, detail)
}

func (i impl) sendEmail(task dbmodels.WorkflowTask, detail string) {
	logger := log.
		WithField("tenant_id", task.TenantID).
		WithField("task_id", task.ID)
	policy, err := tenanthandler.Instance.GetPolicy(task.TenantID)
	if err != nil {
		logger.WithError(err).Warn("Политика тенанта недоступна, письмо не отправлено")
		return
	}
	if policy.SupportEmail == "" {
		logger.Info("Адрес поддержки тенанта не настроен, письмо не отправлено")
		return
	}
	message := fmt.Sprintf("%v\n\nЗадача: %v\nОперация: %v\nОписание: %v",
		detail, task.ID, task.ToolName, task.RequestContext.ActionDetail)
	if err = smtp.Instance.SendEMail(i.fromEmail, policy.SupportEmail, message, "просрочена задача согласования"); err != nil {
		logger.WithError(err).Error("Ошибка отправки письма об эскалации")
	}
}
