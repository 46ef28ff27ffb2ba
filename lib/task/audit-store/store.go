package taskauditstore

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	dbmodels "adops-backend/models/db"
)

// Журнал событий задач append-only, записи не обновляются и не удаляются

type Provider interface {
	Create(rec dbmodels.TaskAudit) (id string, err error)
	ListByTask(tenantID, taskID string) (list []dbmodels.TaskAudit, err error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Create(rec dbmodels.TaskAudit) (id string, err error) {
	err = i.db.
		Create(&rec).
		Error
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (i impl) ListByTask(tenantID, taskID string) (list []dbmodels.TaskAudit, err error) {
	list = []dbmodels.TaskAudit{}
	err = i.db.
		Model(dbmodels.TaskAudit{}).
		Where("tenant_id = ?", tenantID).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&list).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return list, nil
}
