package taskstore

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"adops-backend/models"
	taskapimodels "adops-backend/models/api/task"
	dbmodels "adops-backend/models/db"
)

type Provider interface {
	Create(rec dbmodels.WorkflowTask) (id string, err error)
	GetByID(tenantID, id string) (rec *dbmodels.WorkflowTask, err error)
	Update(tenantID, id string, updMap map[string]interface{}) error
	// TryStatusChange атомарный переход статуса: обновление проходит, только если
	// текущий статус входит в allowedFrom. false значит задачу уже перевели конкурентно
	TryStatusChange(id string, allowedFrom []models.TaskStatus, updMap map[string]interface{}) (changed bool, err error)
	ListCount(tenantID string, filter taskapimodels.TaskFilter) (count int64, err error)
	List(tenantID string, filter taskapimodels.TaskFilter) (list []dbmodels.WorkflowTask, err error)
	ListActiveBackground() (list []dbmodels.WorkflowTask, err error)
	ListOverdue(now time.Time) (list []dbmodels.WorkflowTask, err error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Create(rec dbmodels.WorkflowTask) (id string, err error) {
	err = i.db.
		Create(&rec).
		Error
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (i impl) GetByID(tenantID, id string) (*dbmodels.WorkflowTask, error) {
	rec := dbmodels.WorkflowTask{}
	tx := i.db.
		Where("id = ?", id)
	if tenantID != "" {
		tx = tx.Where("tenant_id = ?", tenantID)
	}
	err := tx.
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (i impl) Update(tenantID, id string, updMap map[string]interface{}) error {
	if len(updMap) == 0 {
		return nil
	}
	err := i.db.
		Model(&dbmodels.WorkflowTask{}).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Updates(updMap).
		Error
	if err != nil {
		return err
	}
	return nil
}

func (i impl) TryStatusChange(id string, allowedFrom []models.TaskStatus, updMap map[string]interface{}) (changed bool, err error) {
	tx := i.db.
		Model(&dbmodels.WorkflowTask{}).
		Where("id = ?", id).
		Where("status IN ?", allowedFrom).
		Updates(updMap)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (i impl) ListCount(tenantID string, filter taskapimodels.TaskFilter) (count int64, err error) {
	var rowCount int64
	tx := i.db.
		Model(dbmodels.WorkflowTask{}).
		Where("tenant_id = ?", tenantID)
	i.addFilter(tx, filter)
	err = tx.Count(&rowCount).Error
	if err != nil {
		return 0, errors.Wrap(err, "ошибка получения общего количества задач")
	}
	return rowCount, nil
}

func (i impl) List(tenantID string, filter taskapimodels.TaskFilter) (list []dbmodels.WorkflowTask, err error) {
	list = []dbmodels.WorkflowTask{}
	tx := i.db.
		Model(dbmodels.WorkflowTask{}).
		Where("tenant_id = ?", tenantID)
	i.addFilter(tx, filter)
	page, limit := filter.GetPage()
	i.setPage(tx, page, limit)
	err = tx.
		Order("created_at DESC").
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

// ListActiveBackground фоновые задачи в работе, для восстановления опроса после рестарта
func (i impl) ListActiveBackground() (list []dbmodels.WorkflowTask, err error) {
	list = []dbmodels.WorkflowTask{}
	err = i.db.
		Model(dbmodels.WorkflowTask{}).
		Where("step_type = ?", models.TaskStepBackground).
		Where("status = ?", models.TaskStatusWorking).
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

// ListOverdue не решённые в срок задачи согласования, ещё не эскалированные
func (i impl) ListOverdue(now time.Time) (list []dbmodels.WorkflowTask, err error) {
	list = []dbmodels.WorkflowTask{}
	err = i.db.
		Model(dbmodels.WorkflowTask{}).
		Where("step_type <> ?", models.TaskStepBackground).
		Where("status = ?", models.TaskStatusPendingApproval).
		Where("due_at < ?", now).
		Where("escalated = false").
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

func (i impl) addFilter(tx *gorm.DB, filter taskapimodels.TaskFilter) {
	// фоновые задачи не показываются в списке на согласование
	tx.Where("step_type <> ?", models.TaskStepBackground)
	if len(filter.Statuses) > 0 {
		tx = tx.Where("status IN ?", filter.Statuses)
	}
	if filter.ToolName != "" {
		tx = tx.Where("tool_name = ?", filter.ToolName)
	}
	if filter.Owner != "" {
		tx = tx.Where("owner = ?", filter.Owner)
	}
	if filter.PrincipalID != "" {
		tx = tx.Where("principal_id = ?", filter.PrincipalID)
	}
	if filter.MediaBuyID != "" {
		tx = tx.Where("media_buy_id = ?", filter.MediaBuyID)
	}
	if filter.OverdueOnly {
		tx = tx.Where("status = ?", models.TaskStatusPendingApproval)
		tx = tx.Where("due_at < ?", time.Now())
	}
}

func (i impl) setPage(tx *gorm.DB, page, limit int) {
	offset := (page - 1) * limit
	tx.Limit(limit).Offset(offset)
}
