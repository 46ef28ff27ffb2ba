package dbmodels

import (
	"database/sql/driver"
	"encoding/json"

	"adops-backend/models"
)

// TaskAudit событие жизненного цикла задачи, записывается при каждом переходе статуса
type TaskAudit struct {
	BaseTenantModel
	TaskID    string               `gorm:"type:varchar(36);index"`
	EventType models.TaskEventType `gorm:"type:varchar(64);index"`
	ActorID   string               `gorm:"type:varchar(36)"` // пустой, если событие системное
	Detail    string
	Changes   EntityChanges `gorm:"type:jsonb"`
}

type EntityChanges map[string]any

func (j EntityChanges) Value() (driver.Value, error) {
	valueString, err := json.Marshal(j)
	return string(valueString), err
}

func (j *EntityChanges) Scan(value any) error {
	if err := json.Unmarshal(value.([]byte), &j); err != nil {
		return err
	}
	return nil
}
