package db

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	dbmodels "adops-backend/models/db"
)

func AutoMigrateDB() error {
	DB.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\";")
	log.Info("Запуск миграций")
	if err := DB.AutoMigrate(&dbmodels.Tenant{}); err != nil {
		return errors.Wrap(err, "ошибка создания структуры Tenant")
	}
	if err := DB.AutoMigrate(&dbmodels.TenantSetting{}); err != nil {
		return errors.Wrap(err, "ошибка создания структуры TenantSetting")
	}
	if err := DB.AutoMigrate(&dbmodels.WorkflowTask{}); err != nil {
		return errors.Wrap(err, "ошибка создания структуры WorkflowTask")
	}
	if err := DB.AutoMigrate(&dbmodels.TaskAudit{}); err != nil {
		return errors.Wrap(err, "ошибка создания структуры TaskAudit")
	}
	if err := DB.AutoMigrate(&dbmodels.MediaBuy{}); err != nil {
		return errors.Wrap(err, "ошибка создания структуры MediaBuy")
	}
	if err := DB.AutoMigrate(&dbmodels.WebhookSubscription{}); err != nil {
		return errors.Wrap(err, "ошибка создания структуры WebhookSubscription")
	}
	if err := DB.AutoMigrate(&dbmodels.PushData{}); err != nil {
		return errors.Wrap(err, "ошибка создания структуры PushData")
	}
	log.Info("Миграция прошла успешно")
	return nil
}
