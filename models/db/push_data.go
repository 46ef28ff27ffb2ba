package dbmodels

import "adops-backend/models"

// PushData события, не доставленные ревьюеру по ws, отправляются при переподключении
type PushData struct {
	BaseModel
	UserID     string                  `gorm:"type:varchar(36);index:idx_user"`
	TenantID   string                  `gorm:"type:varchar(36);index"`
	Code       models.WebhookEventType `gorm:"type:varchar(64)"`
	Msg        string
	TaskID     string `gorm:"type:varchar(36)"`
	MediaBuyID string `gorm:"type:varchar(36)"`
}
