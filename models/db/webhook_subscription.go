package dbmodels

import (
	"github.com/lib/pq"
)

// WebhookSubscription endpoint покупателя для push-уведомлений о задачах и доставке
type WebhookSubscription struct {
	BaseTenantModel
	PrincipalID string         `gorm:"type:varchar(36);index"`
	URL         string         `gorm:"type:varchar(512)"`
	Secret      string         `gorm:"type:varchar(128)"` // передаётся в заголовке X-Webhook-Secret
	EventTypes  pq.StringArray `gorm:"type:text[]"`       // пустой список означает подписку на все события
	Active      bool           `gorm:"default:true"`
}

func (w WebhookSubscription) Accepts(eventType string) bool {
	if len(w.EventTypes) == 0 {
		return true
	}
	for _, e := range w.EventTypes {
		if e == eventType {
			return true
		}
	}
	return false
}
