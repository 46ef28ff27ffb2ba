package webhookapimodels

import (
	"time"

	"github.com/pkg/errors"

	"adops-backend/models"
	dbmodels "adops-backend/models/db"
)

type SubscriptionData struct {
	PrincipalID string   `json:"principal_id"` // принципал-получатель
	URL         string   `json:"url"`          // endpoint покупателя
	Secret      string   `json:"secret"`       // значение заголовка X-Webhook-Secret
	EventTypes  []string `json:"event_types"`  // пустой список означает все события
}

func (r SubscriptionData) Validate() error {
	if r.URL == "" {
		return errors.New("не указан адрес endpoint")
	}
	for _, e := range r.EventTypes {
		switch models.WebhookEventType(e) {
		case models.WebhookEventTaskCreated, models.WebhookEventTaskResolved,
			models.WebhookEventDeliveryProgress, models.WebhookEventDeliveryCompleted:
		default:
			return errors.Errorf("неизвестный тип события (%v)", e)
		}
	}
	return nil
}

type SubscriptionView struct {
	SubscriptionData
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func SubscriptionConvert(rec dbmodels.WebhookSubscription) SubscriptionView {
	return SubscriptionView{
		SubscriptionData: SubscriptionData{
			PrincipalID: rec.PrincipalID,
			URL:         rec.URL,
			Secret:      rec.Secret,
			EventTypes:  rec.EventTypes,
		},
		ID:        rec.ID,
		TenantID:  rec.TenantID,
		Active:    rec.Active,
		CreatedAt: rec.CreatedAt,
	}
}

// Payload тело исходящего уведомления
type Payload struct {
	TaskID    string               `json:"task_id"`
	Status    models.WebhookStatus `json:"status"` // started/delivering/completed
	Timestamp time.Time            `json:"timestamp"`
	Data      PayloadData          `json:"data"`
}

type PayloadData struct {
	EventType  models.WebhookEventType `json:"event_type"`
	MediaBuyID string                  `json:"media_buy_id,omitempty"`
	Detail     string                  `json:"detail,omitempty"`
	Progress   *ProgressData           `json:"progress,omitempty"`
	Delivery   *DeliveryData           `json:"delivery,omitempty"`
}

// ProgressData ход размещения в симулированном времени
type ProgressData struct {
	ElapsedHours       float64 `json:"elapsed_hours"`
	TotalHours         float64 `json:"total_hours"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

// DeliveryData открутка на момент уведомления
type DeliveryData struct {
	Impressions      int64   `json:"impressions"`
	Spend            float64 `json:"spend"`
	TotalBudget      float64 `json:"total_budget"`
	PacingPercentage float64 `json:"pacing_percentage"`
}
