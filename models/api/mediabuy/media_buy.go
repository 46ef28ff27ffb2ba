package mediabuyapimodels

import (
	"time"

	"github.com/pkg/errors"

	"adops-backend/models"
	apimodels "adops-backend/models/api"
	dbmodels "adops-backend/models/db"
)

type MediaBuyFilter struct {
	apimodels.Pagination
	Statuses    []models.MediaBuyStatus `json:"statuses"`     // фильтр по статусам
	PrincipalID string                  `json:"principal_id"` // фильтр по принципалу
	Platform    models.PlatformCode     `json:"platform"`     // фильтр по платформе
}

func (r MediaBuyFilter) Validate() error {
	if r.Platform != "" {
		if err := r.Platform.Validate(); err != nil {
			return err
		}
	}
	return nil
}

type MediaBuyView struct {
	ID                  string                `json:"id"`
	TenantID            string                `json:"tenant_id"`
	PrincipalID         string                `json:"principal_id"`
	Platform            models.PlatformCode   `json:"platform"`
	ExternalRef         string                `json:"external_ref,omitempty"`
	Status              models.MediaBuyStatus `json:"status"`
	BuyerRef            string                `json:"buyer_ref"`
	PackageIDs          []string              `json:"package_ids,omitempty"`
	CreativeIDs         []string              `json:"creative_ids,omitempty"`
	FlightStart         time.Time             `json:"flight_start"`
	FlightEnd           time.Time             `json:"flight_end"`
	TotalBudget         float64               `json:"total_budget"`
	Currency            string                `json:"currency"`
	BudgetedImpressions int64                 `json:"budgeted_impressions"`
	Delivery            DeliveryView          `json:"delivery"`
	CreatedAt           time.Time             `json:"created_at"`
	ActivatedAt         *time.Time            `json:"activated_at,omitempty"`
}

// DeliveryView снимок открутки закупки
type DeliveryView struct {
	Impressions      int64      `json:"impressions"`
	Spend            float64    `json:"spend"`
	PacingPercentage float64    `json:"pacing_percentage"`
	LastPolledAt     *time.Time `json:"last_polled_at,omitempty"`
}

func MediaBuyConvert(rec dbmodels.MediaBuy) MediaBuyView {
	return MediaBuyView{
		ID:                  rec.ID,
		TenantID:            rec.TenantID,
		PrincipalID:         rec.PrincipalID,
		Platform:            rec.Platform,
		ExternalRef:         rec.ExternalRef,
		Status:              rec.Status,
		BuyerRef:            rec.BuyerRef,
		PackageIDs:          rec.PackageIDs,
		CreativeIDs:         rec.CreativeIDs,
		FlightStart:         rec.FlightStart,
		FlightEnd:           rec.FlightEnd,
		TotalBudget:         rec.TotalBudget,
		Currency:            rec.Currency,
		BudgetedImpressions: rec.BudgetedImpressions,
		Delivery: DeliveryView{
			Impressions:      rec.DeliveredImpressions,
			Spend:            rec.Spend,
			PacingPercentage: rec.PacingPercentage(),
			LastPolledAt:     rec.LastPolledAt,
		},
		CreatedAt:   rec.CreatedAt,
		ActivatedAt: rec.ActivatedAt,
	}
}

type ManualCreateRequest struct {
	PrincipalID string              `json:"principal_id"` // принципал-владелец
	Platform    models.PlatformCode `json:"platform"`     // платформа размещения
	BuyerRef    string              `json:"buyer_ref"`    // референс покупателя
	FlightStart time.Time           `json:"flight_start"`
	FlightEnd   time.Time           `json:"flight_end"`
	TotalBudget float64             `json:"total_budget"`
	Currency    string              `json:"currency"`
}

func (r ManualCreateRequest) Validate() error {
	if r.PrincipalID == "" {
		return errors.New("не указан принципал")
	}
	if err := r.Platform.Validate(); err != nil {
		return err
	}
	if r.TotalBudget <= 0 {
		return errors.New("бюджет должен быть больше нуля")
	}
	if !r.FlightEnd.After(r.FlightStart) {
		return errors.New("окончание размещения должно быть позже начала")
	}
	return nil
}
