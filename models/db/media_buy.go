package dbmodels

import (
	"time"

	"github.com/lib/pq"

	"adops-backend/models"
)

// MediaBuy рекламная закупка, создаётся через адаптер платформы либо вручную
type MediaBuy struct {
	BaseTenantModel
	PrincipalID         string                `gorm:"type:varchar(36);index"`
	OriginTaskID        *string               `gorm:"type:varchar(36);index"` // задача согласования, породившая закупку
	Platform            models.PlatformCode   `gorm:"type:varchar(32)"`
	ExternalRef         string                `gorm:"type:varchar(128);index"` // идентификатор на стороне платформы
	Status              models.MediaBuyStatus `gorm:"type:varchar(32);index"`
	BuyerRef            string                `gorm:"type:varchar(128)"`
	PackageIDs          pq.StringArray        `gorm:"type:text[]"`
	CreativeIDs         pq.StringArray        `gorm:"type:text[]"`
	FlightStart         time.Time
	FlightEnd           time.Time
	TotalBudget         float64
	Currency            string `gorm:"type:varchar(8)"`
	BudgetedImpressions int64
	// снимок доставки, обновляется трекером
	DeliveredImpressions int64
	Spend                float64
	LastPolledAt         *time.Time
	ActivatedAt          *time.Time
}

// FlightHours длительность размещения в часах
func (m MediaBuy) FlightHours() float64 {
	return m.FlightEnd.Sub(m.FlightStart).Hours()
}

// PacingPercentage доля израсходованного бюджета, 0..100
func (m MediaBuy) PacingPercentage() float64 {
	if m.TotalBudget <= 0 {
		return 0
	}
	return m.Spend / m.TotalBudget * 100
}
