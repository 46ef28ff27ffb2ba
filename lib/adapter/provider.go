package adapter

import (
	"context"

	"adops-backend/models"
	operationapimodels "adops-backend/models/api/operation"
	dbmodels "adops-backend/models/db"
)

// Provider единый контракт рекламной платформы. Все вызовы синхронные,
// асинхронность платформы выражается статусом pending_activation в ответе.
type Provider interface {
	// CreateMediaBuy создаёт закупку на платформе, возвращает её внешний идентификатор и статус
	CreateMediaBuy(ctx context.Context, rec dbmodels.MediaBuy, req operationapimodels.CreateMediaBuyRequest) (externalRef string, status models.MediaBuyStatus, err error)
	// UpdateMediaBuy применяет действие (пауза/возобновление/бюджет) к закупке или пакету
	UpdateMediaBuy(ctx context.Context, rec dbmodels.MediaBuy, req operationapimodels.UpdateMediaBuyRequest) error
	// AddCreativeAssets отправляет креативы на модерацию платформы
	AddCreativeAssets(ctx context.Context, rec dbmodels.MediaBuy, req operationapimodels.AddCreativeAssetsRequest) error
	// CheckMediaBuyStatus возвращает текущий статус закупки на платформе
	CheckMediaBuyStatus(ctx context.Context, rec dbmodels.MediaBuy) (models.MediaBuyStatus, error)
	// GetMediaBuyDelivery возвращает счётчики открутки закупки
	GetMediaBuyDelivery(ctx context.Context, rec dbmodels.MediaBuy) (DeliveryStat, error)
}

// DeliveryStat счётчики открутки на стороне платформы
type DeliveryStat struct {
	Impressions int64
	Spend       float64
}
