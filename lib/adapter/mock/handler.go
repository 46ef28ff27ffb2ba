package mockadapter

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"adops-backend/lib/adapter"
	"adops-backend/models"
	operationapimodels "adops-backend/models/api/operation"
	dbmodels "adops-backend/models/db"
)

// Тестовая платформа: поведение управляется префиксом buyer_ref
// async- закупка активируется после задержки, busy- временная ошибка,
// err- окончательный отказ, остальные активируются сразу

var Instance adapter.Provider

const activationDelay = 5 * time.Second

func NewHandler() {
	Instance = &impl{
		activationDelay: activationDelay,
		buys:            map[string]time.Time{},
	}
	adapter.Register(models.PlatformMock, Instance)
}

type impl struct {
	activationDelay time.Duration
	mu              sync.Mutex
	buys            map[string]time.Time // external_ref -> момент создания
}

func (i *impl) getLogger(externalRef string) *log.Entry {
	logger := log.WithField("platform", models.PlatformMock)
	if externalRef != "" {
		logger = logger.WithField("external_ref", externalRef)
	}
	return logger
}

func (i *impl) CreateMediaBuy(ctx context.Context, rec dbmodels.MediaBuy, req operationapimodels.CreateMediaBuyRequest) (string, models.MediaBuyStatus, error) {
	if strings.HasPrefix(req.BuyerRef, "err-") {
		return "", "", adapter.NewPermanentError("платформа отклонила закупку (%v)", req.BuyerRef)
	}
	if strings.HasPrefix(req.BuyerRef, "busy-") {
		return "", "", adapter.NewTransientError("платформа временно недоступна")
	}
	externalRef := "mock-" + uuid.NewString()
	i.mu.Lock()
	i.buys[externalRef] = time.Now()
	i.mu.Unlock()

	status := models.MediaBuyStatusActive
	if strings.HasPrefix(req.BuyerRef, "async-") {
		status = models.MediaBuyStatusPendingActivation
	}
	i.getLogger(externalRef).
		WithField("status", status).
		Info("Закупка создана на тестовой платформе")
	return externalRef, status, nil
}

func (i *impl) UpdateMediaBuy(ctx context.Context, rec dbmodels.MediaBuy, req operationapimodels.UpdateMediaBuyRequest) error {
	if strings.HasPrefix(rec.BuyerRef, "err-") {
		return adapter.NewPermanentError("платформа отклонила изменение закупки (%v)", rec.ExternalRef)
	}
	i.getLogger(rec.ExternalRef).
		WithField("action", req.Action).
		Info("Изменение закупки применено на тестовой платформе")
	return nil
}

func (i *impl) AddCreativeAssets(ctx context.Context, rec dbmodels.MediaBuy, req operationapimodels.AddCreativeAssetsRequest) error {
	if strings.HasPrefix(rec.BuyerRef, "err-") {
		return adapter.NewPermanentError("платформа отклонила креативы")
	}
	i.getLogger(rec.ExternalRef).
		WithField("creatives", len(req.Creatives)).
		Info("Креативы приняты тестовой платформой")
	return nil
}

func (i *impl) CheckMediaBuyStatus(ctx context.Context, rec dbmodels.MediaBuy) (models.MediaBuyStatus, error) {
	i.mu.Lock()
	createdAt, ok := i.buys[rec.ExternalRef]
	i.mu.Unlock()
	// после перезапуска процесса момент создания неизвестен, считаем закупку активной
	if !ok {
		return models.MediaBuyStatusActive, nil
	}
	if time.Since(createdAt) < i.activationDelay {
		return models.MediaBuyStatusPendingActivation, nil
	}
	return models.MediaBuyStatusActive, nil
}

func (i *impl) GetMediaBuyDelivery(ctx context.Context, rec dbmodels.MediaBuy) (adapter.DeliveryStat, error) {
	progress := flightProgress(rec, time.Now())
	return adapter.DeliveryStat{
		Impressions: int64(float64(rec.BudgetedImpressions) * progress),
		Spend:       rec.TotalBudget * progress,
	}, nil
}

func flightProgress(rec dbmodels.MediaBuy, now time.Time) float64 {
	total := rec.FlightEnd.Sub(rec.FlightStart)
	if total <= 0 {
		return 1
	}
	elapsed := now.Sub(rec.FlightStart)
	if elapsed <= 0 {
		return 0
	}
	progress := float64(elapsed) / float64(total)
	if progress > 1 {
		return 1
	}
	return progress
}
