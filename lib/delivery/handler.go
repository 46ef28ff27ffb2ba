package deliveryhandler

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"adops-backend/config"
	"adops-backend/db"
	"adops-backend/lib/adapter"
	mediabuystore "adops-backend/lib/media-buy/store"
	tenanthandler "adops-backend/lib/tenant/handler"
	baseworker "adops-backend/lib/utils/base-worker"
	"adops-backend/lib/utils/helpers"
	webhookhandler "adops-backend/lib/webhook"
	"adops-backend/models"
	webhookapimodels "adops-backend/models/api/webhook"
	dbmodels "adops-backend/models/db"
)

// Трекер доставки: для площадок без живой статистики симуляция в ускоренном
// времени, для остальных периодический опрос открутки. Оба пути шлют события
// через один и тот же диспетчер вебхуков, потребители разницы не видят

type Provider interface {
	// StartWorker запускает скан активных закупок: живой опрос открутки и
	// восстановление симуляций после рестарта
	StartWorker(ctx context.Context)
}

var Instance Provider

func NewHandler() {
	simEnabled := config.Conf.Simulation.Enabled == nil || *config.Conf.Simulation.Enabled
	Instance = &impl{
		mediaBuyStore: mediabuystore.NewInstance(db.DB),
		scanPeriod:    time.Duration(config.Conf.Workflow.PollPeriodSec) * time.Second,
		tickPeriod:    time.Duration(config.Conf.Simulation.TickPeriodSec) * time.Second,
		acceleration:  config.Conf.Simulation.Acceleration,
		simEnabled:    simEnabled,
		ctx:           context.Background(),
		running:       map[string]bool{},
	}
}

type impl struct {
	mediaBuyStore mediabuystore.Provider
	scanPeriod    time.Duration
	tickPeriod    time.Duration
	acceleration  float64
	simEnabled    bool

	mu      sync.Mutex
	ctx     context.Context
	running map[string]bool
}

func (i *impl) getLogger(rec dbmodels.MediaBuy) *log.Entry {
	return log.
		WithField("tenant_id", rec.TenantID).
		WithField("media_buy_id", rec.ID)
}

func (i *impl) StartWorker(ctx context.Context) {
	i.mu.Lock()
	i.ctx = ctx
	i.mu.Unlock()
	worker := baseworker.NewInstance("delivery_tracker", time.Second, i.scanPeriod)
	go worker.Run(ctx, func(ctx context.Context) {
		i.scan(ctx, worker.GetLogger())
	})
}

func (i *impl) scan(ctx context.Context, logger *log.Entry) {
	list, err := i.mediaBuyStore.ListDeliverable()
	if err != nil {
		logger.WithError(err).Error("Ошибка скана активных закупок")
		return
	}
	for _, rec := range list {
		if helpers.IsContextDone(ctx) {
			return
		}
		policy, err := tenanthandler.Instance.GetPolicy(rec.TenantID)
		if err != nil {
			i.getLogger(rec).WithError(err).Warn("Политика тенанта недоступна, закупка пропущена")
			continue
		}
		if i.simEnabled && policy.SimulationEnabled {
			acceleration := policy.SimulationAcceleration
			if acceleration <= 0 {
				acceleration = i.acceleration
			}
			i.ensureSimulation(rec, acceleration)
			continue
		}
		i.trackLive(ctx, rec)
	}
}

// ensureSimulation поднимает симуляцию закупки, если она ещё не идёт
func (i *impl) ensureSimulation(rec dbmodels.MediaBuy, acceleration float64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.running[rec.ID] {
		return
	}
	i.running[rec.ID] = true
	go i.runSimulation(i.ctx, rec, acceleration)
}

func (i *impl) stopSimulation(mediaBuyID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.running, mediaBuyID)
}

func (i *impl) runSimulation(ctx context.Context, rec dbmodels.MediaBuy, acceleration float64) {
	logger := i.getLogger(rec).WithField("acceleration", acceleration)
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Паника симуляции доставки: (%v)", r)
		}
		i.stopSimulation(rec.ID)
	}()
	total := rec.FlightEnd.Sub(rec.FlightStart)
	if total <= 0 || rec.BudgetedImpressions <= 0 {
		logger.Warn("Симуляция невозможна: пустое окно размещения или нулевой план показов")
		return
	}
	// продолжаем с сохранённого снимка, после рестарта прогресс не откатывается
	initial := time.Duration(float64(total) * float64(rec.DeliveredImpressions) / float64(rec.BudgetedImpressions))
	started := time.Now()
	logger.Info("Запущена симуляция доставки")
	ticker := time.NewTicker(i.tickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// снимок в хранилище, после рестарта симуляция продолжится сканом
			logger.Info("Симуляция доставки остановлена")
			return
		case now := <-ticker.C:
			elapsed := initial + time.Duration(float64(now.Sub(started))*acceleration)
			if elapsed > total {
				elapsed = total
			}
			if done := i.applyProgress(rec, elapsed, total); done {
				return
			}
		}
	}
}

// applyProgress записывает снимок и шлёт ровно одно событие за тик,
// прогресс монотонно неубывающий; true когда план откручен полностью
func (i *impl) applyProgress(rec dbmodels.MediaBuy, elapsed, total time.Duration) bool {
	logger := i.getLogger(rec)
	progress := float64(elapsed) / float64(total)
	if progress > 1 {
		progress = 1
	}
	impressions := int64(float64(rec.BudgetedImpressions) * progress)
	spend := rec.TotalBudget * progress
	completed := progress >= 1
	updMap := map[string]interface{}{
		"delivered_impressions": impressions,
		"spend":                 spend,
		"last_polled_at":        time.Now(),
	}
	if completed {
		updMap["status"] = models.MediaBuyStatusCompleted
	}
	if err := i.mediaBuyStore.Update(rec.TenantID, rec.ID, updMap); err != nil {
		logger.WithError(err).Error("Ошибка обновления снимка доставки")
		return false
	}
	rec.DeliveredImpressions = impressions
	rec.Spend = spend
	if completed {
		i.notifyDelivery(rec, models.WebhookEventDeliveryCompleted, models.WebhookStatusCompleted, progress, elapsed, total)
		logger.Info("Симуляция доставки завершена, план показов откручен")
		return true
	}
	i.notifyDelivery(rec, models.WebhookEventDeliveryProgress, models.WebhookStatusDelivering, progress, elapsed, total)
	return false
}

// trackLive один опрос живой открутки с площадки
func (i *impl) trackLive(ctx context.Context, rec dbmodels.MediaBuy) {
	logger := i.getLogger(rec)
	provider, err := adapter.Get(rec.Platform)
	if err != nil {
		logger.WithError(err).Error("Адаптер площадки недоступен")
		return
	}
	stat, err := provider.GetMediaBuyDelivery(ctx, rec)
	if err != nil {
		logger.WithError(err).Warn("Не удалось получить открутку с площадки")
		return
	}
	now := time.Now()
	finished := now.After(rec.FlightEnd)
	updMap := map[string]interface{}{
		"delivered_impressions": stat.Impressions,
		"spend":                 stat.Spend,
		"last_polled_at":        now,
	}
	if finished {
		updMap["status"] = models.MediaBuyStatusCompleted
	}
	if err = i.mediaBuyStore.Update(rec.TenantID, rec.ID, updMap); err != nil {
		logger.WithError(err).Error("Ошибка обновления снимка доставки")
		return
	}
	rec.DeliveredImpressions = stat.Impressions
	rec.Spend = stat.Spend
	total := rec.FlightEnd.Sub(rec.FlightStart)
	elapsed := now.Sub(rec.FlightStart)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > total {
		elapsed = total
	}
	if finished {
		i.notifyDelivery(rec, models.WebhookEventDeliveryCompleted, models.WebhookStatusCompleted, 1, total, total)
		logger.Info("Окно размещения закончилось, закупка завершена")
		return
	}
	progress := float64(elapsed) / float64(total)
	i.notifyDelivery(rec, models.WebhookEventDeliveryProgress, models.WebhookStatusDelivering, progress, elapsed, total)
}

func (i *impl) notifyDelivery(rec dbmodels.MediaBuy, event models.WebhookEventType, status models.WebhookStatus, progress float64, elapsed, total time.Duration) {
	payload := webhookapimodels.Payload{
		Status:    status,
		Timestamp: time.Now(),
		Data: webhookapimodels.PayloadData{
			EventType:  event,
			MediaBuyID: rec.ID,
			Progress: &webhookapimodels.ProgressData{
				ElapsedHours:       helpers.RoundHours(elapsed.Hours()),
				TotalHours:         helpers.RoundHours(total.Hours()),
				ProgressPercentage: helpers.RoundHours(progress * 100),
			},
			Delivery: &webhookapimodels.DeliveryData{
				Impressions:      rec.DeliveredImpressions,
				Spend:            rec.Spend,
				TotalBudget:      rec.TotalBudget,
				PacingPercentage: helpers.RoundHours(rec.PacingPercentage()),
			},
		},
	}
	if rec.OriginTaskID != nil {
		payload.TaskID = *rec.OriginTaskID
	}
	webhookhandler.Instance.Notify(rec.TenantID, payload)
}
