package deliveryhandler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"adops-backend/lib/adapter"
	tenanthandler "adops-backend/lib/tenant/handler"
	webhookhandler "adops-backend/lib/webhook"
	"adops-backend/models"
	mediabuyapimodels "adops-backend/models/api/mediabuy"
	operationapimodels "adops-backend/models/api/operation"
	webhookapimodels "adops-backend/models/api/webhook"
	dbmodels "adops-backend/models/db"
)

func TestSimulation(t *testing.T) {
	t.Run(`plan delivered in accelerated time check`, func(t *testing.T) {
		store, hooks := setupDelivery()
		i := newTestTracker(store)
		rec := deliverableBuy("mb-1", time.Now(), time.Now().Add(time.Hour))
		store.put(&rec)

		// час открутки укладывается в несколько тиков по 10мс
		i.ensureSimulation(rec, 120000)

		waitUntil(t, func() bool {
			return store.get("mb-1").Status == models.MediaBuyStatusCompleted
		})
		waitUntil(t, func() bool { return runningCount(i) == 0 })

		buy := store.get("mb-1")
		require.Equal(t, buy.BudgetedImpressions, buy.DeliveredImpressions)
		require.Equal(t, buy.TotalBudget, buy.Spend)
		require.NotNil(t, buy.LastPolledAt)

		events := hooks.notified()
		require.NotEmpty(t, events)
		completed := 0
		lastImpressions := int64(0)
		for _, event := range events {
			require.Equal(t, "task-9", event.TaskID)
			require.Equal(t, "mb-1", event.Data.MediaBuyID)
			require.NotNil(t, event.Data.Progress)
			require.NotNil(t, event.Data.Delivery)
			// прогресс монотонно неубывающий
			require.Equal(t, true, event.Data.Delivery.Impressions >= lastImpressions)
			lastImpressions = event.Data.Delivery.Impressions
			if event.Data.EventType == models.WebhookEventDeliveryCompleted {
				completed++
			} else {
				require.Equal(t, models.WebhookEventDeliveryProgress, event.Data.EventType)
				require.Equal(t, models.WebhookStatusDelivering, event.Status)
			}
		}
		// событие полной открутки ровно одно, последним
		require.Equal(t, 1, completed)
		last := events[len(events)-1]
		require.Equal(t, models.WebhookEventDeliveryCompleted, last.Data.EventType)
		require.Equal(t, models.WebhookStatusCompleted, last.Status)
		require.Equal(t, float64(100), last.Data.Progress.ProgressPercentage)
		require.Equal(t, float64(1), last.Data.Progress.TotalHours)
	})

	t.Run(`resume from snapshot check`, func(t *testing.T) {
		store, hooks := setupDelivery()
		i := newTestTracker(store)
		rec := deliverableBuy("mb-1", time.Now(), time.Now().Add(time.Hour))
		// половина плана уже откручена до рестарта
		rec.DeliveredImpressions = rec.BudgetedImpressions / 2
		store.put(&rec)

		i.ensureSimulation(rec, 120000)
		waitUntil(t, func() bool { return runningCount(i) == 0 })

		events := hooks.notified()
		require.NotEmpty(t, events)
		// прогресс продолжился со снимка, а не с нуля
		require.Equal(t, true, events[0].Data.Progress.ProgressPercentage >= 50)
	})

	t.Run(`empty plan guard check`, func(t *testing.T) {
		store, hooks := setupDelivery()
		i := newTestTracker(store)
		now := time.Now()
		rec := deliverableBuy("mb-1", now, now)
		store.put(&rec)

		i.ensureSimulation(rec, 100)
		waitUntil(t, func() bool { return runningCount(i) == 0 })

		require.Len(t, hooks.notified(), 0)
		require.Equal(t, 0, store.updateCount())
	})

	t.Run(`simulation dedup check`, func(t *testing.T) {
		store, hooks := setupDelivery()
		i := newTestTracker(store)
		rec := deliverableBuy("mb-1", time.Now(), time.Now().Add(time.Hour))
		store.put(&rec)

		i.mu.Lock()
		i.running["mb-1"] = true
		i.mu.Unlock()

		i.ensureSimulation(rec, 120000)
		time.Sleep(40 * time.Millisecond)
		// вторая симуляция той же закупки не поднимается
		require.Len(t, hooks.notified(), 0)
		require.Equal(t, 1, runningCount(i))
	})
}

func TestTrackLive(t *testing.T) {
	t.Run(`flight finished check`, func(t *testing.T) {
		platform := "delivery-live-1"
		adapter.Register(models.PlatformCode(platform), &stubDeliveryAdapter{stat: adapter.DeliveryStat{
			Impressions: 90000,
			Spend:       450,
		}})
		store, hooks := setupDelivery()
		i := newTestTracker(store)
		rec := deliverableBuy("mb-1", time.Now().Add(-48*time.Hour), time.Now().Add(-time.Hour))
		rec.Platform = models.PlatformCode(platform)
		store.put(&rec)

		i.trackLive(context.TODO(), rec)

		buy := store.get("mb-1")
		require.Equal(t, models.MediaBuyStatusCompleted, buy.Status)
		require.Equal(t, int64(90000), buy.DeliveredImpressions)
		require.Equal(t, float64(450), buy.Spend)

		events := hooks.notified()
		require.Len(t, events, 1)
		require.Equal(t, models.WebhookEventDeliveryCompleted, events[0].Data.EventType)
		require.Equal(t, float64(100), events[0].Data.Progress.ProgressPercentage)
		require.Equal(t, int64(90000), events[0].Data.Delivery.Impressions)
	})

	t.Run(`mid flight progress check`, func(t *testing.T) {
		platform := "delivery-live-2"
		adapter.Register(models.PlatformCode(platform), &stubDeliveryAdapter{stat: adapter.DeliveryStat{
			Impressions: 25000,
			Spend:       125,
		}})
		store, hooks := setupDelivery()
		i := newTestTracker(store)
		rec := deliverableBuy("mb-1", time.Now().Add(-12*time.Hour), time.Now().Add(12*time.Hour))
		rec.Platform = models.PlatformCode(platform)
		store.put(&rec)

		i.trackLive(context.TODO(), rec)

		buy := store.get("mb-1")
		// окно не закончилось, закупка остаётся активной
		require.Equal(t, models.MediaBuyStatusActive, buy.Status)
		require.Equal(t, int64(25000), buy.DeliveredImpressions)

		events := hooks.notified()
		require.Len(t, events, 1)
		require.Equal(t, models.WebhookEventDeliveryProgress, events[0].Data.EventType)
		require.Equal(t, models.WebhookStatusDelivering, events[0].Status)
		require.Equal(t, true, events[0].Data.Progress.ProgressPercentage > 0)
		require.Equal(t, true, events[0].Data.Progress.ProgressPercentage < 100)
	})

	t.Run(`platform unavailable check`, func(t *testing.T) {
		platform := "delivery-live-3"
		adapter.Register(models.PlatformCode(platform), &stubDeliveryAdapter{err: adapter.NewTransientError("площадка недоступна")})
		store, hooks := setupDelivery()
		i := newTestTracker(store)
		rec := deliverableBuy("mb-1", time.Now().Add(-12*time.Hour), time.Now().Add(12*time.Hour))
		rec.Platform = models.PlatformCode(platform)
		store.put(&rec)

		i.trackLive(context.TODO(), rec)

		// снимок не трогаем, событие не шлём, дождёмся следующего скана
		require.Equal(t, 0, store.updateCount())
		require.Len(t, hooks.notified(), 0)
	})
}

func TestScan(t *testing.T) {
	t.Run(`simulation dispatch check`, func(t *testing.T) {
		store, _ := setupDelivery()
		tenanthandler.Instance = stubTenants{policy: &models.ApprovalPolicy{
			TenantID:          "t1",
			SimulationEnabled: true,
		}}
		i := newTestTracker(store)
		// большой тик: симуляция поднимется и будет ждать
		i.tickPeriod = time.Hour
		ctx, cancel := context.WithCancel(context.Background())
		i.ctx = ctx
		defer cancel()

		rec := deliverableBuy("mb-1", time.Now(), time.Now().Add(time.Hour))
		store.put(&rec)

		i.scan(ctx, log.WithField("worker", "delivery_tracker"))
		require.Equal(t, 1, runningCount(i))
	})

	t.Run(`simulation acceleration fallback check`, func(t *testing.T) {
		store, hooks := setupDelivery()
		tenanthandler.Instance = stubTenants{policy: &models.ApprovalPolicy{
			TenantID:          "t1",
			SimulationEnabled: true,
			// ускорение тенантом не задано, берётся из конфигурации процесса
		}}
		i := newTestTracker(store)
		i.acceleration = 120000

		rec := deliverableBuy("mb-1", time.Now(), time.Now().Add(time.Hour))
		store.put(&rec)

		i.scan(context.TODO(), log.WithField("worker", "delivery_tracker"))
		waitUntil(t, func() bool {
			return store.get("mb-1").Status == models.MediaBuyStatusCompleted
		})
		require.NotEmpty(t, hooks.notified())
	})

	t.Run(`live dispatch check`, func(t *testing.T) {
		platform := "delivery-scan-live"
		adapter.Register(models.PlatformCode(platform), &stubDeliveryAdapter{stat: adapter.DeliveryStat{
			Impressions: 1000,
			Spend:       10,
		}})
		store, hooks := setupDelivery()
		tenanthandler.Instance = stubTenants{policy: &models.ApprovalPolicy{TenantID: "t1"}}
		i := newTestTracker(store)
		i.simEnabled = false

		rec := deliverableBuy("mb-1", time.Now().Add(-12*time.Hour), time.Now().Add(12*time.Hour))
		rec.Platform = models.PlatformCode(platform)
		store.put(&rec)

		i.scan(context.TODO(), log.WithField("worker", "delivery_tracker"))
		require.Equal(t, 0, runningCount(i))
		require.Len(t, hooks.notified(), 1)
		require.Equal(t, models.WebhookEventDeliveryProgress, hooks.notified()[0].Data.EventType)
	})

	t.Run(`policy missing skip check`, func(t *testing.T) {
		store, hooks := setupDelivery()
		tenanthandler.Instance = stubTenants{err: tenanthandler.ErrPolicyNotFound}
		i := newTestTracker(store)

		rec := deliverableBuy("mb-1", time.Now(), time.Now().Add(time.Hour))
		store.put(&rec)

		i.scan(context.TODO(), log.WithField("worker", "delivery_tracker"))
		require.Equal(t, 0, runningCount(i))
		require.Len(t, hooks.notified(), 0)
	})
}

func newTestTracker(store *fakeMediaBuyStore) *impl {
	return &impl{
		mediaBuyStore: store,
		scanPeriod:    time.Hour,
		tickPeriod:    10 * time.Millisecond,
		acceleration:  3600,
		simEnabled:    true,
		ctx:           context.Background(),
		running:       map[string]bool{},
	}
}

func setupDelivery() (*fakeMediaBuyStore, *stubWebhooks) {
	store := &fakeMediaBuyStore{recs: map[string]*dbmodels.MediaBuy{}}
	hooks := &stubWebhooks{}
	webhookhandler.Instance = hooks
	return store, hooks
}

func deliverableBuy(id string, flightStart, flightEnd time.Time) dbmodels.MediaBuy {
	originTaskID := "task-9"
	return dbmodels.MediaBuy{
		BaseTenantModel: dbmodels.BaseTenantModel{
			BaseModel: dbmodels.BaseModel{ID: id},
			TenantID:  "t1",
		},
		PrincipalID:         "buyer-1",
		OriginTaskID:        &originTaskID,
		Platform:            models.PlatformMock,
		Status:              models.MediaBuyStatusActive,
		BuyerRef:            "ref-1",
		FlightStart:         flightStart,
		FlightEnd:           flightEnd,
		TotalBudget:         500,
		Currency:            "RUB",
		BudgetedImpressions: 100000,
	}
}

func runningCount(i *impl) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.running)
}

func waitUntil(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.FailNow(t, "условие не выполнено за отведённое время")
}

type stubTenants struct {
	tenanthandler.Provider
	policy *models.ApprovalPolicy
	err    error
}

func (s stubTenants) GetPolicy(tenantID string) (*models.ApprovalPolicy, error) {
	return s.policy, s.err
}

type stubDeliveryAdapter struct {
	stat adapter.DeliveryStat
	err  error
}

func (s *stubDeliveryAdapter) CreateMediaBuy(ctx context.Context, rec dbmodels.MediaBuy, req operationapimodels.CreateMediaBuyRequest) (string, models.MediaBuyStatus, error) {
	return "", "", nil
}

func (s *stubDeliveryAdapter) UpdateMediaBuy(ctx context.Context, rec dbmodels.MediaBuy, req operationapimodels.UpdateMediaBuyRequest) error {
	return nil
}

func (s *stubDeliveryAdapter) AddCreativeAssets(ctx context.Context, rec dbmodels.MediaBuy, req operationapimodels.AddCreativeAssetsRequest) error {
	return nil
}

func (s *stubDeliveryAdapter) CheckMediaBuyStatus(ctx context.Context, rec dbmodels.MediaBuy) (models.MediaBuyStatus, error) {
	return models.MediaBuyStatusActive, nil
}

func (s *stubDeliveryAdapter) GetMediaBuyDelivery(ctx context.Context, rec dbmodels.MediaBuy) (adapter.DeliveryStat, error) {
	if s.err != nil {
		return adapter.DeliveryStat{}, s.err
	}
	return s.stat, nil
}

type fakeMediaBuyStore struct {
	mu      sync.Mutex
	recs    map[string]*dbmodels.MediaBuy
	updates int
}

func (f *fakeMediaBuyStore) put(rec *dbmodels.MediaBuy) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs[rec.ID] = rec
}

func (f *fakeMediaBuyStore) get(id string) *dbmodels.MediaBuy {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[id]
	if !ok {
		return nil
	}
	copied := *rec
	return &copied
}

func (f *fakeMediaBuyStore) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates
}

func (f *fakeMediaBuyStore) Create(rec dbmodels.MediaBuy) (string, error) {
	return "", nil
}

func (f *fakeMediaBuyStore) GetByID(tenantID, id string) (*dbmodels.MediaBuy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[id]
	if !ok || rec.TenantID != tenantID {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (f *fakeMediaBuyStore) Update(tenantID, id string, updMap map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[id]
	if !ok {
		return fmt.Errorf("закупка не найдена")
	}
	f.updates++
	if v, ok := updMap["status"].(models.MediaBuyStatus); ok {
		rec.Status = v
	}
	if v, ok := updMap["delivered_impressions"].(int64); ok {
		rec.DeliveredImpressions = v
	}
	if v, ok := updMap["spend"].(float64); ok {
		rec.Spend = v
	}
	if v, ok := updMap["last_polled_at"].(time.Time); ok {
		rec.LastPolledAt = &v
	}
	return nil
}

func (f *fakeMediaBuyStore) ListCount(tenantID string, filter mediabuyapimodels.MediaBuyFilter) (int64, error) {
	return 0, nil
}

func (f *fakeMediaBuyStore) List(tenantID string, filter mediabuyapimodels.MediaBuyFilter) ([]dbmodels.MediaBuy, error) {
	return nil, nil
}

func (f *fakeMediaBuyStore) ListDeliverable() ([]dbmodels.MediaBuy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := make([]dbmodels.MediaBuy, 0, len(f.recs))
	for _, rec := range f.recs {
		list = append(list, *rec)
	}
	return list, nil
}

type stubWebhooks struct {
	mu     sync.Mutex
	events []webhookapimodels.Payload
}

func (s *stubWebhooks) notified() []webhookapimodels.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]webhookapimodels.Payload{}, s.events...)
}

func (s *stubWebhooks) StartWorker(ctx context.Context) {}

func (s *stubWebhooks) Notify(tenantID string, payload webhookapimodels.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, payload)
}

func (s *stubWebhooks) Subscribe(tenantID string, data webhookapimodels.SubscriptionData) (string, error) {
	return "", nil
}

func (s *stubWebhooks) UpdateSubscription(tenantID, id string, data webhookapimodels.SubscriptionData) error {
	return nil
}

func (s *stubWebhooks) DeleteSubscription(tenantID, id string) error {
	return nil
}

func (s *stubWebhooks) ListSubscriptions(tenantID string) ([]webhookapimodels.SubscriptionView, error) {
	return nil, nil
}
