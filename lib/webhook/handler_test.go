package webhookhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	tenanthandler "adops-backend/lib/tenant/handler"
	connectionhub "adops-backend/lib/ws/hub/connection-hub"
	"adops-backend/models"
	webhookapimodels "adops-backend/models/api/webhook"
	dbmodels "adops-backend/models/db"
)

func TestDispatch(t *testing.T) {
	connectionhub.Init()

	t.Run(`delivery with secret check`, func(t *testing.T) {
		receiver := newReceiver(0)
		server := httptest.NewServer(receiver)
		defer server.Close()

		i := newTestDispatcher(subscription(server.URL, "s3cret"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		i.StartWorker(ctx)

		i.Notify("t1", taskPayload("task-1", models.WebhookEventTaskCreated))

		waitUntil(t, func() bool { return receiver.count() == 1 })
		got := receiver.last()
		require.Equal(t, "s3cret", got.secret)
		require.Equal(t, "application/json", got.contentType)
		require.Equal(t, "AdOps/1.0", got.userAgent)

		var payload webhookapimodels.Payload
		require.Nil(t, json.Unmarshal(got.body, &payload))
		require.Equal(t, "task-1", payload.TaskID)
		require.Equal(t, models.WebhookEventTaskCreated, payload.Data.EventType)
	})

	t.Run(`retry until success check`, func(t *testing.T) {
		// получатель дважды отвечает 500, затем принимает
		receiver := newReceiver(2)
		server := httptest.NewServer(receiver)
		defer server.Close()

		i := newTestDispatcher(subscription(server.URL, ""))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		i.StartWorker(ctx)

		i.Notify("t1", taskPayload("task-1", models.WebhookEventTaskCreated))

		waitUntil(t, func() bool { return receiver.count() == 3 })
		// без секрета заголовок не передаётся
		require.Equal(t, "", receiver.last().secret)
	})

	t.Run(`attempts exhausted check`, func(t *testing.T) {
		receiver := newReceiver(100)
		server := httptest.NewServer(receiver)
		defer server.Close()

		i := newTestDispatcher(subscription(server.URL, ""))
		i.attempts = 2
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		i.StartWorker(ctx)

		i.Notify("t1", taskPayload("task-1", models.WebhookEventTaskCreated))

		waitUntil(t, func() bool { return receiver.count() == 2 })
		time.Sleep(50 * time.Millisecond)
		// попытки исчерпаны, событие больше не шлётся
		require.Equal(t, 2, receiver.count())
	})

	t.Run(`event type filter check`, func(t *testing.T) {
		receiver := newReceiver(0)
		server := httptest.NewServer(receiver)
		defer server.Close()

		sub := subscription(server.URL, "")
		sub.EventTypes = pq.StringArray{string(models.WebhookEventDeliveryProgress)}
		i := newTestDispatcher(sub)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		i.StartWorker(ctx)

		i.Notify("t1", taskPayload("task-1", models.WebhookEventTaskCreated))
		time.Sleep(50 * time.Millisecond)
		require.Equal(t, 0, receiver.count())

		i.Notify("t1", taskPayload("task-1", models.WebhookEventDeliveryProgress))
		waitUntil(t, func() bool { return receiver.count() == 1 })
	})

	t.Run(`queue overflow drop check`, func(t *testing.T) {
		i := newTestDispatcher(subscription("http://localhost:1/hook", ""))
		i.queue = make(chan outboundEvent, 1)
		// воркер не запущен, очередь никто не разбирает

		i.Notify("t1", taskPayload("task-1", models.WebhookEventTaskCreated))
		i.Notify("t1", taskPayload("task-2", models.WebhookEventTaskCreated))
		// второе событие отброшено, вызов не блокируется
		require.Len(t, i.queue, 1)
	})

	t.Run(`inactive tenant isolation check`, func(t *testing.T) {
		receiver := newReceiver(0)
		server := httptest.NewServer(receiver)
		defer server.Close()

		i := newTestDispatcher(subscription(server.URL, ""))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		i.StartWorker(ctx)

		// подписка принадлежит t1, события чужого тенанта не доставляются
		i.Notify("t2", taskPayload("task-1", models.WebhookEventTaskCreated))
		time.Sleep(50 * time.Millisecond)
		require.Equal(t, 0, receiver.count())
	})
}

func TestSubscriptions(t *testing.T) {
	t.Run(`subscribe with tenant secret check`, func(t *testing.T) {
		tenanthandler.Instance = stubTenants{policy: &models.ApprovalPolicy{
			TenantID:      "t1",
			WebhookSecret: "tenant-secret",
		}}
		store := &fakeWebhookStore{recs: map[string]*dbmodels.WebhookSubscription{}}
		i := &impl{store: store}

		id, err := i.Subscribe("t1", webhookapimodels.SubscriptionData{
			PrincipalID: "buyer-1",
			URL:         "https://buyer.example.com/hook",
		})
		require.Nil(t, err)
		rec := store.recs[id]
		require.NotNil(t, rec)
		require.Equal(t, "tenant-secret", rec.Secret)
		require.Equal(t, true, rec.Active)
	})

	t.Run(`subscribe with explicit secret check`, func(t *testing.T) {
		tenanthandler.Instance = stubTenants{policy: &models.ApprovalPolicy{
			TenantID:      "t1",
			WebhookSecret: "tenant-secret",
		}}
		store := &fakeWebhookStore{recs: map[string]*dbmodels.WebhookSubscription{}}
		i := &impl{store: store}

		id, err := i.Subscribe("t1", webhookapimodels.SubscriptionData{
			URL:    "https://buyer.example.com/hook",
			Secret: "own-secret",
		})
		require.Nil(t, err)
		require.Equal(t, "own-secret", store.recs[id].Secret)
	})

	t.Run(`update subscription check`, func(t *testing.T) {
		store := &fakeWebhookStore{recs: map[string]*dbmodels.WebhookSubscription{}}
		i := &impl{store: store}
		sub := subscription("https://buyer.example.com/hook", "s1")
		id, _ := store.Create(*sub)

		err := i.UpdateSubscription("t1", id, webhookapimodels.SubscriptionData{
			PrincipalID: "buyer-2",
			URL:         "https://buyer.example.com/hook2",
			Secret:      "s2",
			EventTypes:  []string{string(models.WebhookEventTaskResolved)},
		})
		require.Nil(t, err)
		require.Equal(t, "https://buyer.example.com/hook2", store.recs[id].URL)
		require.Equal(t, "s2", store.recs[id].Secret)
		require.Equal(t, pq.StringArray{string(models.WebhookEventTaskResolved)}, store.recs[id].EventTypes)
	})

	t.Run(`update unknown subscription check`, func(t *testing.T) {
		store := &fakeWebhookStore{recs: map[string]*dbmodels.WebhookSubscription{}}
		i := &impl{store: store}

		err := i.UpdateSubscription("t1", "sub-absent", webhookapimodels.SubscriptionData{
			URL: "https://buyer.example.com/hook",
		})
		require.NotNil(t, err)
	})

	t.Run(`list converts check`, func(t *testing.T) {
		store := &fakeWebhookStore{recs: map[string]*dbmodels.WebhookSubscription{}}
		i := &impl{store: store}
		_, _ = store.Create(*subscription("https://buyer.example.com/hook", "s1"))

		list, err := i.ListSubscriptions("t1")
		require.Nil(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "https://buyer.example.com/hook", list[0].URL)
	})
}

func newTestDispatcher(subs ...*dbmodels.WebhookSubscription) *impl {
	store := &fakeWebhookStore{recs: map[string]*dbmodels.WebhookSubscription{}}
	for _, sub := range subs {
		_, _ = store.Create(*sub)
	}
	return &impl{
		store:       store,
		queue:       make(chan outboundEvent, 16),
		attempts:    3,
		retryDelay:  5 * time.Millisecond,
		sendTimeout: 2 * time.Second,
	}
}

func subscription(url, secret string) *dbmodels.WebhookSubscription {
	return &dbmodels.WebhookSubscription{
		BaseTenantModel: dbmodels.BaseTenantModel{
			TenantID: "t1",
		},
		PrincipalID: "buyer-1",
		URL:         url,
		Secret:      secret,
		Active:      true,
	}
}

func taskPayload(taskID string, event models.WebhookEventType) webhookapimodels.Payload {
	return webhookapimodels.Payload{
		TaskID:    taskID,
		Status:    models.WebhookStatusStarted,
		Timestamp: time.Now(),
		Data: webhookapimodels.PayloadData{
			EventType: event,
			Detail:    "Создание закупки ref-1",
		},
	}
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

type receivedRequest struct {
	secret      string
	contentType string
	userAgent   string
	body        []byte
}

// receiver принимает вебхуки, первые failures запросов отклоняет со статусом 500
type receiver struct {
	mu       sync.Mutex
	failures int
	requests []receivedRequest
}

func newReceiver(failures int) *receiver {
	return &receiver{failures: failures}
}

func (r *receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.requests = append(r.requests, receivedRequest{
		secret:      req.Header.Get("X-Webhook-Secret"),
		contentType: req.Header.Get("Content-Type"),
		userAgent:   req.Header.Get("User-Agent"),
		body:        body,
	})
	fail := len(r.requests) <= r.failures
	r.mu.Unlock()
	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (r *receiver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func (r *receiver) last() receivedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return receivedRequest{}
	}
	return r.requests[len(r.requests)-1]
}

type stubTenants struct {
	tenanthandler.Provider
	policy *models.ApprovalPolicy
	err    error
}

func (s stubTenants) GetPolicy(tenantID string) (*models.ApprovalPolicy, error) {
	return s.policy, s.err
}

type fakeWebhookStore struct {
	mu     sync.Mutex
	nextID int
	recs   map[string]*dbmodels.WebhookSubscription
}

func (f *fakeWebhookStore) Create(rec dbmodels.WebhookSubscription) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("sub-%v", f.nextID)
	}
	f.recs[rec.ID] = &rec
	return rec.ID, nil
}

func (f *fakeWebhookStore) GetByID(tenantID, id string) (*dbmodels.WebhookSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[id]
	if !ok || rec.TenantID != tenantID {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (f *fakeWebhookStore) Update(tenantID, id string, updMap map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[id]
	if !ok {
		return errors.New("подписка не найдена")
	}
	if v, ok := updMap["principal_id"].(string); ok {
		rec.PrincipalID = v
	}
	if v, ok := updMap["url"].(string); ok {
		rec.URL = v
	}
	if v, ok := updMap["secret"].(string); ok {
		rec.Secret = v
	}
	if v, ok := updMap["event_types"].(pq.StringArray); ok {
		rec.EventTypes = v
	}
	return nil
}

func (f *fakeWebhookStore) Delete(tenantID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.recs, id)
	return nil
}

func (f *fakeWebhookStore) List(tenantID string) ([]dbmodels.WebhookSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := make([]dbmodels.WebhookSubscription, 0, len(f.recs))
	for _, rec := range f.recs {
		if rec.TenantID == tenantID {
			list = append(list, *rec)
		}
	}
	return list, nil
}

func (f *fakeWebhookStore) ListActive(tenantID string) ([]dbmodels.WebhookSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := make([]dbmodels.WebhookSubscription, 0, len(f.recs))
	for _, rec := range f.recs {
		if rec.TenantID == tenantID && rec.Active {
			list = append(list, *rec)
		}
	}
	return list, nil
}
