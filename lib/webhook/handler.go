package webhookhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"adops-backend/config"
	"adops-backend/db"
	tenanthandler "adops-backend/lib/tenant/handler"
	initchecker "adops-backend/lib/utils/init-checker"
	webhookstore "adops-backend/lib/webhook/store"
	connectionhub "adops-backend/lib/ws/hub/connection-hub"
	webhookapimodels "adops-backend/models/api/webhook"
	dbmodels "adops-backend/models/db"
	wsmodels "adops-backend/models/ws"
)

type Provider interface {
	StartWorker(ctx context.Context)
	// Notify ставит событие в очередь доставки, вызывающего не блокирует
	Notify(tenantID string, payload webhookapimodels.Payload)
	Subscribe(tenantID string, data webhookapimodels.SubscriptionData) (id string, err error)
	UpdateSubscription(tenantID, id string, data webhookapimodels.SubscriptionData) error
	DeleteSubscription(tenantID, id string) error
	ListSubscriptions(tenantID string) ([]webhookapimodels.SubscriptionView, error)
}

var Instance Provider

func NewHandler() {
	instance := &impl{
		store:       webhookstore.NewInstance(db.DB),
		queue:       make(chan outboundEvent, config.Conf.Webhook.QueueSize),
		attempts:    config.Conf.Webhook.Attempts,
		retryDelay:  time.Duration(config.Conf.Webhook.RetryDelaySec) * time.Second,
		sendTimeout: time.Duration(config.Conf.Webhook.SendTimeoutSec) * time.Second,
	}
	initchecker.CheckInit(
		"store", instance.store,
	)
	Instance = instance
}

type impl struct {
	store       webhookstore.Provider
	queue       chan outboundEvent
	attempts    int
	retryDelay  time.Duration
	sendTimeout time.Duration
}

type outboundEvent struct {
	tenantID string
	url      string
	secret   string
	payload  webhookapimodels.Payload
}

func (i *impl) getLogger(tenantID, url string) *log.Entry {
	logger := log.
		WithField("worker_name", "WebhookDispatcher").
		WithField("tenant_id", tenantID)
	if url != "" {
		logger = logger.WithField("receiver", url)
	}
	return logger
}

// StartWorker запускает единственного отправителя очереди.
// Один потребитель сохраняет порядок событий для каждого получателя
func (i *impl) StartWorker(ctx context.Context) {
	go i.run(ctx)
}

func (i *impl) run(ctx context.Context) {
	logger := log.WithField("worker_name", "WebhookDispatcher")
	logger.Info("Отправка вебхуков запущена")
	for {
		select {
		case <-ctx.Done():
			logger.Info("Отправка вебхуков остановлена")
			return
		case ev := <-i.queue:
			i.deliver(ctx, ev)
		}
	}
}

func (i *impl) Notify(tenantID string, payload webhookapimodels.Payload) {
	logger := i.getLogger(tenantID, "")
	subs, err := i.store.ListActive(tenantID)
	if err != nil {
		logger.WithError(err).Error("Ошибка получения подписок тенанта")
		return
	}
	for _, sub := range subs {
		if !sub.Accepts(string(payload.Data.EventType)) {
			continue
		}
		ev := outboundEvent{
			tenantID: tenantID,
			url:      sub.URL,
			secret:   sub.Secret,
			payload:  payload,
		}
		select {
		case i.queue <- ev:
		default:
			logger.
				WithField("event_type", payload.Data.EventType).
				Warn("Очередь вебхуков переполнена, событие отброшено")
		}
	}
	// события дублируются подключённым ревьюерам тенанта
	connectionhub.Instance.SendToTenant(tenantID, wsmodels.ServerMessage{
		Time:       payload.Timestamp.Format("02.01.2006 15:04:05"),
		Code:       string(payload.Data.EventType),
		Msg:        payload.Data.Detail,
		TaskID:     payload.TaskID,
		MediaBuyID: payload.Data.MediaBuyID,
	})
}

func (i *impl) deliver(ctx context.Context, ev outboundEvent) {
	logger := i.getLogger(ev.tenantID, ev.url).
		WithField("event_type", ev.payload.Data.EventType)
	body, err := json.Marshal(ev.payload)
	if err != nil {
		logger.WithError(err).Error("Ошибка сериализации события")
		return
	}
	delay := i.retryDelay
	for attempt := 1; attempt <= i.attempts; attempt++ {
		err = i.send(ctx, ev, body)
		if err == nil {
			logger.Info("Событие доставлено получателю")
			return
		}
		logger.
			WithField("attempt", attempt).
			WithError(err).
			Warn("Ошибка доставки события получателю")
		if attempt == i.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = delay * 2
	}
	logger.Error("Событие не доставлено, попытки исчерпаны")
}

func (i *impl) send(ctx context.Context, ev outboundEvent, body []byte) error {
	reqCtx, cancel := context.WithTimeout(ctx, i.sendTimeout)
	defer cancel()
	r, err := http.NewRequestWithContext(reqCtx, http.MethodPost, ev.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "ошибка формирования запроса")
	}
	r.Header.Add("Content-Type", "application/json")
	r.Header.Add("User-Agent", "AdOps/1.0")
	if ev.secret != "" {
		r.Header.Add("X-Webhook-Secret", ev.secret)
	}
	client := &http.Client{}
	response, err := client.Do(r)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return nil
	}
	return errors.Errorf("получатель ответил статусом %v", response.StatusCode)
}

func (i *impl) Subscribe(tenantID string, data webhookapimodels.SubscriptionData) (id string, err error) {
	if data.Secret == "" {
		// секрет по умолчанию берётся из настроек тенанта
		policy, policyErr := tenanthandler.Instance.GetPolicy(tenantID)
		if policyErr == nil {
			data.Secret = policy.WebhookSecret
		}
	}
	rec := dbmodels.WebhookSubscription{
		BaseTenantModel: dbmodels.BaseTenantModel{
			TenantID: tenantID,
		},
		PrincipalID: data.PrincipalID,
		URL:         data.URL,
		Secret:      data.Secret,
		EventTypes:  pq.StringArray(data.EventTypes),
		Active:      true,
	}
	id, err = i.store.Create(rec)
	if err != nil {
		return "", errors.Wrap(err, "ошибка создания подписки")
	}
	i.getLogger(tenantID, data.URL).Info("Создана подписка на вебхуки")
	return id, nil
}

func (i *impl) UpdateSubscription(tenantID, id string, data webhookapimodels.SubscriptionData) error {
	rec, err := i.store.GetByID(tenantID, id)
	if err != nil {
		return errors.Wrap(err, "ошибка получения подписки")
	}
	if rec == nil {
		return errors.New("подписка не найдена")
	}
	updMap := map[string]interface{}{
		"principal_id": data.PrincipalID,
		"url":          data.URL,
		"secret":       data.Secret,
		"event_types":  pq.StringArray(data.EventTypes),
	}
	return i.store.Update(tenantID, id, updMap)
}

func (i *impl) DeleteSubscription(tenantID, id string) error {
	return i.store.Delete(tenantID, id)
}

func (i *impl) ListSubscriptions(tenantID string) ([]webhookapimodels.SubscriptionView, error) {
	list, err := i.store.List(tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка получения списка подписок")
	}
	result := make([]webhookapimodels.SubscriptionView, 0, len(list))
	for _, rec := range list {
		result = append(result, webhookapimodels.SubscriptionConvert(rec))
	}
	return result, nil
}
