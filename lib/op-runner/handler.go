package oprunner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"adops-backend/db"
	"adops-backend/lib/adapter"
	mediabuystore "adops-backend/lib/media-buy/store"
	"adops-backend/lib/utils/lock"
	"adops-backend/models"
	operationapimodels "adops-backend/models/api/operation"
	dbmodels "adops-backend/models/db"
)

// Единая точка исполнения операций: и немедленный путь перехватчика, и
// воспроизведение согласованной задачи проходят через один и тот же код

type Result struct {
	MediaBuyID string // закупка, к которой относится операция
	Pending    bool   // площадка ещё обрабатывает операцию, нужен фоновый опрос
	Detail     string // человекочитаемый итог исполнения
}

type Provider interface {
	// Execute выполняет операцию через адаптер площадки; taskID пустой на
	// немедленном пути и заполнен при воспроизведении согласованной задачи
	Execute(ctx context.Context, policy models.ApprovalPolicy, principalID, taskID string, reqCtx dbmodels.RequestContext) (*Result, error)
}

var Instance Provider

// ожидание освобождения закупки, занятой другим вызовом адаптера
const executionWait = 30 * time.Second

func NewHandler() {
	Instance = impl{
		mediaBuyStore: mediabuystore.NewInstance(db.DB),
		executionWait: executionWait,
	}
}

type impl struct {
	mediaBuyStore mediabuystore.Provider
	executionWait time.Duration
}

func (i impl) getLogger(tenantID string, tool models.ToolName) *log.Entry {
	return log.
		WithField("tenant_id", tenantID).
		WithField("tool_name", tool)
}

func (i impl) Execute(ctx context.Context, policy models.ApprovalPolicy, principalID, taskID string, reqCtx dbmodels.RequestContext) (*Result, error) {
	switch reqCtx.ToolName {
	case models.ToolCreateMediaBuy:
		return i.executeCreate(ctx, policy, principalID, taskID, reqCtx.Payload)
	case models.ToolUpdateMediaBuy:
		return i.executeUpdate(ctx, policy, reqCtx.Payload)
	case models.ToolAddCreativeAssets:
		return i.executeCreatives(ctx, policy, reqCtx.Payload)
	case models.ToolCheckMediaBuy:
		return i.executeCheck(ctx, policy, reqCtx.Payload)
	}
	return nil, errors.Errorf("неизвестная операция (%v)", reqCtx.ToolName)
}

func (i impl) executeCreate(ctx context.Context, policy models.ApprovalPolicy, principalID, taskID string, payload json.RawMessage) (*Result, error) {
	var req operationapimodels.CreateMediaBuyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, errors.Wrap(err, "ошибка распознавания операции создания закупки")
	}
	provider, err := adapter.Get(policy.Platform)
	if err != nil {
		return nil, err
	}
	rec := dbmodels.MediaBuy{
		BaseTenantModel: dbmodels.BaseTenantModel{
			TenantID: policy.TenantID,
		},
		PrincipalID:         principalID,
		Platform:            policy.Platform,
		Status:              models.MediaBuyStatusPendingActivation,
		BuyerRef:            req.BuyerRef,
		PackageIDs:          packageIDs(req.Packages),
		FlightStart:         req.FlightStart,
		FlightEnd:           req.FlightEnd,
		TotalBudget:         req.TotalBudget(),
		Currency:            req.Currency,
		BudgetedImpressions: req.TotalImpressions(),
	}
	if taskID != "" {
		rec.OriginTaskID = &taskID
	}
	externalRef, status, err := provider.CreateMediaBuy(ctx, rec, req)
	if err != nil {
		return nil, err
	}
	rec.ExternalRef = externalRef
	rec.Status = status
	if status == models.MediaBuyStatusActive {
		now := time.Now()
		rec.ActivatedAt = &now
	}
	id, err := i.mediaBuyStore.Create(rec)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка сохранения закупки")
	}
	i.getLogger(policy.TenantID, models.ToolCreateMediaBuy).
		WithField("media_buy_id", id).
		WithField("status", status).
		Info("Закупка создана на площадке")
	return &Result{
		MediaBuyID: id,
		Pending:    status == models.MediaBuyStatusPendingActivation,
		Detail:     fmt.Sprintf("Закупка %v создана на площадке %v", req.BuyerRef, policy.Platform),
	}, nil
}

func (i impl) executeUpdate(ctx context.Context, policy models.ApprovalPolicy, payload json.RawMessage) (*Result, error) {
	var req operationapimodels.UpdateMediaBuyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, errors.Wrap(err, "ошибка распознавания операции изменения закупки")
	}
	rec, err := i.mediaBuyStore.GetByID(policy.TenantID, req.MediaBuyID)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка получения закупки")
	}
	if rec == nil {
		return nil, errors.New("закупка не найдена")
	}
	provider, err := adapter.Get(rec.Platform)
	if err != nil {
		return nil, err
	}
	var result *Result
	ok, err := lock.WithDelay(ctx, mediaBuyLockKey(rec.ID), i.executionWait, func() error {
		if innerErr := provider.UpdateMediaBuy(ctx, *rec, req); innerErr != nil {
			return innerErr
		}
		updMap := map[string]interface{}{}
		switch req.Action {
		case models.UpdateActionPauseMediaBuy:
			updMap["status"] = models.MediaBuyStatusPaused
		case models.UpdateActionResumeMediaBuy:
			updMap["status"] = models.MediaBuyStatusActive
		}
		if innerErr := i.mediaBuyStore.Update(policy.TenantID, rec.ID, updMap); innerErr != nil {
			return errors.Wrap(innerErr, "ошибка обновления закупки")
		}
		result = &Result{
			MediaBuyID: rec.ID,
			Detail:     fmt.Sprintf("Действие %v применено к закупке %v", req.Action, rec.BuyerRef),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, adapter.NewTransientError("закупка занята другой операцией, повторите позже")
	}
	return result, nil
}

func (i impl) executeCreatives(ctx context.Context, policy models.ApprovalPolicy, payload json.RawMessage) (*Result, error) {
	var req operationapimodels.AddCreativeAssetsRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, errors.Wrap(err, "ошибка распознавания операции добавления креативов")
	}
	rec, err := i.mediaBuyStore.GetByID(policy.TenantID, req.MediaBuyID)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка получения закупки")
	}
	if rec == nil {
		return nil, errors.New("закупка не найдена")
	}
	provider, err := adapter.Get(rec.Platform)
	if err != nil {
		return nil, err
	}
	var result *Result
	ok, err := lock.WithDelay(ctx, mediaBuyLockKey(rec.ID), i.executionWait, func() error {
		if innerErr := provider.AddCreativeAssets(ctx, *rec, req); innerErr != nil {
			return innerErr
		}
		ids := rec.CreativeIDs
		for _, creative := range req.Creatives {
			ids = append(ids, creative.CreativeID)
		}
		updMap := map[string]interface{}{
			"creative_ids": ids,
		}
		if innerErr := i.mediaBuyStore.Update(policy.TenantID, rec.ID, updMap); innerErr != nil {
			return errors.Wrap(innerErr, "ошибка обновления закупки")
		}
		result = &Result{
			MediaBuyID: rec.ID,
			Detail:     fmt.Sprintf("К закупке %v привязано креативов: %v", rec.BuyerRef, len(req.Creatives)),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, adapter.NewTransientError("закупка занята другой операцией, повторите позже")
	}
	return result, nil
}

func (i impl) executeCheck(ctx context.Context, policy models.ApprovalPolicy, payload json.RawMessage) (*Result, error) {
	var req operationapimodels.CheckStatusRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, errors.Wrap(err, "ошибка распознавания операции проверки статуса")
	}
	rec, err := i.mediaBuyStore.GetByID(policy.TenantID, req.MediaBuyID)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка получения закупки")
	}
	if rec == nil {
		return nil, errors.New("закупка не найдена")
	}
	provider, err := adapter.Get(rec.Platform)
	if err != nil {
		return nil, err
	}
	status, err := provider.CheckMediaBuyStatus(ctx, *rec)
	if err != nil {
		return nil, err
	}
	if status != rec.Status {
		updMap := map[string]interface{}{
			"status": status,
		}
		if status == models.MediaBuyStatusActive && rec.ActivatedAt == nil {
			updMap["activated_at"] = time.Now()
		}
		if err = i.mediaBuyStore.Update(policy.TenantID, rec.ID, updMap); err != nil {
			return nil, errors.Wrap(err, "ошибка обновления статуса закупки")
		}
	}
	return &Result{
		MediaBuyID: rec.ID,
		Pending:    status == models.MediaBuyStatusPendingActivation,
		Detail:     fmt.Sprintf("Статус закупки %v на площадке: %v", rec.BuyerRef, status),
	}, nil
}

func packageIDs(packages []operationapimodels.PackageData) pq.StringArray {
	ids := make(pq.StringArray, 0, len(packages))
	for _, p := range packages {
		ids = append(ids, p.PackageID)
	}
	return ids
}

func mediaBuyLockKey(id string) string {
	return fmt.Sprintf("media_buy_exec:%v", id)
}
