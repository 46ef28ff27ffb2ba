package intercepthandler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	oprunner "adops-backend/lib/op-runner"
	taskhandler "adops-backend/lib/task"
	tenanthandler "adops-backend/lib/tenant/handler"
	"adops-backend/models"
	operationapimodels "adops-backend/models/api/operation"
	dbmodels "adops-backend/models/db"
)

// Перехватчик операций: по политике тенанта операция либо исполняется сразу,
// либо сериализуется в задачу согласования и ждёт решения человека

type Provider interface {
	CreateMediaBuy(ctx context.Context, tenantID, principalID string, req operationapimodels.CreateMediaBuyRequest) (*operationapimodels.OperationResult, error)
	UpdateMediaBuy(ctx context.Context, tenantID, principalID string, req operationapimodels.UpdateMediaBuyRequest) (*operationapimodels.OperationResult, error)
	AddCreativeAssets(ctx context.Context, tenantID, principalID string, req operationapimodels.AddCreativeAssetsRequest) (*operationapimodels.OperationResult, error)
	// CheckMediaBuyStatus читающая операция, всегда немедленный путь
	CheckMediaBuyStatus(ctx context.Context, tenantID, principalID string, req operationapimodels.CheckStatusRequest) (*operationapimodels.OperationResult, error)
}

var Instance Provider

func NewHandler() {
	Instance = impl{}
}

type impl struct{}

func (i impl) getLogger(tenantID string, tool models.ToolName) *log.Entry {
	return log.
		WithField("tenant_id", tenantID).
		WithField("tool_name", tool)
}

func (i impl) CreateMediaBuy(ctx context.Context, tenantID, principalID string, req operationapimodels.CreateMediaBuyRequest) (*operationapimodels.OperationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка сериализации операции")
	}
	return i.intercept(ctx, interceptedOp{
		tenantID:    tenantID,
		principalID: principalID,
		tool:        models.ToolCreateMediaBuy,
		action:      models.TaskActionCreate,
		payload:     payload,
		detail:      createDetail(req),
	})
}

func (i impl) UpdateMediaBuy(ctx context.Context, tenantID, principalID string, req operationapimodels.UpdateMediaBuyRequest) (*operationapimodels.OperationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка сериализации операции")
	}
	return i.intercept(ctx, interceptedOp{
		tenantID:    tenantID,
		principalID: principalID,
		tool:        models.ToolUpdateMediaBuy,
		action:      req.Action.TaskAction(),
		mediaBuyID:  &req.MediaBuyID,
		payload:     payload,
		detail:      updateDetail(req),
	})
}

func (i impl) AddCreativeAssets(ctx context.Context, tenantID, principalID string, req operationapimodels.AddCreativeAssetsRequest) (*operationapimodels.OperationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка сериализации операции")
	}
	return i.intercept(ctx, interceptedOp{
		tenantID:    tenantID,
		principalID: principalID,
		tool:        models.ToolAddCreativeAssets,
		action:      models.TaskActionAssignCreative,
		mediaBuyID:  &req.MediaBuyID,
		payload:     payload,
		detail:      creativesDetail(req),
	})
}

func (i impl) CheckMediaBuyStatus(ctx context.Context, tenantID, principalID string, req operationapimodels.CheckStatusRequest) (*operationapimodels.OperationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	policy, err := tenanthandler.Instance.GetPolicy(tenantID)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка сериализации операции")
	}
	reqCtx := dbmodels.RequestContext{
		ToolName:     models.ToolCheckMediaBuy,
		Payload:      payload,
		ActionDetail: checkDetail(req),
		SubmittedAt:  time.Now(),
	}
	return i.runImmediate(ctx, *policy, principalID, reqCtx)
}

type interceptedOp struct {
	tenantID    string
	principalID string
	tool        models.ToolName
	action      models.TaskAction
	mediaBuyID  *string
	payload     json.RawMessage
	detail      string
}

func (i impl) intercept(ctx context.Context, op interceptedOp) (*operationapimodels.OperationResult, error) {
	logger := i.getLogger(op.tenantID, op.tool)
	policy, err := tenanthandler.Instance.GetPolicy(op.tenantID)
	if err != nil {
		// без политики операция отклоняется, задача не создаётся
		return nil, err
	}
	reqCtx := dbmodels.RequestContext{
		ToolName:     op.tool,
		Payload:      op.payload,
		ActionDetail: op.detail,
		SubmittedAt:  time.Now(),
	}
	if policy.RequiresApproval(op.tool) {
		taskID, err := taskhandler.Instance.CreateApproval(op.tenantID, op.principalID, op.action, op.mediaBuyID, reqCtx)
		if err != nil {
			return nil, err
		}
		logger.
			WithField("task_id", taskID).
			Info("Операция отложена до решения согласующего")
		result := &operationapimodels.OperationResult{
			Status: models.TaskStatusPendingApproval,
			TaskID: taskID,
			Detail: op.detail,
		}
		if op.mediaBuyID != nil {
			result.MediaBuyID = *op.mediaBuyID
		}
		return result, nil
	}
	return i.runImmediate(ctx, *policy, op.principalID, reqCtx)
}

// runImmediate исполняет операцию сразу, без задачи. Отказ площадки уходит
// вызывающему типизированным результатом, а не внутренней ошибкой
func (i impl) runImmediate(ctx context.Context, policy models.ApprovalPolicy, principalID string, reqCtx dbmodels.RequestContext) (*operationapimodels.OperationResult, error) {
	logger := i.getLogger(policy.TenantID, reqCtx.ToolName)
	result, err := oprunner.Instance.Execute(ctx, policy, principalID, "", reqCtx)
	if err != nil {
		logger.WithError(err).Error("Операция отклонена площадкой")
		return &operationapimodels.OperationResult{
			Status: models.TaskStatusFailed,
			Detail: err.Error(),
		}, nil
	}
	detail := result.Detail
	if result.Pending {
		detail += ", закупка ожидает активации площадкой"
	}
	logger.
		WithField("media_buy_id", result.MediaBuyID).
		Info("Операция выполнена немедленно")
	return &operationapimodels.OperationResult{
		Status:     models.TaskStatusCompleted,
		MediaBuyID: result.MediaBuyID,
		Detail:     detail,
	}, nil
}
