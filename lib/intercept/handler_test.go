package intercepthandler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	oprunner "adops-backend/lib/op-runner"
	taskhandler "adops-backend/lib/task"
	tenanthandler "adops-backend/lib/tenant/handler"
	"adops-backend/models"
	operationapimodels "adops-backend/models/api/operation"
	dbmodels "adops-backend/models/db"
)

func TestIntercept(t *testing.T) {
	i := impl{}

	t.Run(`deferred to approval check`, func(t *testing.T) {
		tasks := &stubTasks{taskID: "task-1"}
		runner := &stubRunner{}
		setInstances(manualPolicy(), nil, tasks, runner)

		result, err := i.CreateMediaBuy(context.TODO(), "t1", "buyer-1", createRequest("ref-1"))
		require.Nil(t, err)
		require.NotNil(t, result)
		require.Equal(t, models.TaskStatusPendingApproval, result.Status)
		require.Equal(t, "task-1", result.TaskID)
		require.NotEmpty(t, result.Detail)

		require.Len(t, tasks.created, 1)
		require.Equal(t, models.TaskActionCreate, tasks.created[0].action)
		require.Nil(t, tasks.created[0].mediaBuyID)
		require.Equal(t, models.ToolCreateMediaBuy, tasks.created[0].reqCtx.ToolName)
		require.NotEmpty(t, tasks.created[0].reqCtx.Payload)
		// отложенная операция не доходит до площадки
		require.Equal(t, 0, runner.calls)
	})

	t.Run(`immediate execution check`, func(t *testing.T) {
		tasks := &stubTasks{}
		runner := &stubRunner{result: &oprunner.Result{
			MediaBuyID: "mb-1",
			Detail:     "Закупка ref-1 создана на площадке mock",
		}}
		setInstances(autoPolicy(), nil, tasks, runner)

		result, err := i.CreateMediaBuy(context.TODO(), "t1", "buyer-1", createRequest("ref-1"))
		require.Nil(t, err)
		require.Equal(t, models.TaskStatusCompleted, result.Status)
		require.Equal(t, "mb-1", result.MediaBuyID)
		require.Equal(t, "Закупка ref-1 создана на площадке mock", result.Detail)
		require.Equal(t, 1, runner.calls)
		// немедленный путь исполняется без задачи
		require.Equal(t, "", runner.lastTaskID)
		require.Len(t, tasks.created, 0)
	})

	t.Run(`pending activation detail check`, func(t *testing.T) {
		runner := &stubRunner{result: &oprunner.Result{
			MediaBuyID: "mb-1",
			Pending:    true,
			Detail:     "Закупка ref-1 создана на площадке mock",
		}}
		setInstances(autoPolicy(), nil, &stubTasks{}, runner)

		result, err := i.CreateMediaBuy(context.TODO(), "t1", "buyer-1", createRequest("async-ref-1"))
		require.Nil(t, err)
		require.Equal(t, models.TaskStatusCompleted, result.Status)
		require.Equal(t, true, strings.HasSuffix(result.Detail, ", закупка ожидает активации площадкой"))
	})

	t.Run(`platform failure result check`, func(t *testing.T) {
		runner := &stubRunner{err: errors.New("платформа отклонила закупку (err-ref-1)")}
		setInstances(autoPolicy(), nil, &stubTasks{}, runner)

		result, err := i.CreateMediaBuy(context.TODO(), "t1", "buyer-1", createRequest("err-ref-1"))
		// отказ площадки приходит типизированным результатом, не ошибкой вызова
		require.Nil(t, err)
		require.Equal(t, models.TaskStatusFailed, result.Status)
		require.Equal(t, "платформа отклонила закупку (err-ref-1)", result.Detail)
	})

	t.Run(`policy missing check`, func(t *testing.T) {
		tasks := &stubTasks{}
		setInstances(nil, tenanthandler.ErrPolicyNotFound, tasks, &stubRunner{})

		result, err := i.CreateMediaBuy(context.TODO(), "t1", "buyer-1", createRequest("ref-1"))
		require.Nil(t, result)
		require.NotNil(t, err)
		require.Len(t, tasks.created, 0)
	})

	t.Run(`validation check`, func(t *testing.T) {
		result, err := i.CreateMediaBuy(context.TODO(), "t1", "buyer-1", operationapimodels.CreateMediaBuyRequest{})
		require.Nil(t, result)
		require.NotNil(t, err)
	})
}

func TestInterceptUpdate(t *testing.T) {
	i := impl{}

	t.Run(`action mapping check`, func(t *testing.T) {
		tasks := &stubTasks{taskID: "task-2"}
		setInstances(manualPolicy(), nil, tasks, &stubRunner{})

		result, err := i.UpdateMediaBuy(context.TODO(), "t1", "buyer-1", operationapimodels.UpdateMediaBuyRequest{
			MediaBuyID: "mb-1",
			Action:     models.UpdateActionPauseMediaBuy,
		})
		require.Nil(t, err)
		require.Equal(t, models.TaskStatusPendingApproval, result.Status)
		require.Equal(t, "mb-1", result.MediaBuyID)
		require.Len(t, tasks.created, 1)
		require.Equal(t, models.TaskActionPause, tasks.created[0].action)
		require.NotNil(t, tasks.created[0].mediaBuyID)
		require.Equal(t, "mb-1", *tasks.created[0].mediaBuyID)
	})

	t.Run(`selective approval list check`, func(t *testing.T) {
		// в списке только создание, изменение идёт немедленно
		policy := manualPolicy()
		policy.ApprovalOperations = map[models.ToolName]bool{models.ToolCreateMediaBuy: true}
		tasks := &stubTasks{}
		runner := &stubRunner{result: &oprunner.Result{MediaBuyID: "mb-1", Detail: "ok"}}
		setInstances(policy, nil, tasks, runner)

		result, err := i.UpdateMediaBuy(context.TODO(), "t1", "buyer-1", operationapimodels.UpdateMediaBuyRequest{
			MediaBuyID: "mb-1",
			Action:     models.UpdateActionResumeMediaBuy,
		})
		require.Nil(t, err)
		require.Equal(t, models.TaskStatusCompleted, result.Status)
		require.Len(t, tasks.created, 0)
		require.Equal(t, 1, runner.calls)
	})
}

func TestInterceptCreatives(t *testing.T) {
	i := impl{}

	t.Run(`deferred creatives check`, func(t *testing.T) {
		tasks := &stubTasks{taskID: "task-3"}
		setInstances(manualPolicy(), nil, tasks, &stubRunner{})

		result, err := i.AddCreativeAssets(context.TODO(), "t1", "buyer-1", operationapimodels.AddCreativeAssetsRequest{
			MediaBuyID: "mb-1",
			Creatives:  []operationapimodels.CreativeData{{CreativeID: "cr-1", URL: "https://cdn.example.com/cr-1"}},
		})
		require.Nil(t, err)
		require.Equal(t, models.TaskStatusPendingApproval, result.Status)
		require.Len(t, tasks.created, 1)
		require.Equal(t, models.TaskActionAssignCreative, tasks.created[0].action)
	})
}

func TestInterceptCheckStatus(t *testing.T) {
	i := impl{}

	t.Run(`never deferred check`, func(t *testing.T) {
		// читающая операция идёт мимо согласования даже при ручной политике
		tasks := &stubTasks{}
		runner := &stubRunner{result: &oprunner.Result{
			MediaBuyID: "mb-1",
			Pending:    true,
			Detail:     "Статус закупки ref-1 на площадке: pending_activation",
		}}
		setInstances(manualPolicy(), nil, tasks, runner)

		result, err := i.CheckMediaBuyStatus(context.TODO(), "t1", "buyer-1", operationapimodels.CheckStatusRequest{MediaBuyID: "mb-1"})
		require.Nil(t, err)
		require.Equal(t, models.TaskStatusCompleted, result.Status)
		require.Equal(t, 1, runner.calls)
		require.Len(t, tasks.created, 0)
	})

	t.Run(`validation check`, func(t *testing.T) {
		result, err := i.CheckMediaBuyStatus(context.TODO(), "t1", "buyer-1", operationapimodels.CheckStatusRequest{})
		require.Nil(t, result)
		require.NotNil(t, err)
	})
}

func setInstances(policy *models.ApprovalPolicy, policyErr error, tasks *stubTasks, runner *stubRunner) {
	tenanthandler.Instance = stubTenants{policy: policy, err: policyErr}
	taskhandler.Instance = tasks
	oprunner.Instance = runner
}

func manualPolicy() *models.ApprovalPolicy {
	return &models.ApprovalPolicy{
		TenantID:               "t1",
		ManualApprovalRequired: true,
		Platform:               models.PlatformMock,
	}
}

func autoPolicy() *models.ApprovalPolicy {
	return &models.ApprovalPolicy{
		TenantID: "t1",
		Platform: models.PlatformMock,
	}
}

func createRequest(buyerRef string) operationapimodels.CreateMediaBuyRequest {
	return operationapimodels.CreateMediaBuyRequest{
		BuyerRef: buyerRef,
		Packages: []operationapimodels.PackageData{
			{PackageID: "pkg-1", Budget: 100, BudgetedImpressions: 10000},
		},
		FlightStart: time.Now().Add(24 * time.Hour),
		FlightEnd:   time.Now().Add(10 * 24 * time.Hour),
		Currency:    "RUB",
	}
}

type stubTenants struct {
	tenanthandler.Provider
	policy *models.ApprovalPolicy
	err    error
}

func (s stubTenants) GetPolicy(tenantID string) (*models.ApprovalPolicy, error) {
	return s.policy, s.err
}

type createdApproval struct {
	action     models.TaskAction
	mediaBuyID *string
	reqCtx     dbmodels.RequestContext
}

type stubTasks struct {
	taskhandler.Provider
	taskID  string
	err     error
	created []createdApproval
}

func (s *stubTasks) CreateApproval(tenantID, principalID string, action models.TaskAction, mediaBuyID *string, reqCtx dbmodels.RequestContext) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.created = append(s.created, createdApproval{action: action, mediaBuyID: mediaBuyID, reqCtx: reqCtx})
	return s.taskID, nil
}

type stubRunner struct {
	result     *oprunner.Result
	err        error
	calls      int
	lastTaskID string
}

func (s *stubRunner) Execute(ctx context.Context, policy models.ApprovalPolicy, principalID, taskID string, reqCtx dbmodels.RequestContext) (*oprunner.Result, error) {
	s.calls++
	s.lastTaskID = taskID
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}
