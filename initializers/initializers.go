package initializers

import (
	"context"
	"time"

	"adops-backend/config"
	"adops-backend/fiberlog"
	mockadapter "adops-backend/lib/adapter/mock"
	deliveryhandler "adops-backend/lib/delivery"
	escalationhandler "adops-backend/lib/escalation"
	xlsexport "adops-backend/lib/export/xls"
	intercepthandler "adops-backend/lib/intercept"
	mediabuyhandler "adops-backend/lib/media-buy"
	oprunner "adops-backend/lib/op-runner"
	pollerhandler "adops-backend/lib/poller"
	resumehandler "adops-backend/lib/resume"
	taskhandler "adops-backend/lib/task"
	tenanthandler "adops-backend/lib/tenant/handler"
	webhookhandler "adops-backend/lib/webhook"
	connectionhub "adops-backend/lib/ws/hub/connection-hub"
)

var LoggerConfig *fiberlog.Config

func InitAllServices(ctx context.Context) {
	config.InitConfig()
	LoggerConfig = InitLogger()
	InitDBConnection()
	InitSmtp()
	connectionhub.Init()
	mockadapter.NewHandler()
	tenanthandler.NewHandler()
	webhookhandler.NewHandler()
	taskhandler.NewHandler()
	oprunner.NewHandler()
	pollerhandler.NewHandler()
	resumehandler.NewHandler()
	intercepthandler.NewHandler()
	mediabuyhandler.NewHandler()
	deliveryhandler.NewHandler()
	escalationhandler.NewHandler()
	xlsexport.NewHandler()
	go initWorkers(ctx)
}

// запускаем с промежутком в 10 сек чтоб размыть нагрузку
func initWorkers(ctx context.Context) {
	// Задача доставки вебхуков подписчикам
	webhookhandler.Instance.StartWorker(ctx)

	// Задача восстановления опроса статусов после перезапуска
	pollerhandler.Instance.StartWorker(ctx)

	if makeTimeGap(ctx) {
		// Задача учёта открутки активных закупок
		deliveryhandler.Instance.StartWorker(ctx)
	}
	if makeTimeGap(ctx) {
		// Задача эскалации просроченных задач согласования
		escalationhandler.Instance.StartWorker(ctx)
	}
}

func makeTimeGap(ctx context.Context) (canRun bool) {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(time.Second * 10):
		return true
	}
}
