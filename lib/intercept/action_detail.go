package intercepthandler

import (
	"fmt"

	"adops-backend/models"
	operationapimodels "adops-backend/models/api/operation"
)

// Человекочитаемое описание операции для карточки задачи согласования.
// Чистые функции без побочных эффектов, по одной на вид операции

const detailDateLayout = "02.01.2006"

func createDetail(req operationapimodels.CreateMediaBuyRequest) string {
	return fmt.Sprintf("Создание закупки %v: пакетов %v, бюджет %.2f %v, размещение %v — %v",
		req.BuyerRef,
		len(req.Packages),
		req.TotalBudget(),
		req.Currency,
		req.FlightStart.Format(detailDateLayout),
		req.FlightEnd.Format(detailDateLayout),
	)
}

func updateDetail(req operationapimodels.UpdateMediaBuyRequest) string {
	switch req.Action {
	case models.UpdateActionPauseMediaBuy:
		return fmt.Sprintf("Остановка закупки %v", req.MediaBuyID)
	case models.UpdateActionResumeMediaBuy:
		return fmt.Sprintf("Возобновление закупки %v", req.MediaBuyID)
	case models.UpdateActionPausePackage:
		return fmt.Sprintf("Остановка пакета %v закупки %v", req.PackageID, req.MediaBuyID)
	case models.UpdateActionResumePackage:
		return fmt.Sprintf("Возобновление пакета %v закупки %v", req.PackageID, req.MediaBuyID)
	case models.UpdateActionUpdatePackageBudget:
		budget := float64(0)
		if req.Budget != nil {
			budget = *req.Budget
		}
		return fmt.Sprintf("Изменение бюджета пакета %v закупки %v на %.2f", req.PackageID, req.MediaBuyID, budget)
	}
	return fmt.Sprintf("Изменение закупки %v: %v", req.MediaBuyID, req.Action)
}

func creativesDetail(req operationapimodels.AddCreativeAssetsRequest) string {
	return fmt.Sprintf("Привязка креативов к закупке %v: %v шт", req.MediaBuyID, len(req.Creatives))
}

func checkDetail(req operationapimodels.CheckStatusRequest) string {
	return fmt.Sprintf("Проверка статуса закупки %v на площадке", req.MediaBuyID)
}
