package apiv1

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"adops-backend/controllers"
	intercepthandler "adops-backend/lib/intercept"
	tenanthandler "adops-backend/lib/tenant/handler"
	"adops-backend/middleware"
	apimodels "adops-backend/models/api"
	operationapimodels "adops-backend/models/api/operation"
)

type operationApiController struct {
	controllers.BaseAPIController
}

func InitOperationApiRouters(app *fiber.App) {
	controller := operationApiController{}
	app.Route("operations", func(router fiber.Router) {
		router.Post("create_media_buy", controller.createMediaBuy)
		router.Post("update_media_buy", controller.updateMediaBuy)
		router.Post("add_creative_assets", controller.addCreativeAssets)
		router.Post("check_media_buy_status", controller.checkMediaBuyStatus)
	})
}

// @Summary Создание закупки
// @Tags Операции
// @Description Создание закупки: по политике тенанта выполняется сразу либо откладывается до согласования
// @Param   X-Tenant-ID		header		string	true	"Tenant ID"
// @Param   X-Principal-ID	header		string	true	"Principal ID"
// @Param	body body	 operationapimodels.CreateMediaBuyRequest	true	"request body"
// @Success 200 {object} apimodels.Response{data=operationapimodels.OperationResult}
// @Failure 400 {object} apimodels.Response
// @Failure 422 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/operations/create_media_buy [post]
func (c *operationApiController) createMediaBuy(ctx *fiber.Ctx) error {
	var payload operationapimodels.CreateMediaBuyRequest
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	tenantID := middleware.GetTenantID(ctx)
	principalID := middleware.GetPrincipalID(ctx)
	result, err := intercepthandler.Instance.CreateMediaBuy(ctx.UserContext(), tenantID, principalID, payload)
	if err != nil {
		return c.sendOperationError(ctx, err, "Ошибка выполнения операции создания закупки")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(result))
}

// @Summary Изменение закупки
// @Tags Операции
// @Description Изменение закупки или пакета: остановка, возобновление, бюджет
// @Param   X-Tenant-ID		header		string	true	"Tenant ID"
// @Param   X-Principal-ID	header		string	true	"Principal ID"
// @Param	body body	 operationapimodels.UpdateMediaBuyRequest	true	"request body"
// @Success 200 {object} apimodels.Response{data=operationapimodels.OperationResult}
// @Failure 400 {object} apimodels.Response
// @Failure 422 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/operations/update_media_buy [post]
func (c *operationApiController) updateMediaBuy(ctx *fiber.Ctx) error {
	var payload operationapimodels.UpdateMediaBuyRequest
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	tenantID := middleware.GetTenantID(ctx)
	principalID := middleware.GetPrincipalID(ctx)
	result, err := intercepthandler.Instance.UpdateMediaBuy(ctx.UserContext(), tenantID, principalID, payload)
	if err != nil {
		return c.sendOperationError(ctx, err, "Ошибка выполнения операции изменения закупки")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(result))
}

// @Summary Привязка креативов
// @Tags Операции
// @Description Привязка креативов к закупке
// @Param   X-Tenant-ID		header		string	true	"Tenant ID"
// @Param   X-Principal-ID	header		string	true	"Principal ID"
// @Param	body body	 operationapimodels.AddCreativeAssetsRequest	true	"request body"
// @Success 200 {object} apimodels.Response{data=operationapimodels.OperationResult}
// @Failure 400 {object} apimodels.Response
// @Failure 422 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/operations/add_creative_assets [post]
func (c *operationApiController) addCreativeAssets(ctx *fiber.Ctx) error {
	var payload operationapimodels.AddCreativeAssetsRequest
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	tenantID := middleware.GetTenantID(ctx)
	principalID := middleware.GetPrincipalID(ctx)
	result, err := intercepthandler.Instance.AddCreativeAssets(ctx.UserContext(), tenantID, principalID, payload)
	if err != nil {
		return c.sendOperationError(ctx, err, "Ошибка выполнения операции привязки креативов")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(result))
}

// @Summary Проверка статуса закупки
// @Tags Операции
// @Description Проверка статуса закупки на площадке, выполняется немедленно
// @Param   X-Tenant-ID		header		string	true	"Tenant ID"
// @Param   X-Principal-ID	header		string	true	"Principal ID"
// @Param	body body	 operationapimodels.CheckStatusRequest	true	"request body"
// @Success 200 {object} apimodels.Response{data=operationapimodels.OperationResult}
// @Failure 400 {object} apimodels.Response
// @Failure 422 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/operations/check_media_buy_status [post]
func (c *operationApiController) checkMediaBuyStatus(ctx *fiber.Ctx) error {
	var payload operationapimodels.CheckStatusRequest
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	tenantID := middleware.GetTenantID(ctx)
	principalID := middleware.GetPrincipalID(ctx)
	result, err := intercepthandler.Instance.CheckMediaBuyStatus(ctx.UserContext(), tenantID, principalID, payload)
	if err != nil {
		return c.sendOperationError(ctx, err, "Ошибка проверки статуса закупки")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(result))
}

// sendOperationError ненастроенная политика тенанта отклоняет операцию без задачи
func (c *operationApiController) sendOperationError(ctx *fiber.Ctx, err error, message string) error {
	if errors.Is(err, tenanthandler.ErrPolicyNotFound) {
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(apimodels.NewError(err.Error()))
	}
	return c.SendError(ctx, c.GetLogger(ctx), err, message)
}
