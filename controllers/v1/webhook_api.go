package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"adops-backend/controllers"
	webhookhandler "adops-backend/lib/webhook"
	"adops-backend/middleware"
	apimodels "adops-backend/models/api"
	webhookapimodels "adops-backend/models/api/webhook"
)

type webhookApiController struct {
	controllers.BaseAPIController
}

func InitWebhookApiRouters(app *fiber.App) {
	controller := webhookApiController{}
	app.Route("webhooks", func(router fiber.Router) {
		router.Get("", controller.list)
		router.Post("", controller.subscribe)
		router.Route(":id", func(idRoute fiber.Router) {
			idRoute.Put("", controller.update)
			idRoute.Delete("", controller.delete)
		})
	})
}

// @Summary Список подписок
// @Tags Вебхуки
// @Description Список подписок тенанта на события задач и доставки
// @Param   X-Tenant-ID		header		string	true	"Tenant ID"
// @Success 200 {object} apimodels.Response{data=[]webhookapimodels.SubscriptionView}
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/webhooks [get]
func (c *webhookApiController) list(ctx *fiber.Ctx) error {
	tenantID := middleware.GetTenantID(ctx)
	resp, err := webhookhandler.Instance.ListSubscriptions(tenantID)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения списка подписок")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(resp))
}

// @Summary Подписка на события
// @Tags Вебхуки
// @Description Регистрация получателя событий, пустой список типов означает все события
// @Param   X-Tenant-ID		header		string	true	"Tenant ID"
// @Param	body body	 webhookapimodels.SubscriptionData	true	"request body"
// @Success 200 {object} apimodels.Response{data=string}
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/webhooks [post]
func (c *webhookApiController) subscribe(ctx *fiber.Ctx) error {
	var payload webhookapimodels.SubscriptionData
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	tenantID := middleware.GetTenantID(ctx)
	id, err := webhookhandler.Instance.Subscribe(tenantID, payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка регистрации подписки")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(id))
}

// @Summary Обновление подписки
// @Tags Вебхуки
// @Description Обновление адреса, секрета или фильтра событий подписки
// @Param   X-Tenant-ID		header		string	true	"Tenant ID"
// @Param	body body	 webhookapimodels.SubscriptionData	true	"request body"
// @Param   id          		path    string  				    	true         "rec ID"
// @Success 200 {object} apimodels.Response
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/webhooks/{id} [put]
func (c *webhookApiController) update(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload webhookapimodels.SubscriptionData
	if err = c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err = payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	tenantID := middleware.GetTenantID(ctx)
	if err = webhookhandler.Instance.UpdateSubscription(tenantID, id, payload); err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка обновления подписки")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(nil))
}

// @Summary Удаление подписки
// @Tags Вебхуки
// @Description Удаление получателя событий
// @Param   X-Tenant-ID		header		string	true	"Tenant ID"
// @Param   id          		path    string  				    	true         "rec ID"
// @Success 200 {object} apimodels.Response
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/webhooks/{id} [delete]
func (c *webhookApiController) delete(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	tenantID := middleware.GetTenantID(ctx)
	if err = webhookhandler.Instance.DeleteSubscription(tenantID, id); err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка удаления подписки")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(nil))
}
