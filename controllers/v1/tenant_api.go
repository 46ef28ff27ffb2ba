package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"adops-backend/controllers"
	tenanthandler "adops-backend/lib/tenant/handler"
	apimodels "adops-backend/models/api"
	tenantapimodels "adops-backend/models/api/tenant"
)

type tenantApiController struct {
	controllers.BaseAPIController
}

func InitTenantApiRouters(app *fiber.App) {
	controller := tenantApiController{}
	app.Route("tenants", func(router fiber.Router) {
		router.Get("", controller.list)
		router.Post("", controller.create)
		router.Route(":id", func(idRoute fiber.Router) {
			idRoute.Get("", controller.get)
			idRoute.Get("settings", controller.settings)
			idRoute.Put("settings", controller.updateSetting)
		})
	})
}

// @Summary Список тенантов
// @Tags Тенанты
// @Description Список активных тенантов
// @Success 200 {object} apimodels.Response{data=[]tenantapimodels.TenantView}
// @Failure 500 {object} apimodels.Response
// @router /api/v1/tenants [get]
func (c *tenantApiController) list(ctx *fiber.Ctx) error {
	recs, err := tenanthandler.Instance.List()
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения списка тенантов")
	}
	list := make([]tenantapimodels.TenantView, 0, len(recs))
	for _, rec := range recs {
		list = append(list, tenantapimodels.TenantConvert(rec))
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(list))
}

// @Summary Создание тенанта
// @Tags Тенанты
// @Description Создание тенанта с политикой согласования по умолчанию
// @Param	body body	 tenantapimodels.CreateRequest	true	"request body"
// @Success 200 {object} apimodels.Response{data=string}
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/tenants [post]
func (c *tenantApiController) create(ctx *fiber.Ctx) error {
	var payload tenantapimodels.CreateRequest
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	id, err := tenanthandler.Instance.Create(payload.Name, payload.ExternalID)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка создания тенанта")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(id))
}

// @Summary Получение по ИД
// @Tags Тенанты
// @Description Карточка тенанта
// @Param   id          		path    string  				    	true         "rec ID"
// @Success 200 {object} apimodels.Response{data=tenantapimodels.TenantView}
// @Failure 400 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/tenants/{id} [get]
func (c *tenantApiController) get(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	rec, err := tenanthandler.Instance.GetByID(id)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения тенанта")
	}
	if rec == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(apimodels.NewError("тенант не найден"))
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(tenantapimodels.TenantConvert(*rec)))
}

// @Summary Настройки тенанта
// @Tags Тенанты
// @Description Настройки политики согласования, площадки и симуляции
// @Param   id          		path    string  				    	true         "rec ID"
// @Success 200 {object} apimodels.Response{data=[]tenantapimodels.SettingView}
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/tenants/{id}/settings [get]
func (c *tenantApiController) settings(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	recs, err := tenanthandler.Instance.GetSettings(id)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения настроек тенанта")
	}
	list := make([]tenantapimodels.SettingView, 0, len(recs))
	for _, rec := range recs {
		list = append(list, tenantapimodels.SettingConvert(rec))
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(list))
}

// @Summary Обновление настройки
// @Tags Тенанты
// @Description Обновление значения настройки тенанта по коду
// @Param	body body	 tenantapimodels.SettingData	true	"request body"
// @Param   id          		path    string  				    	true         "rec ID"
// @Success 200 {object} apimodels.Response
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/tenants/{id}/settings [put]
func (c *tenantApiController) updateSetting(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload tenantapimodels.SettingData
	if err = c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err = payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err = tenanthandler.Instance.UpdateSettingValue(id, payload.Code, payload.Value); err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка обновления настройки тенанта")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(nil))
}
