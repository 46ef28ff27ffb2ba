package apiv1

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"adops-backend/controllers"
	mediabuyhandler "adops-backend/lib/media-buy"
	"adops-backend/middleware"
	apimodels "adops-backend/models/api"
	mediabuyapimodels "adops-backend/models/api/mediabuy"
)

type mediaBuyApiController struct {
	controllers.BaseAPIController
}

func InitMediaBuyApiRouters(app *fiber.App) {
	controller := mediaBuyApiController{}
	app.Route("media_buys", func(router fiber.Router) {
		router.Post("list", controller.list)
		router.Post("", controller.manualCreate)
		router.Get(":id", controller.get)
	})
}

// @Summary Список закупок
// @Tags Закупки
// @Description Список закупок тенанта с фильтром и пагинацией
// @Param   X-Tenant-ID		header		string	true	"Tenant ID"
// @Param	body body	 mediabuyapimodels.MediaBuyFilter	true	"request body"
// @Success 200 {object} apimodels.ScrollerResponse{data=[]mediabuyapimodels.MediaBuyView}
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/media_buys/list [post]
func (c *mediaBuyApiController) list(ctx *fiber.Ctx) error {
	var payload mediabuyapimodels.MediaBuyFilter
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	tenantID := middleware.GetTenantID(ctx)
	list, rowCount, err := mediabuyhandler.Instance.List(tenantID, payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения списка закупок")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewScrollerResponse(list, rowCount))
}

// @Summary Регистрация ручной закупки
// @Tags Закупки
// @Description Регистрация закупки, заведённой на площадке вручную, минуя адаптер
// @Param   X-Tenant-ID		header		string	true	"Tenant ID"
// @Param	body body	 mediabuyapimodels.ManualCreateRequest	true	"request body"
// @Success 200 {object} apimodels.Response{data=mediabuyapimodels.MediaBuyView}
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/media_buys [post]
func (c *mediaBuyApiController) manualCreate(ctx *fiber.Ctx) error {
	var payload mediabuyapimodels.ManualCreateRequest
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	tenantID := middleware.GetTenantID(ctx)
	resp, err := mediabuyhandler.Instance.ManualCreate(tenantID, payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка регистрации закупки")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(resp))
}

// @Summary Получение по ИД
// @Tags Закупки
// @Description Карточка закупки со снимком доставки
// @Param   X-Tenant-ID		header		string	true	"Tenant ID"
// @Param   id          		path    string  				    	true         "rec ID"
// @Success 200 {object} apimodels.Response{data=mediabuyapimodels.MediaBuyView}
// @Failure 400 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/media_buys/{id} [get]
func (c *mediaBuyApiController) get(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	tenantID := middleware.GetTenantID(ctx)
	resp, err := mediabuyhandler.Instance.GetByID(tenantID, id)
	if err != nil {
		if errors.Is(err, mediabuyhandler.ErrMediaBuyNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(apimodels.NewError(err.Error()))
		}
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения закупки")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(resp))
}
