package apiv1

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"adops-backend/controllers"
	xlsexport "adops-backend/lib/export/xls"
	taskhandler "adops-backend/lib/task"
	"adops-backend/middleware"
	apimodels "adops-backend/models/api"
	taskapimodels "adops-backend/models/api/task"
)

type taskApiController struct {
	controllers.BaseAPIController
}

func InitTaskApiRouters(app *fiber.App) {
	controller := taskApiController{}
	app.Route("tasks", func(router fiber.Router) {
		router.Post("list", controller.list)
		router.Post("export", controller.export)
		router.Route(":id", func(idRoute fiber.Router) {
			idRoute.Get("", controller.get)
			idRoute.Get("history", controller.history)
			idRoute.Put("resolve", controller.resolve)
		})
	})
}

// @Summary Список задач
// @Tags Задачи
// @Description Список задач согласования с фильтром и пагинацией, фоновые задачи не показываются
// @Param   X-Tenant-ID		header		string	true	"Tenant ID"
// @Param	body body	 taskapimodels.TaskFilter	true	"request body"
// @Success 200 {object} apimodels.ScrollerResponse{data=[]taskapimodels.TaskView}
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/tasks/list [post]
func (c *taskApiController) list(ctx *fiber.Ctx) error {
	var payload taskapimodels.TaskFilter
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	tenantID := middleware.GetTenantID(ctx)
	list, rowCount, err := taskhandler.Instance.List(tenantID, payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения списка задач")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewScrollerResponse(list, rowCount))
}

// @Summary Выгрузка задач в Excel
// @Tags Задачи
// @Description Выгрузка списка задач в xlsx по фильтру
// @Param   X-Tenant-ID		header		string	true	"Tenant ID"
// @Param	body body	 taskapimodels.TaskFilter	true	"request body"
// @Success 200
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/tasks/export [post]
func (c *taskApiController) export(ctx *fiber.Ctx) error {
	var payload taskapimodels.TaskFilter
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	tenantID := middleware.GetTenantID(ctx)
	payload.Limit = 1000
	list, _, err := taskhandler.Instance.List(tenantID, payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения списка задач для выгрузки в Excel")
	}
	data, err := xlsexport.Instance.ExportTaskList(list)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка выгрузки списка задач в Excel")
	}
	fileName := fmt.Sprintf("tasks-%v.xlsx", time.Now().Format("20060102-150405"))
	ctx.Set("Content-Type", "application/vnd.ms-excel")
	ctx.Set(fiber.HeaderContentDisposition, `attachment; filename="`+fileName+`"`)
	return ctx.SendStream(data)
}

// @Summary Получение по ИД
// @Tags Задачи
// @Description Карточка задачи с описанием операции и сроком реакции
// @Param   X-Tenant-ID		header		string	true	"Tenant ID"
// @Param   id          		path    string  				    	true         "rec ID"
// @Success 200 {object} apimodels.Response{data=taskapimodels.TaskView}
// @Failure 400 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/tasks/{id} [get]
func (c *taskApiController) get(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	tenantID := middleware.GetTenantID(ctx)
	resp, err := taskhandler.Instance.GetByID(tenantID, id)
	if err != nil {
		if errors.Is(err, taskhandler.ErrTaskNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(apimodels.NewError(err.Error()))
		}
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения задачи")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(resp))
}

// @Summary История задачи
// @Tags Задачи
// @Description Журнал событий задачи: создание, решение, исполнение, опрос
// @Param   X-Tenant-ID		header		string	true	"Tenant ID"
// @Param   id          		path    string  				    	true         "rec ID"
// @Success 200 {object} apimodels.Response{data=[]taskapimodels.AuditView}
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/tasks/{id}/history [get]
func (c *taskApiController) history(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	tenantID := middleware.GetTenantID(ctx)
	resp, err := taskhandler.Instance.History(tenantID, id)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения истории задачи")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(resp))
}

// @Summary Решение по задаче
// @Tags Задачи
// @Description Согласование или отклонение задачи; повторное решение возвращает сохранённый результат
// @Param   X-Tenant-ID		header		string	true	"Tenant ID"
// @Param   X-User-ID		header		string	true	"User ID"
// @Param	body body	 taskapimodels.ResolveRequest	true	"request body"
// @Param   id          		path    string  				    	true         "rec ID"
// @Success 200 {object} apimodels.Response{data=taskapimodels.TaskView}
// @Failure 400 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/tasks/{id}/resolve [put]
func (c *taskApiController) resolve(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload taskapimodels.ResolveRequest
	if err = c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err = payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	tenantID := middleware.GetTenantID(ctx)
	userID := middleware.GetUserID(ctx)
	resp, err := taskhandler.Instance.Resolve(ctx.UserContext(), tenantID, id, userID, payload)
	if err != nil {
		if errors.Is(err, taskhandler.ErrTaskNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(apimodels.NewError(err.Error()))
		}
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка решения по задаче")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(resp))
}
