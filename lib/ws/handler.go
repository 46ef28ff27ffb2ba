package ws

import (
	wsclient "adops-backend/lib/ws/client"
	connectionhub "adops-backend/lib/ws/hub/connection-hub"
	"adops-backend/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func InitWs(app *fiber.App) {
	app.Use("", func(ctx *fiber.Ctx) error {
		ctx.Locals("tenantID", middleware.GetTenantID(ctx))
		ctx.Locals("userID", middleware.GetUserID(ctx))
		return ctx.Next()
	})
	app.Get("/", websocket.New(supportHandler))
}

// @Summary Системные пуши
// @Tags Websocket Системные пуши
// @Description События задач и доставки для подключённых ревьюеров
// @Param   X-Tenant-ID		header		string		true		"Tenant ID"
// @Param   X-User-ID		header		string		true		"User ID"
// @Success 200 {object} wsmodels.ServerMessage
// @Failure 400
// @Failure 403
// @Failure 500
// @router /ws [get]
func supportHandler(c *websocket.Conn) {

	tenantID := c.Locals("tenantID").(string)
	userID := c.Locals("userID").(string)
	client := wsclient.NewClient(userID, c)
	connectionhub.Instance.AddClient(tenantID, userID, c)
	defer func() {
		connectionhub.Instance.DeleteClient(userID)
	}()
	client.Dispatch()
}
