package middleware

import (
	"github.com/gofiber/fiber/v2"

	apimodels "adops-backend/models/api"
)

// Идентификация вызывающей стороны: внешний шлюз проверяет подпись запроса
// и прокидывает идентификаторы заголовками, внутри сервиса им доверяем

const (
	HeaderTenantID    = "X-Tenant-ID"
	HeaderPrincipalID = "X-Principal-ID"
	HeaderUserID      = "X-User-ID"
)

func TenantRequired() fiber.Handler {
	return func(ctx *fiber.Ctx) (err error) {
		if GetTenantID(ctx) == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(apimodels.NewError("не указан тенант"))
		}
		return ctx.Next()
	}
}

func GetTenantID(ctx *fiber.Ctx) string {
	return ctx.Get(HeaderTenantID)
}

// GetPrincipalID принципал-покупатель, от имени которого пришла операция
func GetPrincipalID(ctx *fiber.Ctx) string {
	return ctx.Get(HeaderPrincipalID)
}

// GetUserID пользователь, решающий задачи согласования
func GetUserID(ctx *fiber.Ctx) string {
	return ctx.Get(HeaderUserID)
}
