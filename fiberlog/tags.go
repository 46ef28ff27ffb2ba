package fiberlog

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger tags
const (
	TagPid      = "pid"
	TagStatus   = "status"
	TagLatency  = "latency"
	TagMethod   = "method"
	TagPath     = "path"
	TagIP       = "ip"
	TagHost     = "host"
	TagUA       = "ua"
	TagQuery    = "query"
	TagBody     = "body"
	TagResBody  = "res_body"
	TagBytesIn  = "bytes_in"
	TagBytesOut = "bytes_out"
	RequestID   = "request_id"
)

// FuncTag вычисляет одно поле записи по контексту запроса
type FuncTag func(c *fiber.Ctx, d *reqData) interface{}

type reqData struct {
	pid   int
	start time.Time
	end   time.Time
}

var funcTagMap = map[string]FuncTag{
	TagPid: func(c *fiber.Ctx, d *reqData) interface{} {
		return d.pid
	},
	TagStatus: func(c *fiber.Ctx, d *reqData) interface{} {
		return c.Response().StatusCode()
	},
	TagLatency: func(c *fiber.Ctx, d *reqData) interface{} {
		return d.end.Sub(d.start).String()
	},
	TagMethod: func(c *fiber.Ctx, d *reqData) interface{} {
		return c.Method()
	},
	TagPath: func(c *fiber.Ctx, d *reqData) interface{} {
		return c.Path()
	},
	TagIP: func(c *fiber.Ctx, d *reqData) interface{} {
		return c.IP()
	},
	TagHost: func(c *fiber.Ctx, d *reqData) interface{} {
		return c.Hostname()
	},
	TagUA: func(c *fiber.Ctx, d *reqData) interface{} {
		return c.Get(fiber.HeaderUserAgent)
	},
	TagQuery: func(c *fiber.Ctx, d *reqData) interface{} {
		return string(c.Request().URI().QueryString())
	},
	TagBody: func(c *fiber.Ctx, d *reqData) interface{} {
		return string(c.Request().Body())
	},
	TagResBody: func(c *fiber.Ctx, d *reqData) interface{} {
		return string(c.Response().Body())
	},
	TagBytesIn: func(c *fiber.Ctx, d *reqData) interface{} {
		return strconv.Itoa(len(c.Request().Body()))
	},
	TagBytesOut: func(c *fiber.Ctx, d *reqData) interface{} {
		return strconv.Itoa(len(c.Response().Body()))
	},
	RequestID: func(c *fiber.Ctx, d *reqData) interface{} {
		return c.Get(fiber.HeaderXRequestID)
	},
}

// getFuncTagMap отбирает функции для настроенных тегов
func getFuncTagMap(cfg Config) map[string]FuncTag {
	result := make(map[string]FuncTag, len(cfg.Tags))
	for _, tag := range cfg.Tags {
		if ft, ok := funcTagMap[tag]; ok {
			result[tag] = ft
		}
	}
	return result
}
