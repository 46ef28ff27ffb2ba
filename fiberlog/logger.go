package fiberlog

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// Middleware журналирования запросов поверх logrus, набор полей задаётся тегами

func New(config ...Config) fiber.Handler {
	cfg := ConfigDefault
	if len(config) > 0 {
		cfg = config[0]
	}
	pid := os.Getpid()
	ftm := getFuncTagMap(cfg)
	return func(c *fiber.Ctx) error {
		d := &reqData{pid: pid, start: time.Now()}
		err := c.Next()
		d.end = time.Now()
		if c.Method() == fiber.MethodOptions {
			return err
		}
		fields := getLogrusFields(ftm, c, d)
		entry := log.WithFields(fields)
		if cfg.Logger != nil {
			entry = cfg.Logger.WithFields(fields)
		}
		if c.Response().StatusCode() >= 300 {
			entry.Warn("запрос api")
		} else {
			entry.Info("запрос api")
		}
		return err
	}
}

// getLogrusFields собирает поля записи, пустые строковые значения опускаются
func getLogrusFields(ftm map[string]FuncTag, c *fiber.Ctx, d *reqData) log.Fields {
	f := make(log.Fields)
	for k, ft := range ftm {
		value := ft(c, d)
		if strValue, ok := value.(string); ok {
			if strValue != "" {
				f[k] = strValue
			}
			continue
		}
		f[k] = value
	}
	return f
}
