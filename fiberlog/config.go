package fiberlog

import "github.com/sirupsen/logrus"

// Config настройки middleware журналирования
type Config struct {
	// Logger целевой логгер, nil означает стандартный логгер logrus
	Logger *logrus.Logger
	// Tags поля, попадающие в каждую запись
	Tags []string
}

var ConfigDefault = Config{
	Tags: []string{
		TagStatus,
		TagLatency,
		TagMethod,
		TagPath,
	},
}
