package initializers

import (
	"adops-backend/config"
	"adops-backend/lib/smtp"
)

// smtp необязателен: без настроек письма эскалации не отправляются
func InitSmtp() {
	err := smtp.Connect(config.Conf.Smtp.User, config.Conf.Smtp.Password,
		config.Conf.Smtp.Host, config.Conf.Smtp.Port, *config.Conf.Smtp.TLSEnabled)
	if err != nil {
		panic(err.Error())
	}
}
