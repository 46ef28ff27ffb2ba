package config

import (
	"github.com/gotify/configor"
)

var Conf *Configuration

type Configuration struct {
	App struct {
		ListenAddr string `default:"" env:"APP_HOST"`
		Port       int    `default:"8080"  env:"APP_PORT"`
		LogLevel   string `default:"info" env:"APP_LOG_LEVEL"`
	}
	Database struct {
		Host           string `default:"127.0.0.1" env:"DB_HOST"`
		Port           string `default:"5432" env:"DB_PORT"`
		Name           string `default:"adops" env:"DB_NAME"`
		User           string `default:"postgres" env:"DB_USER"`
		Password       string `default:"postgres" env:"DB_PASSWORD"`
		MigrateOnStart *bool  `default:"true" env:"DB_MIGRATE_ON_START"`
		DebugMode      *bool  `default:"false" env:"DB_DEBUG_MODE"`
	}
	Smtp struct {
		User       string `default:"" env:"SMTP_USER"`
		Password   string `default:"" env:"SMTP_PASSWORD"`
		Host       string `default:"" env:"SMTP_HOST"`
		Port       string `default:"" env:"SMTP_PORT"`
		TLSEnabled *bool  `default:"true" env:"SMTP_TLS_ENABLED"`
		FromEmail  string `default:"" env:"SMTP_FROM_EMAIL"`
	}
	Workflow struct {
		PollPeriodSec       int `default:"30" env:"WF_POLL_PERIOD_SEC"`         // период опроса статуса закупки
		PollTimeoutSec      int `default:"900" env:"WF_POLL_TIMEOUT_SEC"`       // максимальное время опроса до эскалации
		RecoveryPeriodSec   int `default:"30" env:"WF_RECOVERY_PERIOD_SEC"`     // период поиска потерянных задач опроса
		EscalationPeriodSec int `default:"300" env:"WF_ESCALATION_PERIOD_SEC"`  // период проверки просроченных задач
		ResolveWaitSec      int `default:"5" env:"WF_RESOLVE_WAIT_SEC"`         // ожидание блокировки при решении задачи
	}
	Webhook struct {
		Attempts       int `default:"3" env:"WEBHOOK_ATTEMPTS"`          // попыток доставки на событие
		RetryDelaySec  int `default:"2" env:"WEBHOOK_RETRY_DELAY_SEC"`   // пауза между попытками
		SendTimeoutSec int `default:"10" env:"WEBHOOK_SEND_TIMEOUT_SEC"` // таймаут http-запроса
		QueueSize      int `default:"256" env:"WEBHOOK_QUEUE_SIZE"`      // размер очереди отправки
	}
	Simulation struct {
		Enabled       *bool   `default:"true" env:"SIM_ENABLED"`
		Acceleration  float64 `default:"3600" env:"SIM_ACCELERATION"` // коэффициент ускорения времени
		TickPeriodSec int     `default:"1" env:"SIM_TICK_PERIOD_SEC"` // период пересчёта открутки
	}
}

func configFiles() []string {
	return []string{"config.yml"}
}

func InitConfig() {
	if Conf != nil {
		return
	}
	conf := new(Configuration)
	err := configor.New(&configor.Config{}).Load(conf, configFiles()...)
	if err != nil {
		panic(err)
	}
	Conf = conf
}
