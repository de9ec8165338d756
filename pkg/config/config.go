package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       Server     `mapstructure:"server"`
	Postgres     Postgres   `mapstructure:"postgres"`
	Bus          Bus        `mapstructure:"bus"`
	Dispatcher   Dispatcher `mapstructure:"dispatcher"`
	Retention    Retention  `mapstructure:"retention"`
	HTTPClient   HTTPClient `mapstructure:"httpClient"`
	LoggingLevel string     `mapstructure:"logging-level"`
}

type Server struct {
	Port          string `mapstructure:"port"`
	SwaggerUrl    string `mapstructure:"swagger_json"`
	SwaggerHost   string `mapstructure:"swagger_host"`
	SwaggerSchema string `mapstructure:"swagger_schema"`
	BodyLimit     int    `mapstructure:"body_limit"`
}

type Postgres struct {
	ConnString     string `mapstructure:"conn_string"`
	MaxConnections int32  `mapstructure:"max_connections"`
}

type Bus struct {
	MaxPayloadBytes int `mapstructure:"maxPayloadBytes"` // лимит размера payload при публикации
	MaxPollItems    int `mapstructure:"maxPollItems"`    // верхняя граница max в Poll
	// Видимость вытянутой, но не подтверждённой pull-доставки:
	// до истечения lease элемент не возвращается повторным Poll
	PollVisibility time.Duration `mapstructure:"pollVisibility"`
	// Публиковать ли critical-событие delivery_dead_lettered при уходе доставки в dead letter
	DeadLetterEvents bool `mapstructure:"deadLetterEvents"`
}

type Dispatcher struct {
	Workers        int           `mapstructure:"workers"`
	BatchSize      int           `mapstructure:"batchSize"`
	Lease          time.Duration `mapstructure:"lease"`
	PollPeriod     time.Duration `mapstructure:"pollPeriod"`
	MaxRetries     int           `mapstructure:"maxRetries"`     // ceiling ретраев, по умолчанию 3
	AttemptTimeout time.Duration `mapstructure:"attemptTimeout"` // таймаут одной push-попытки, по умолчанию 10s
}

type Retention struct {
	Schedule string `mapstructure:"schedule"` // Расписание в формате cron (например, "0 3 * * *")
	Interval string `mapstructure:"interval"` // Интервал в формате "@every 1h"
	// Приоритет: если указан Schedule, используется он, иначе Interval
}

type HTTPClient struct {
	//конфиг клиента
	ConnectTimeout        time.Duration `mapstructure:"connectTimeout"`        // TCP коннект
	TLSHandshakeTimeout   time.Duration `mapstructure:"TLSHandshakeTimeout"`   // TLS рукопожатие
	ResponseHeaderTimeout time.Duration `mapstructure:"responseHeaderTimeout"` // ожидание заголовков ответа
	ExpectContinueTimeout time.Duration `mapstructure:"expectContinueTimeout"` // 100-continue

	// Пул соединений
	IdleConnTimeout     time.Duration `mapstructure:"idleConnTimeout"`
	MaxIdleConns        int           `mapstructure:"maxIdleConns"`
	MaxIdleConnsPerHost int           `mapstructure:"maxIdleConnsPerHost"`
	MaxConnsPerHost     int           `mapstructure:"maxConnsPerHost"`
	KeepAlives          bool          `mapstructure:"keepAlives"`

	// Общий таймаут клиента. 0 — контролируем дедлайном через context.
	ClientTimeout time.Duration `mapstructure:"clientTimeout"`

	// Прочее
	UserAgent string `mapstructure:"userAgent"`

	// SSL/TLS настройки
	InsecureSkipVerify bool `mapstructure:"insecureSkipVerify"` // отключить проверку SSL сертификатов
}

func NewConfig() (Config, error) {
	viper.AutomaticEnv()
	// Настраиваем замену точек и дефисов на подчеркивания для переменных окружения
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	setDefaults()

	var conf Config
	err := viper.ReadInConfig() // Find and read the config file
	// Игнорируем ошибку, если файл не найден - используем только переменные окружения
	if err != nil {
		// Если это не ошибка "файл не найден", возвращаем её
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return conf, err
		}
	}

	// unmarshal
	err = viper.Unmarshal(&conf)

	return conf, err
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")

	viper.SetDefault("bus.maxPayloadBytes", 256*1024)
	viper.SetDefault("bus.maxPollItems", 100)
	viper.SetDefault("bus.pollVisibility", 30*time.Second)
	viper.SetDefault("bus.deadLetterEvents", false)

	viper.SetDefault("dispatcher.workers", 4)
	viper.SetDefault("dispatcher.batchSize", 50)
	viper.SetDefault("dispatcher.lease", 30*time.Second)
	viper.SetDefault("dispatcher.pollPeriod", 500*time.Millisecond)
	viper.SetDefault("dispatcher.maxRetries", 3)
	viper.SetDefault("dispatcher.attemptTimeout", 10*time.Second)

	viper.SetDefault("retention.interval", "@every 1h")
}
