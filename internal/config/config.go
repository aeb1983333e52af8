package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DeliveryLogPostgres = "postgres"
	DeliveryLogSupabase = "supabase"
)

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	Address  string `koanf:"address" validate:"required"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type RabbitMQConfig struct {
	URL          string `koanf:"url"`
	ExchangeName string `koanf:"exchange_name"`
	ExchangeType string `koanf:"exchange_type"`
	RoutingKey   string `koanf:"routing_key"`
}

type ServerConfig struct {
	Port               string        `koanf:"port" validate:"required"`
	ReadTimeout        time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout       time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout        time.Duration `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string      `koanf:"cors_allowed_origins" validate:"required"`
	LogLevel           string        `koanf:"log_level"`
	MaxUploadBytes     int64         `koanf:"max_upload_bytes" validate:"gt=0"`
}

type SupabaseConfig struct {
	URL         string        `koanf:"url" validate:"omitempty,url"`
	ServiceKey  string        `koanf:"service_key"`
	TryOnBucket string        `koanf:"tryon_bucket"`
	Timeout     time.Duration `koanf:"timeout"`
}

type ExpoConfig struct {
	Endpoint    string        `koanf:"endpoint" validate:"required,url"`
	AccessToken string        `koanf:"access_token"`
	BatchSize   int           `koanf:"batch_size" validate:"gt=0,lte=100"`
	Workers     int           `koanf:"workers" validate:"gt=0"`
	Timeout     time.Duration `koanf:"timeout" validate:"required"`
	DisplayName string        `koanf:"display_name" validate:"required"`
	AndroidIcon string        `koanf:"android_icon"`
}

type FalConfig struct {
	APIKey   string        `koanf:"api_key"`
	Endpoint string        `koanf:"endpoint" validate:"required,url"`
	Timeout  time.Duration `koanf:"timeout" validate:"required"`
}

type WeatherConfig struct {
	APIKey   string        `koanf:"api_key"`
	Endpoint string        `koanf:"endpoint" validate:"required,url"`
	Timeout  time.Duration `koanf:"timeout" validate:"required"`
}

type AdminConfig struct {
	Email        string        `koanf:"email"`
	PasswordHash string        `koanf:"password_hash"`
	SessionTTL   time.Duration `koanf:"session_ttl" validate:"required"`
}

type DeliveryLogConfig struct {
	Store string `koanf:"store" validate:"oneof=postgres supabase"`
}

type Config struct {
	Database    DatabaseConfig    `koanf:"database"`
	Redis       RedisConfig       `koanf:"redis"`
	RabbitMQ    RabbitMQConfig    `koanf:"rabbitmq"`
	Server      ServerConfig      `koanf:"server"`
	Supabase    SupabaseConfig    `koanf:"supabase"`
	Expo        ExpoConfig        `koanf:"expo"`
	Fal         FalConfig         `koanf:"fal"`
	Weather     WeatherConfig     `koanf:"weather"`
	Admin       AdminConfig       `koanf:"admin"`
	DeliveryLog DeliveryLogConfig `koanf:"delivery_log"`
}

var defaults = map[string]any{
	"server.port":                 "8000",
	"server.read_timeout":         15 * time.Second,
	"server.write_timeout":        330 * time.Second,
	"server.idle_timeout":         60 * time.Second,
	"server.cors_allowed_origins": "https://modli.mekanizma.com,http://localhost:8081,http://localhost:19006",
	"server.log_level":            "info",
	"server.max_upload_bytes":     int64(10 << 20),

	"database.port":               5432,
	"database.ssl_mode":           "disable",
	"database.max_open_conns":     10,
	"database.max_idle_conns":     2,
	"database.conn_max_lifetime":  time.Hour,
	"database.conn_max_idle_time": 30 * time.Minute,

	"supabase.tryon_bucket": "wardrobe",
	"supabase.timeout":      30 * time.Second,

	"expo.endpoint":     "https://exp.host/--/api/v2/push/send",
	"expo.batch_size":   90,
	"expo.workers":      1,
	"expo.timeout":      20 * time.Second,
	"expo.display_name": "Modli",
	"expo.android_icon": "notification_icon",

	"fal.endpoint": "https://fal.run/fal-ai/image-apps-v2/virtual-try-on",
	"fal.timeout":  300 * time.Second,

	"weather.endpoint": "https://api.openweathermap.org/data/2.5/weather",
	"weather.timeout":  10 * time.Second,

	"admin.session_ttl": 12 * time.Hour,

	"delivery_log.store": DeliveryLogPostgres,

	"rabbitmq.exchange_name": "modli.notifications",
	"rabbitmq.exchange_type": "topic",
	"rabbitmq.routing_key":   "delivery.logged",
}

// legacyKeys maps the flat variable names used by earlier deployments.
var legacyKeys = map[string]string{
	"fal_key":                   "fal.api_key",
	"openweather_api_key":       "weather.api_key",
	"allowed_origins":           "server.cors_allowed_origins",
	"supabase_url":              "supabase.url",
	"supabase_service_role_key": "supabase.service_key",
	"expo_access_token":         "expo.access_token",
}

// envKey lower-cases the variable and uses "__" as the section delimiter,
// so SERVER__PORT becomes server.port. Unrelated variables are skipped.
func envKey(s string) string {
	key := strings.ToLower(s)
	if alias, ok := legacyKeys[key]; ok {
		return alias
	}
	if !strings.Contains(key, "__") {
		return ""
	}
	return strings.ReplaceAll(key, "__", ".")
}

func LoadConfig() (*Config, error) {
	return LoadConfigFrom(".env")
}

func LoadConfigFrom(envFile string) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("error setting default %s: %w", key, err)
		}
	}

	// .env is optional; real environment variables override it
	if _, err := os.Stat(envFile); err == nil {
		if err := k.Load(file.Provider(envFile), dotenv.ParserEnv("", ".", envKey)); err != nil {
			return nil, fmt.Errorf("error loading %s file: %w", envFile, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading %s file: %w", envFile, err)
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var config Config
	sections := []struct {
		path   string
		target any
	}{
		{"database", &config.Database},
		{"redis", &config.Redis},
		{"rabbitmq", &config.RabbitMQ},
		{"server", &config.Server},
		{"supabase", &config.Supabase},
		{"expo", &config.Expo},
		{"fal", &config.Fal},
		{"weather", &config.Weather},
		{"admin", &config.Admin},
		{"delivery_log", &config.DeliveryLog},
	}
	for _, s := range sections {
		if err := k.Unmarshal(s.path, s.target); err != nil {
			return nil, fmt.Errorf("error unmarshaling %s config: %w", s.path, err)
		}
	}

	for i, origin := range config.Server.CORSAllowedOrigins {
		config.Server.CORSAllowedOrigins[i] = strings.TrimSpace(origin)
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if config.DeliveryLog.Store == DeliveryLogSupabase && !config.Supabase.Enabled() {
		return nil, fmt.Errorf("invalid config: delivery_log.store=supabase requires supabase.url and supabase.service_key")
	}

	return &config, nil
}

// GetDatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func (c *SupabaseConfig) Enabled() bool {
	return c.URL != "" && c.ServiceKey != ""
}

func (c *RabbitMQConfig) Enabled() bool {
	return c.URL != ""
}

func (c *AdminConfig) Enabled() bool {
	return c.Email != "" && c.PasswordHash != ""
}
