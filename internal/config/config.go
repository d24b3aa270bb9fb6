package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Webservice   WebserviceConfig   `mapstructure:"webservice"`
	Emission     EmissionConfig     `mapstructure:"emission"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logger       LoggerConfig       `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// WebserviceConfig holds municipal webservice configuration. The envelope tags
// vary per jurisdiction, so they live here instead of in code.
type WebserviceConfig struct {
	URL            string        `mapstructure:"url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	SendEnvelope   string        `mapstructure:"send_envelope"`
	CancelEnvelope string        `mapstructure:"cancel_envelope"`
	QueryEnvelope  string        `mapstructure:"query_envelope"`
}

// EmissionConfig holds invoice emission defaults
type EmissionConfig struct {
	DefaultSeries string `mapstructure:"default_series"`
	ProviderTaxID string `mapstructure:"provider_tax_id"`
}

// NotificationConfig holds mail API configuration
type NotificationConfig struct {
	APIURL     string        `mapstructure:"api_url"`
	APIToken   string        `mapstructure:"api_token"`
	SenderName string        `mapstructure:"sender_name"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/nfse.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	viper.SetDefault("webservice.timeout", 30*time.Second)
	viper.SetDefault("webservice.send_envelope", "EnviarLoteRpsEnvio")
	viper.SetDefault("webservice.cancel_envelope", "CancelarNfseEnvio")
	viper.SetDefault("webservice.query_envelope", "ConsultarLoteRpsEnvio")

	viper.SetDefault("emission.default_series", "A")

	viper.SetDefault("notification.sender_name", "Academia")
	viper.SetDefault("notification.timeout", 15*time.Second)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("webservice.url", "NFSE_WEBSERVICE_URL")
	viper.BindEnv("emission.provider_tax_id", "NFSE_PROVIDER_TAX_ID")
	viper.BindEnv("notification.api_url", "MAIL_API_URL")
	viper.BindEnv("notification.api_token", "MAIL_API_TOKEN")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Webservice.URL == "" {
		return fmt.Errorf("webservice.url is required")
	}
	if c.Emission.ProviderTaxID == "" {
		return fmt.Errorf("emission.provider_tax_id is required")
	}
	if c.Notification.APIURL == "" {
		return fmt.Errorf("notification.api_url is required")
	}
	return nil
}
