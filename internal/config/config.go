package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535

	defaultMaxAttempts     = 5
	defaultExpiryMinutes   = 15
	defaultPollInterval    = 30 * time.Second
	defaultQueueSize       = 64
	defaultMetricsInterval = time.Minute
	defaultShutdownTimeout = 30 * time.Second
)

// Environment variables that override secrets from the YAML file.
const (
	EnvDatabasePassword = "DB_PASSWORD"
	EnvRabbitMQPassword = "RABBITMQ_PASSWORD"
	EnvSMTPPassword     = "SMTP_PASSWORD"
	EnvSigningSecret    = "INVITATION_SIGNING_SECRET"
)

// Config represents the complete application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	RabbitMQ     RabbitMQConfig     `yaml:"rabbitmq"`
	Logging      LoggingConfig      `yaml:"logging"`
	App          AppConfig          `yaml:"app"`
	Worker       WorkerConfig       `yaml:"worker"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Invitation   InvitationConfig   `yaml:"invitation"`
	Mail         MailConfig         `yaml:"mail"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	Tag           string `yaml:"tag"`
	PrefetchCount int    `yaml:"prefetch_count"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig sizes the orchestration pool
type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	QueueSize       int           `yaml:"queue_size"`
	RunTimeout      time.Duration `yaml:"run_timeout"`
	MetricsInterval time.Duration `yaml:"metrics_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// OrchestratorConfig controls the sequential offer loop
type OrchestratorConfig struct {
	MaxAttempts          int           `yaml:"max_attempts"`
	PollInterval         time.Duration `yaml:"poll_interval"`
	DefaultExpiryMinutes int           `yaml:"default_expiry_minutes"`
}

// InvitationConfig holds the response link settings
type InvitationConfig struct {
	BaseURL       string `yaml:"base_url"`
	SigningSecret string `yaml:"signing_secret"`
}

// MailConfig holds SMTP delivery settings
type MailConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	From     string        `yaml:"from"`
	TLS      bool          `yaml:"tls"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Load reads and parses the configuration file, then applies defaults and
// environment overrides.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	config.applyEnv(os.Getenv)

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Orchestrator.MaxAttempts == 0 {
		c.Orchestrator.MaxAttempts = defaultMaxAttempts
	}
	if c.Orchestrator.PollInterval == 0 {
		c.Orchestrator.PollInterval = defaultPollInterval
	}
	if c.Orchestrator.DefaultExpiryMinutes == 0 {
		c.Orchestrator.DefaultExpiryMinutes = defaultExpiryMinutes
	}
	if c.Worker.QueueSize == 0 {
		c.Worker.QueueSize = defaultQueueSize
	}
	if c.Worker.MetricsInterval == 0 {
		c.Worker.MetricsInterval = defaultMetricsInterval
	}
	if c.Worker.ShutdownTimeout == 0 {
		c.Worker.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaultShutdownTimeout
	}
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvDatabasePassword); v != "" {
		c.Database.Password = v
	}
	if v := getenv(EnvRabbitMQPassword); v != "" {
		c.RabbitMQ.Password = v
	}
	if v := getenv(EnvSMTPPassword); v != "" {
		c.Mail.Password = v
	}
	if v := getenv(EnvSigningSecret); v != "" {
		c.Invitation.SigningSecret = v
	}
}

// Validate checks the infrastructure shared by both services
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	return nil
}

// ValidateAPIConfig checks the settings the API service needs
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.Validate(); err != nil {
		return err
	}

	if err := c.validateInvitation(); err != nil {
		return err
	}

	return c.validateMail()
}

// ValidateWorkerConfig checks the settings the worker service needs
func (c *Config) ValidateWorkerConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.QueueSize <= 0 {
		return fmt.Errorf("worker queue_size must be greater than 0")
	}

	if c.Worker.RunTimeout < 0 {
		return fmt.Errorf("worker run_timeout must not be negative")
	}

	if c.Orchestrator.MaxAttempts <= 0 {
		return fmt.Errorf("orchestrator max_attempts must be greater than 0")
	}

	if c.Orchestrator.PollInterval <= 0 {
		return fmt.Errorf("orchestrator poll_interval must be greater than 0")
	}

	if c.Orchestrator.DefaultExpiryMinutes <= 0 {
		return fmt.Errorf("orchestrator default_expiry_minutes must be greater than 0")
	}

	if err := c.validateInvitation(); err != nil {
		return err
	}

	return c.validateMail()
}

func (c *Config) validateInvitation() error {
	if c.Invitation.SigningSecret == "" {
		return fmt.Errorf("invitation signing_secret is required")
	}

	u, err := url.Parse(c.Invitation.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid invitation base_url: %q", c.Invitation.BaseURL)
	}

	return nil
}

func (c *Config) validateMail() error {
	if c.Mail.Host == "" {
		return fmt.Errorf("mail host is required")
	}

	if c.Mail.Port < MinPort || c.Mail.Port > MaxPort {
		return fmt.Errorf("invalid mail port: %d (must be between %d and %d)", c.Mail.Port, MinPort, MaxPort)
	}

	if c.Mail.From == "" {
		return fmt.Errorf("mail from address is required")
	}

	return nil
}
