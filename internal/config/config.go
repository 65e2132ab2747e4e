package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"gopkg.in/yaml.v3"
)

// Config represents the service configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	API         APIConfig         `yaml:"api"`
	TR069       TR069Config       `yaml:"tr069"`
	Database    DatabaseConfig    `yaml:"database"`
	NATS        NATSConfig        `yaml:"nats"`
	JWT         JWTConfig         `yaml:"jwt"`
	Log         LogConfig         `yaml:"log"`
	Status      StatusConfig      `yaml:"status"`
	Policy      PolicyConfig      `yaml:"policy"`
	Integration IntegrationConfig `yaml:"integration"`
	Operators   []OperatorConfig  `yaml:"operators"`
}

// ServerConfig represents server identity
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig represents the fleet REST API listener
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// TR069Config represents the CWMP endpoint listener
type TR069Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// DatabaseConfig represents database configuration. An empty DSN keeps
// history in memory.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL               string        `yaml:"url"`
	ClientID          string        `yaml:"client_id"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	SubjectPrefix     string        `yaml:"subject_prefix"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret          string        `yaml:"secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StatusConfig represents the fleet status reporter
type StatusConfig struct {
	ReportInterval    time.Duration `yaml:"report_interval"`
	DisconnectTimeout time.Duration `yaml:"disconnect_timeout"`
	GPSCacheFile      string        `yaml:"gps_cache_file"`
}

// PolicyConfig represents the spectrum policy service client
type PolicyConfig struct {
	Enabled bool          `yaml:"enabled"`
	Subject string        `yaml:"subject"`
	Timeout time.Duration `yaml:"timeout"`
}

// IntegrationConfig represents outbound status forwarding
type IntegrationConfig struct {
	MQTT MQTTConfig `yaml:"mqtt"`
	HTTP HTTPConfig `yaml:"http"`
}

// MQTTConfig represents the MQTT status forwarder
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

// HTTPConfig represents the HTTP status forwarder
type HTTPConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Timeout time.Duration     `yaml:"timeout"`
}

// OperatorConfig is an API login. PasswordHash is a bcrypt hash.
type OperatorConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
	Role         string `yaml:"role"`
}

// Load loads configuration from file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes configuration, applies environment overrides and defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}

	if gpsFile := os.Getenv("ENODEBD_GPS_CACHE_FILE"); gpsFile != "" {
		c.Status.GPSCacheFile = gpsFile
	}

	if port := os.Getenv("ENODEBD_TR069_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.TR069.Port = p
		} else {
			log.Warn().Str("value", port).Msg("Ignoring invalid ENODEBD_TR069_PORT")
		}
	}
}

func (c *Config) setDefaults() {
	if c.Server.Name == "" {
		c.Server.Name = "enodebd"
	}
	if c.API.Port == 0 {
		c.API.Port = 8090
	}
	if c.TR069.Port == 0 {
		c.TR069.Port = 48080
	}
	if c.TR069.Path == "" {
		c.TR069.Path = "/cwmp"
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "enodebd"
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = 10
	}
	if c.NATS.ReconnectInterval == 0 {
		c.NATS.ReconnectInterval = 2 * time.Second
	}
	if c.JWT.AccessTokenTTL == 0 {
		c.JWT.AccessTokenTTL = 15 * time.Minute
	}
	if c.JWT.RefreshTokenTTL == 0 {
		c.JWT.RefreshTokenTTL = 24 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Status.ReportInterval == 0 {
		c.Status.ReportInterval = time.Minute
	}
	if c.Status.DisconnectTimeout == 0 {
		c.Status.DisconnectTimeout = 5 * time.Minute
	}
	if c.Status.GPSCacheFile == "" {
		c.Status.GPSCacheFile = "/var/opt/magma/enodebd_gps_cache"
	}
	if c.Policy.Subject == "" {
		c.Policy.Subject = "policy.enodeb.request"
	}
	if c.Policy.Timeout == 0 {
		c.Policy.Timeout = 10 * time.Second
	}
	if c.Integration.MQTT.Topic == "" {
		c.Integration.MQTT.Topic = "enodebd/status"
	}
	if c.Integration.MQTT.ClientID == "" {
		c.Integration.MQTT.ClientID = "enodebd"
	}
	if c.Integration.HTTP.Timeout == 0 {
		c.Integration.HTTP.Timeout = 5 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Integration.MQTT.Enabled && c.Integration.MQTT.Broker == "" {
		return fmt.Errorf("mqtt forwarding enabled without broker")
	}
	if c.Integration.HTTP.Enabled && c.Integration.HTTP.URL == "" {
		return fmt.Errorf("http forwarding enabled without url")
	}
	if c.Integration.MQTT.QoS > 2 {
		return fmt.Errorf("invalid mqtt qos %d", c.Integration.MQTT.QoS)
	}
	if len(c.Operators) > 0 && c.JWT.Secret == "" {
		return fmt.Errorf("operators configured without jwt secret")
	}
	for _, op := range c.Operators {
		if op.Username == "" || op.PasswordHash == "" {
			return fmt.Errorf("operator entries need username and password_hash")
		}
	}
	return nil
}

// PrintConfigSummary prints the effective configuration
func (c *Config) PrintConfigSummary() {
	fmt.Printf("=== eNodeB ACS Configuration ===\n")
	fmt.Printf("Server: %s v%s\n", c.Server.Name, c.Server.Version)
	fmt.Printf("TR-069 endpoint: %s:%d%s\n", c.TR069.Host, c.TR069.Port, c.TR069.Path)
	fmt.Printf("API: %s:%d\n", c.API.Host, c.API.Port)
	if c.Database.DSN != "" {
		fmt.Printf("Database: postgres\n")
	} else {
		fmt.Printf("Database: in-memory\n")
	}
	if c.NATS.URL != "" {
		fmt.Printf("NATS: %s (prefix %s)\n", c.NATS.URL, c.NATS.SubjectPrefix)
	}
	fmt.Printf("Status report interval: %s (disconnect after %s)\n",
		c.Status.ReportInterval, c.Status.DisconnectTimeout)
	fmt.Printf("GPS cache: %s\n", c.Status.GPSCacheFile)
	fmt.Printf("Policy service: %v (subject %s, timeout %s)\n",
		c.Policy.Enabled, c.Policy.Subject, c.Policy.Timeout)
	fmt.Printf("MQTT forwarder: %v", c.Integration.MQTT.Enabled)
	if c.Integration.MQTT.Enabled {
		fmt.Printf(" (%s -> %s)", c.Integration.MQTT.Broker, c.Integration.MQTT.Topic)
	}
	fmt.Printf("\n")
	fmt.Printf("HTTP forwarder: %v\n", c.Integration.HTTP.Enabled)
	fmt.Printf("Operators: %d\n", len(c.Operators))
	fmt.Printf("================================\n")
}
