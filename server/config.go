package chserver

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/hashicorp/go-multierror"
	"github.com/jpillora/requestlog"

	"github.com/openrport/userd/share/logger"
)

const (
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 8080
	DefaultMaxRequestBytes = 10 * 1024 // 10 KB
	DefaultShutdownTimeout = 5 * time.Second

	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

type ServerConfig struct {
	Host            string        `mapstructure:"address"`
	Port            int           `mapstructure:"port"`
	MaxRequestBytes int64         `mapstructure:"max_request_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CertFile        string        `mapstructure:"cert_file"`
	KeyFile         string        `mapstructure:"key_file"`
}

// TLSEnabled reports whether the API is served over HTTPS.
func (c ServerConfig) TLSEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

type APIConfig struct {
	CORSOrigins      []string `mapstructure:"cors_origins"`
	EnableRequestLog bool     `mapstructure:"enable_request_log"`
	AccessLogFile    string   `mapstructure:"access_log_file"`
}

type LogConfig struct {
	LogOutput logger.LogOutput `mapstructure:"log_file"`
	LogLevel  logger.LogLevel  `mapstructure:"log_level"`
}

type StorageConfig struct {
	Driver          string `mapstructure:"driver"`
	RecoverPoisoned bool   `mapstructure:"recover_poisoned"`
	Seed            bool   `mapstructure:"seed"`
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LogConfig     `mapstructure:"logging"`
	API     APIConfig     `mapstructure:"api"`
	Storage StorageConfig `mapstructure:"storage"`
}

func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

func (c *Config) InitRequestLogOptions() *requestlog.Options {
	o := requestlog.DefaultOptions
	if c.Logging.LogOutput.File != nil {
		o.Writer = c.Logging.LogOutput.File
	}
	o.Filter = func(r *http.Request, code int, duration time.Duration, size int64) bool {
		return c.Logging.LogLevel == logger.LogLevelInfo || c.Logging.LogLevel == logger.LogLevelDebug
	}
	return &o
}

// ParseAndValidate fills in defaults and reports every invalid setting at once.
func (c *Config) ParseAndValidate() error {
	var errs *multierror.Error

	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = multierror.Append(errs, fmt.Errorf("server.port: %d is out of range [0, 65535]", c.Server.Port))
	}
	if c.Server.MaxRequestBytes == 0 {
		c.Server.MaxRequestBytes = DefaultMaxRequestBytes
	}
	if c.Server.MaxRequestBytes < 0 {
		errs = multierror.Append(errs, fmt.Errorf("server.max_request_bytes: must be positive, got %d", c.Server.MaxRequestBytes))
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		errs = multierror.Append(errs, errors.New("server.cert_file and server.key_file: both must be set to enable TLS"))
	}
	if c.Server.CertFile != "" {
		if _, err := os.Stat(c.Server.CertFile); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("server.cert_file: %w", err))
		}
	}
	if c.Server.KeyFile != "" {
		if _, err := os.Stat(c.Server.KeyFile); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("server.key_file: %w", err))
		}
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageMemory
	}
	switch c.Storage.Driver {
	case StorageMemory, StorageSQLite:
	default:
		errs = multierror.Append(errs, fmt.Errorf("storage.driver: unknown driver %q, use %q or %q", c.Storage.Driver, StorageMemory, StorageSQLite))
	}

	for _, origin := range c.API.CORSOrigins {
		if origin != "*" && !govalidator.IsRequestURL(origin) {
			errs = multierror.Append(errs, fmt.Errorf("api.cors_origins: invalid origin %q", origin))
		}
	}

	return errs.ErrorOrNil()
}
