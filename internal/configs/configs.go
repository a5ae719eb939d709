// Package configs contains the system configurations.
package configs

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

const (
	envDatabaseDSN = "CLINIC_DATABASE_DSN"
	envRedisAddr   = "CLINIC_REDIS_ADDR"
	envLogLevel    = "CLINIC_LOG_LEVEL"

	defaultCacheTTL = 5 * time.Minute
)

type configData struct {
	ServerPort      int32  `json:"port"`
	DatabaseDSN     string `json:"database_dsn"`
	DatabaseDriver  string `json:"database_driver"`
	PrivateKeyFile  string `json:"private_key_file"`
	RedisAddr       string `json:"redis_addr"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds"`
	TimeZone        string `json:"time_zone"`
	LogLevel        string `json:"log_level"`
}

// Config holds the system configuration.
type Config interface {
	ServerPort() int32
	DatabaseDSN() string
	DatabaseDriver() string
	PrivateKeyFile() string
	PrivateKey() rsa.PrivateKey

	// RedisAddr is the address of the availability cache. Empty disables the cache.
	RedisAddr() string
	CacheTTL() time.Duration

	// Location is the clinic time zone, used to bucket appointments into weekdays and hours.
	Location() *time.Location
	LogLevel() string
}

type defaultConfig struct {
	data       *configData
	privateKey *rsa.PrivateKey
	location   *time.Location
}

func (c *defaultConfig) ServerPort() int32 {
	return c.data.ServerPort
}

func (c *defaultConfig) DatabaseDSN() string {
	return c.data.DatabaseDSN
}

func (c *defaultConfig) DatabaseDriver() string {
	return c.data.DatabaseDriver
}

func (c *defaultConfig) PrivateKeyFile() string {
	return c.data.PrivateKeyFile
}

func (c *defaultConfig) PrivateKey() rsa.PrivateKey {
	return *c.privateKey
}

func (c *defaultConfig) RedisAddr() string {
	return c.data.RedisAddr
}

func (c *defaultConfig) CacheTTL() time.Duration {
	if c.data.CacheTTLSeconds <= 0 {
		return defaultCacheTTL
	}
	return time.Duration(c.data.CacheTTLSeconds) * time.Second
}

func (c *defaultConfig) Location() *time.Location {
	return c.location
}

func (c *defaultConfig) LogLevel() string {
	return c.data.LogLevel
}

// loadPrivateKey loads the PEM private key used to sign tokens. Relative paths are resolved
// against the config file directory.
func (c *defaultConfig) loadPrivateKey(configPath string) error {
	path := c.PrivateKeyFile()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = filepath.Join(filepath.Dir(configPath), path)
	}
	pemFile, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	privatePem, _ := pem.Decode(pemFile)
	if privatePem == nil {
		return errors.New("the given private key is not PEM encoded")
	}
	pk, err := x509.ParsePKCS1PrivateKey(privatePem.Bytes)
	if err != nil {
		return err
	}
	c.privateKey = pk
	return nil
}

func (c *defaultConfig) loadLocation() error {
	if c.data.TimeZone == "" {
		c.location = time.Local
		return nil
	}
	loc, err := time.LoadLocation(c.data.TimeZone)
	if err != nil {
		return fmt.Errorf("invalid time zone %q: %w", c.data.TimeZone, err)
	}
	c.location = loc
	return nil
}

// applyEnvironment overrides the file values with the ones found in the environment, including
// the ones declared in an optional .env file.
func (c *defaultConfig) applyEnvironment() {
	_ = godotenv.Load()
	if dsn := os.Getenv(envDatabaseDSN); dsn != "" {
		c.data.DatabaseDSN = dsn
	}
	if addr := os.Getenv(envRedisAddr); addr != "" {
		c.data.RedisAddr = addr
	}
	if level := os.Getenv(envLogLevel); level != "" {
		c.data.LogLevel = level
	}
}

// Load loads the given configuration file.
func Load(configPath string) (Config, error) {
	data := &configData{}
	configFile, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("an error occurred while loading config file: %w", err)
	}
	defer configFile.Close()
	err = json.NewDecoder(configFile).Decode(data)
	if err != nil {
		return nil, fmt.Errorf("an error occurred while parsing config file: %w", err)
	}
	if data.ServerPort <= 0 || data.ServerPort > 65535 {
		return nil, fmt.Errorf("invalid server port %d", data.ServerPort)
	}
	configuration := &defaultConfig{data: data}
	configuration.applyEnvironment()
	if err = configuration.loadLocation(); err != nil {
		return nil, err
	}
	if configuration.PrivateKeyFile() != "" {
		if err = configuration.loadPrivateKey(configPath); err != nil {
			return nil, err
		}
	}
	return configuration, nil
}

// MustLoad loads the given configuration file and if any error occurs, will panic.
func MustLoad(configPath string) Config {
	config, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	return config
}
