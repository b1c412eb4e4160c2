package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

type Config struct {
	LogLevel      string   `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	Storage       string   `yaml:"storage" env:"STORAGE" env-default:"redis"`
	InviteBaseURL string   `yaml:"invite-base-url" env:"INVITE_BASE_URL" env-default:"http://localhost:3000/"`
	Redis         Redis    `yaml:"redis"`
	Session       Session  `yaml:"session"`
	Identity      Identity `yaml:"identity"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Session struct {
	KeyPrefix string        `yaml:"key-prefix" env:"SESSION_KEY_PREFIX" env-default:"session"`
	TTL       time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"24h"`
}

type Identity struct {
	Path string `yaml:"path" env:"IDENTITY_PATH" env-default:"identity.db"`
}

var ErrUnknownStorage = errors.New("unknown storage type")

// MustLoad - loads config.yml when it exists and the environment otherwise.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if _, err := os.Stat(path); err == nil {
		if err = cleanenv.ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		if err = cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) validate() error {
	switch that.Storage {
	case StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorage, that.Storage)
	}

	if _, err := url.Parse(that.InviteBaseURL); err != nil {
		return fmt.Errorf("invalid invite-base-url: %w", err)
	}

	return nil
}

// InviteURL - builds the link a first player shares with an opponent.
func (that *Config) InviteURL(sessionID string) string {
	base, err := url.Parse(that.InviteBaseURL)
	if err != nil || sessionID == "" {
		return ""
	}

	query := base.Query()
	query.Set("gameId", sessionID)
	base.RawQuery = query.Encode()

	return base.String()
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
