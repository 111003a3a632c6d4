package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/pulse/pkg/logger"
	"github.com/dmitrymomot/pulse/pkg/redis"
)

var errConfig = errors.New("pulse: invalid config")

// config is read from the environment.
type config struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	APIBaseURL      string        `env:"API_BASE_URL,required"`
	APIToken        string        `env:"API_TOKEN"`
	APIRateLimit    float64       `env:"API_RATE_LIMIT" envDefault:"20"`
	ResourcesFile   string        `env:"RESOURCES_FILE"`
	Log             logger.Config
	Redis           redis.Config
	Realtime        realtimeConfig
}

type realtimeConfig struct {
	URL           string        `env:"REALTIME_URL"`
	MaxAttempts   int           `env:"REALTIME_MAX_ATTEMPTS" envDefault:"5"`
	RetryDelay    time.Duration `env:"REALTIME_RETRY_DELAY" envDefault:"1s"`
	MaxRetryDelay time.Duration `env:"REALTIME_MAX_RETRY_DELAY" envDefault:"5s"`
}

// resources is the optional YAML file describing cached resources.
type resources struct {
	Ads    adsConfig    `yaml:"ads"`
	Scores scoresConfig `yaml:"scores"`
}

type adsConfig struct {
	Warm []warmConfig  `yaml:"warm"`
	TTL  time.Duration `yaml:"ttl"`
}

type scoresConfig struct {
	Watch   []string      `yaml:"watch"`
	Warm    []warmConfig  `yaml:"warm"`
	LiveTTL time.Duration `yaml:"live_ttl"`
	TTL     time.Duration `yaml:"ttl"`
}

type warmConfig struct {
	Schedule string              `yaml:"schedule"`
	Params   []map[string]string `yaml:"params"`
}

func defaultResources() resources {
	return resources{
		Ads:    adsConfig{TTL: 5 * time.Minute},
		Scores: scoresConfig{LiveTTL: 10 * time.Second, TTL: time.Hour},
	}
}

func loadConfig(environ map[string]string) (config, error) {
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}

	cfg, err := env.ParseAsWithOptions[config](opts)
	if err != nil {
		return config{}, errors.Join(errConfig, err)
	}
	return cfg, nil
}

func loadResources(path string) (resources, error) {
	res := defaultResources()
	if path == "" {
		return res, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("%w: resources file: %w", errConfig, err)
	}
	if err := yaml.Unmarshal(data, &res); err != nil {
		return res, fmt.Errorf("%w: resources file %s: %w", errConfig, path, err)
	}

	if res.Ads.TTL <= 0 || res.Scores.TTL <= 0 || res.Scores.LiveTTL <= 0 {
		return res, fmt.Errorf("%w: ttl values must be positive", errConfig)
	}
	return res, nil
}
