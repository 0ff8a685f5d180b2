package infra

import (
	"encoding/json"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type HttpConfig struct {
	Port            int           `envconfig:"HTTP_PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"`
}

type StocksConfig struct {
	Count        int           `envconfig:"STOCKS_COUNT" default:"10"`
	Prefix       string        `envconfig:"STOCKS_PREFIX" default:"stock-"`
	InitialPrice int64         `envconfig:"STOCKS_INITIAL_PRICE" default:"1000"`
	MinDelay     time.Duration `envconfig:"STOCKS_MIN_DELAY" default:"500ms"`
	MaxDelay     time.Duration `envconfig:"STOCKS_MAX_DELAY" default:"1s"`
	MaxDelta     int64         `envconfig:"STOCKS_MAX_DELTA" default:"100"`
	// WaitTimeout bounds how long a request waits for a computation, 0 disables it.
	WaitTimeout  time.Duration `envconfig:"STOCKS_WAIT_TIMEOUT" default:"0"`
	PopularLimit int           `envconfig:"STOCKS_POPULAR_LIMIT" default:"3"`
}

type CentrifugeConfig struct {
	Host  string `envconfig:"CENTRIFUGE_HOST"`
	Token string `envconfig:"CENTRIFUGE_TOKEN"`
	// price updates are published in batches of up to BatchSize, flushed after BatchWait of silence
	BatchSize int           `envconfig:"CENTRIFUGE_BATCH_SIZE" default:"50"`
	BatchWait time.Duration `envconfig:"CENTRIFUGE_BATCH_WAIT" default:"200ms"`
}

type Config struct {
	HttpConfig       HttpConfig
	LogConfig        LogConfig
	StocksConfig     StocksConfig
	CentrifugeConfig CentrifugeConfig
}

// SetConfig loads the optional env file and then the process environment.
func SetConfig(configPath string) (Config, error) {
	var cfg Config

	if configPath != "" {
		if err := godotenv.Load(configPath); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return cfg, errors.Wrapf(err, "can't load env file %s", configPath)
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	bs, _ := json.Marshal(cfg)
	log.WithField("config", string(bs)).Debug("configuration loaded")

	return cfg, nil
}

func (c Config) Validate() error {
	s := c.StocksConfig
	switch {
	case c.HttpConfig.Port <= 0 || c.HttpConfig.Port > 65535:
		return errors.Errorf("HTTP_PORT out of range: %d", c.HttpConfig.Port)
	case s.Count <= 0:
		return errors.Errorf("STOCKS_COUNT must be positive, got %d", s.Count)
	case s.InitialPrice <= 0:
		return errors.Errorf("STOCKS_INITIAL_PRICE must be positive, got %d", s.InitialPrice)
	case s.MinDelay < 0 || s.MaxDelay < s.MinDelay:
		return errors.Errorf("invalid delay range [%s, %s]", s.MinDelay, s.MaxDelay)
	case s.MaxDelta < 0:
		return errors.Errorf("STOCKS_MAX_DELTA must not be negative, got %d", s.MaxDelta)
	case s.WaitTimeout < 0:
		return errors.Errorf("STOCKS_WAIT_TIMEOUT must not be negative, got %s", s.WaitTimeout)
	case s.PopularLimit <= 0:
		return errors.Errorf("STOCKS_POPULAR_LIMIT must be positive, got %d", s.PopularLimit)
	case c.CentrifugeConfig.BatchSize <= 0:
		return errors.Errorf("CENTRIFUGE_BATCH_SIZE must be positive, got %d", c.CentrifugeConfig.BatchSize)
	case c.CentrifugeConfig.BatchWait <= 0:
		return errors.Errorf("CENTRIFUGE_BATCH_WAIT must be positive, got %s", c.CentrifugeConfig.BatchWait)
	}
	return nil
}
