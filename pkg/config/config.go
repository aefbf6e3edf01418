package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"

	"github.com/seedrcc/go-seedr/pkg/logger"
	"github.com/seedrcc/go-seedr/pkg/seedr"
)

type ClientConfig struct {
	// Token is the base64-encoded persisted session token.
	Token   string        `yaml:"token" koanf:"token"`
	Timeout time.Duration `yaml:"timeout" koanf:"timeout"`
}

type LogConfig struct {
	Level string `yaml:"level" koanf:"level"`
	Path  string `yaml:"path" koanf:"path"`
}

type Configuration struct {
	Seedr ClientConfig `yaml:"seedr" koanf:"seedr"`
	Log   LogConfig    `yaml:"log" koanf:"log"`
}

/* Vars */

var (
	cfgPath = ""

	Delimiter = "."
	Config    *Configuration
	K         = koanf.New(Delimiter)

	// Internal
	log = logger.GetLogger("cfg")
)

/* Public */

func Init(configFilePath string) error {
	// set package variables
	cfgPath = configFilePath

	// load config
	if err := K.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
		return fmt.Errorf("load file: %w", err)
	}

	// load environment variables
	if err := K.Load(env.Provider("SEEDR__", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "SEEDR__")), "_", ".", -1)
	}), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	// unmarshal config
	if err := K.Unmarshal("", &Config); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	log.Debugf("Loaded configuration from %q", cfgPath)

	return nil
}

// Client constructs a seedr client from the loaded client configuration.
func (c *ClientConfig) Client(opts ...seedr.Option) (*seedr.Client, error) {
	token, err := seedr.TokenFromBase64(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "decoding configured token")
	}

	if c.Timeout > 0 {
		opts = append(opts, seedr.WithTimeout(c.Timeout))
	}

	return seedr.New(token, opts...)
}
