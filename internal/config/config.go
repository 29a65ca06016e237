package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type AccountMode string

const (
	ModeTrade    AccountMode = "trade"
	ModePractice AccountMode = "practice"
)

// Config is an immutable snapshot of the bot settings. Callers must not
// modify a Config obtained from a Store.
type Config struct {
	TelegramBotToken string

	QuantConnectJobUserID    int64
	QuantConnectAccessToken  string
	QuantConnectProjectID    int64
	QuantConnectDeploymentID string

	OandaToken     string
	OandaAccountID string
	OandaMode      AccountMode

	AuthedUsers []string

	LogLevel              string
	LogFile               string
	RequestTimeoutSeconds int
	MaxConcurrentMessages int
}

// fileConfig mirrors the file layout. Required keys are pointers so that a
// missing key can be told apart from an empty value.
type fileConfig struct {
	TelegramBotToken *string `json:"telegram-bot-api-token" yaml:"telegram-bot-api-token" validate:"required"`

	QuantConnectJobUserID    *int64  `json:"quantconnect-job-user-id" yaml:"quantconnect-job-user-id" validate:"required"`
	QuantConnectAccessToken  *string `json:"quantconnect-api-access-token" yaml:"quantconnect-api-access-token" validate:"required"`
	QuantConnectProjectID    *int64  `json:"quantconnect-project-id" yaml:"quantconnect-project-id" validate:"required"`
	QuantConnectDeploymentID *string `json:"quantconnect-deployment-id" yaml:"quantconnect-deployment-id" validate:"required"`

	OandaToken     *string `json:"oanda-api-token" yaml:"oanda-api-token" validate:"required"`
	OandaAccountID *string `json:"oanda-account-id" yaml:"oanda-account-id" validate:"required"`
	OandaMode      *string `json:"oanda-account-mode" yaml:"oanda-account-mode" validate:"required,oneof=trade practice"`

	AuthedUsers []string `json:"authed-users" yaml:"authed-users" validate:"required"`

	LogLevel              string `json:"log-level" yaml:"log-level" validate:"omitempty,oneof=debug info warn error"`
	LogFile               string `json:"log-file" yaml:"log-file"`
	RequestTimeoutSeconds int    `json:"request-timeout-seconds" yaml:"request-timeout-seconds" validate:"gte=0"`
	MaxConcurrentMessages int    `json:"max-concurrent-messages" yaml:"max-concurrent-messages" validate:"gte=0"`
}

// Error is returned by Load for any unreadable, malformed or invalid file.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var validate = validator.New()

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("read config file: %w", err)}
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return cfg, nil
}

// Parse decodes and validates a configuration document. Valid JSON is decoded
// as JSON; anything else goes through the YAML decoder.
func Parse(data []byte) (*Config, error) {
	var fc fileConfig
	if err := decode(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := validate.Struct(&fc); err != nil {
		return nil, fmt.Errorf("validate config: %w", describe(err))
	}

	cfg := &Config{
		TelegramBotToken:         *fc.TelegramBotToken,
		QuantConnectJobUserID:    *fc.QuantConnectJobUserID,
		QuantConnectAccessToken:  *fc.QuantConnectAccessToken,
		QuantConnectProjectID:    *fc.QuantConnectProjectID,
		QuantConnectDeploymentID: *fc.QuantConnectDeploymentID,
		OandaToken:               *fc.OandaToken,
		OandaAccountID:           *fc.OandaAccountID,
		OandaMode:                AccountMode(*fc.OandaMode),
		AuthedUsers:              slices.Clone(fc.AuthedUsers),
		LogLevel:                 fc.LogLevel,
		LogFile:                  fc.LogFile,
		RequestTimeoutSeconds:    fc.RequestTimeoutSeconds,
		MaxConcurrentMessages:    fc.MaxConcurrentMessages,
	}
	setDefaults(cfg)

	return cfg, nil
}

// decode keeps JSON escapes such as \/ that the YAML decoder rejects.
func decode(data []byte, fc *fileConfig) error {
	if json.Valid(data) {
		return json.Unmarshal(data, fc)
	}
	return yaml.Unmarshal(data, fc)
}

func setDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RequestTimeoutSeconds == 0 {
		cfg.RequestTimeoutSeconds = 15
	}
	if cfg.MaxConcurrentMessages == 0 {
		cfg.MaxConcurrentMessages = 8
	}
}

// describe turns validator output into messages naming the file keys.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		key := fieldKeys[fe.StructField()]
		switch fe.Tag() {
		case "required":
			errs = append(errs, fmt.Errorf("%s is required", key))
		case "oneof":
			errs = append(errs, fmt.Errorf("invalid %s %v: must be one of %s", key, fe.Value(), fe.Param()))
		default:
			errs = append(errs, fmt.Errorf("invalid %s %v", key, fe.Value()))
		}
	}
	return errors.Join(errs...)
}

var fieldKeys = map[string]string{
	"TelegramBotToken":         "telegram-bot-api-token",
	"QuantConnectJobUserID":    "quantconnect-job-user-id",
	"QuantConnectAccessToken":  "quantconnect-api-access-token",
	"QuantConnectProjectID":    "quantconnect-project-id",
	"QuantConnectDeploymentID": "quantconnect-deployment-id",
	"OandaToken":               "oanda-api-token",
	"OandaAccountID":           "oanda-account-id",
	"OandaMode":                "oanda-account-mode",
	"AuthedUsers":              "authed-users",
	"LogLevel":                 "log-level",
	"RequestTimeoutSeconds":    "request-timeout-seconds",
	"MaxConcurrentMessages":    "max-concurrent-messages",
}

func (c *Config) IsAuthorized(username string) bool {
	if username == "" {
		return false
	}
	return slices.Contains(c.AuthedUsers, username)
}

// BrokerageEnabled reports whether an OANDA token is configured.
func (c *Config) BrokerageEnabled() bool {
	return c.OandaToken != ""
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
