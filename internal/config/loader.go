// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Load .env file via godotenv (non-fatal if absent).
//  2. Use envconfig to process struct tags and populate the Config struct.
//  3. Populate BuildInfo from linker-injected variables.
//  4. Validate the struct using go-playground/validator.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/text/language"

	"vaichover/internal/types"
)

// ConfigError is a diagnostic error type returned by LoadConfig to aid debugging.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadConfig loads and validates the configuration, then checks the given
// requirements.
//
// godotenv.Load does NOT override variables that are already set, which is
// what gives the OS environment priority over the dotenv file.
func LoadConfig(reqs ...Requirement) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.Build = NewBuildInfo()

	if err := newConfigValidator().Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	// Canonicalize the language tag ("PT-br" -> "pt-BR").
	cfg.Weather.Language = language.Make(cfg.Weather.Language).String()

	if err := cfg.Require(reqs...); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Require verifies that every section named by reqs is populated.
func (c *Config) Require(reqs ...Requirement) error {
	var missing []string
	for _, r := range reqs {
		switch r {
		case RequireDatabase:
			if !c.Database.URL.IsSet() {
				missing = append(missing, "DATABASE_URL")
			}
		case RequireDispatchQueue:
			if c.AWS.DispatchQueueURL == "" {
				missing = append(missing, "SQS_DISPATCH")
			}
		case RequirePushSender:
			if c.Push.FirebaseProjectID == "" {
				missing = append(missing, "FIREBASE_PROJECT_ID")
			}
			if !c.Push.AccessToken.IsSet() {
				missing = append(missing, "FIREBASE_ACCESS_TOKEN")
			}
		}
	}
	if len(missing) > 0 {
		return &ConfigError{
			Type:    ErrMissingEnv,
			Message: "required variables not set: " + strings.Join(missing, ", "),
		}
	}
	return nil
}

// newConfigValidator extends the shared struct validator with the bcp47 tag.
func newConfigValidator() *validator.Validate {
	v := types.NewStructValidator()
	_ = v.RegisterValidation("bcp47", func(fl validator.FieldLevel) bool {
		_, err := language.Parse(fl.Field().String())
		return err == nil
	})
	return v
}
