// Package config manages deckster configuration loading and validation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

// Default models per workflow concern. Gemini Flash handles the
// conversational stages; classification and layout selection run on the
// same model with lower temperatures set at the call site.
const (
	DefaultStageModel  = "gemini-2.5-flash"
	DefaultIntentModel = "gemini-2.5-flash"
)

// ModelsConfig maps workflow concerns to model names, one model per stage.
// Per-stage fields left empty inherit Stages, so a single-model setup only
// sets Stages (or nothing, for the default).
type ModelsConfig struct {
	// Stages is the shared default for the per-stage fields below.
	Stages string `json:"stages,omitempty"`
	// Greeting is the model used for the conversational greeting.
	Greeting string `json:"greeting,omitempty"`
	// Questions is the model used to generate clarifying questions.
	Questions string `json:"questions,omitempty"`
	// Plan is the model used to draft the confirmation plan.
	Plan string `json:"plan,omitempty"`
	// Strawman is the model used for first outline generation.
	Strawman string `json:"strawman,omitempty"`
	// Refine is the model used for outline refinement rounds.
	Refine string `json:"refine,omitempty"`
	// Intent is the model used by the intent classifier.
	Intent string `json:"intent,omitempty"`
	// Layout is the model used by semantic layout selection. Empty disables
	// the semantic pass and selection falls back to keyword matching.
	Layout string `json:"layout,omitempty"`
}

// ServicesConfig holds endpoints for downstream services.
type ServicesConfig struct {
	// TextServiceURL is the base URL of the text formatting service.
	TextServiceURL string `json:"text_service_url,omitempty"`
	// DeckBuilderURL is the base URL of the deck rendering service.
	DeckBuilderURL string `json:"deck_builder_url,omitempty"`
	// TimeoutSeconds bounds individual HTTP calls to downstream services.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// CheckpointConfig controls stage checkpoint persistence.
type CheckpointConfig struct {
	// DBPath is the SQLite database file. Empty disables checkpointing.
	DBPath string `json:"db_path,omitempty"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty"`
	// PrometheusURL is the base URL of a Prometheus server scraping this
	// process. When set, the usage command can report server-side
	// aggregates alongside the local ledger.
	PrometheusURL string `json:"prometheus_url,omitempty"`
}

// ContentConfig tunes content generation.
type ContentConfig struct {
	// MaxConcurrentSlides bounds parallel slide enrichment.
	MaxConcurrentSlides int `json:"max_concurrent_slides,omitempty"`
}

// Config is the top-level deckster configuration.
type Config struct {
	Models     ModelsConfig     `json:"models"`
	Services   ServicesConfig   `json:"services"`
	Checkpoint CheckpointConfig `json:"checkpoint"`
	Metrics    MetricsConfig    `json:"metrics"`
	Content    ContentConfig    `json:"content"`
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// LoadConfig loads and validates configuration from a JSON file with
// environment variable substitution. A .env file next to the process is
// loaded first so ${VAR} placeholders and DECKSTER_* overrides can reference
// it. A missing config file yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	// Best effort: absence of .env is not an error.
	_ = godotenv.Load()

	var config Config

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		// Replace environment variable placeholders.
		dataStr := envVarRegex.ReplaceAllStringFunc(string(data), func(match string) string {
			envVar := match[2 : len(match)-1] // Remove ${ and }
			if value := os.Getenv(envVar); value != "" {
				return value
			}
			return match // Return original if env var not found
		})

		if err := json.Unmarshal([]byte(dataStr), &config); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnvOverrides(&config)
	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides walks the config struct and overrides fields from
// DECKSTER_<SECTION>_<FIELD> environment variables, e.g.
// DECKSTER_MODELS_STAGES or DECKSTER_SERVICES_TEXT_SERVICE_URL.
func applyEnvOverrides(config *Config) {
	v := reflect.ValueOf(config).Elem()
	t := reflect.TypeOf(config).Elem()
	applyEnvOverridesRecursive(v, t, "DECKSTER_")
}

func applyEnvOverridesRecursive(v reflect.Value, t reflect.Type, prefix string) {
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		jsonTag := fieldType.Tag.Get("json")
		if jsonTag == "" || jsonTag == "-" {
			continue
		}

		fieldName := strings.Split(jsonTag, ",")[0]
		envKey := strings.ToUpper(prefix + fieldName)

		if field.Kind() == reflect.Struct {
			applyEnvOverridesRecursive(field, field.Type(), envKey+"_")
			continue
		}

		if envValue := os.Getenv(envKey); envValue != "" {
			setFieldFromEnv(field, envValue)
		}
	}
}

func setFieldFromEnv(field reflect.Value, envValue string) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() { //nolint:exhaustive // Only config-relevant kinds handled
	case reflect.String:
		field.SetString(envValue)
	case reflect.Int:
		if val, err := parseInt(envValue); err == nil {
			field.SetInt(int64(val))
		}
	case reflect.Bool:
		field.SetBool(envValue == "true" || envValue == "1")
	}
}

func parseInt(s string) (int, error) {
	var result int
	_, err := fmt.Sscanf(s, "%d", &result)
	if err != nil {
		return 0, fmt.Errorf("failed to parse int from '%s': %w", s, err)
	}
	return result, nil
}

// applyDefaults sets default values for missing configuration.
func applyDefaults(config *Config) {
	if config.Models.Stages == "" {
		config.Models.Stages = DefaultStageModel
	}
	for _, field := range []*string{
		&config.Models.Greeting, &config.Models.Questions, &config.Models.Plan,
		&config.Models.Strawman, &config.Models.Refine,
	} {
		if *field == "" {
			*field = config.Models.Stages
		}
	}
	if config.Models.Intent == "" {
		config.Models.Intent = DefaultIntentModel
	}
	if config.Services.TimeoutSeconds <= 0 {
		config.Services.TimeoutSeconds = 30
	}
	if config.Content.MaxConcurrentSlides <= 0 {
		config.Content.MaxConcurrentSlides = 3
	}
	if config.Metrics.Enabled && config.Metrics.Addr == "" {
		config.Metrics.Addr = ":9105"
	}
}

// validateConfig checks configuration consistency.
func validateConfig(config *Config) error {
	if config.Content.MaxConcurrentSlides < 1 {
		return fmt.Errorf("content.max_concurrent_slides must be at least 1, got %d", config.Content.MaxConcurrentSlides)
	}
	for _, url := range []string{config.Services.TextServiceURL, config.Services.DeckBuilderURL} {
		if url != "" && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return fmt.Errorf("service URL must start with http:// or https://, got %q", url)
		}
	}
	return nil
}
