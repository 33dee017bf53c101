package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	KeyTransformerMode           = "transformer.mode"
	KeyTransformerURL            = "transformer.url"
	KeyTransformerCategory       = "transformer.category"
	KeyTransformerTimeoutSeconds = "transformer.timeout_seconds"
	KeyChatBaseURL               = "chat.base_url"
	KeyChatModel                 = "chat.model"
	KeyChatAPIKeyEnv             = "chat.api_key_env"
	KeySheetName                 = "sheet.name"
	KeySheetHeaderRows           = "sheet.header_rows"
	KeySheetHeaderCols           = "sheet.header_cols"
	KeySheetHeaderMarkers        = "sheet.header_markers"
	KeyReviewTitleMarkers        = "review.title_markers"
	KeyReviewDescriptionMarkers  = "review.description_markers"
	KeyReviewAppliedColor        = "review.applied_color"
	KeyReviewChangedColor        = "review.changed_color"
	KeyJournalDSN                = "journal.dsn"
)

const (
	ModeBackend = "backend"
	ModeChat    = "chat"
)

type Config struct {
	Transformer TransformerConfig `mapstructure:"transformer" validate:"required"`
	Chat        ChatConfig        `mapstructure:"chat"`
	Sheet       SheetConfig       `mapstructure:"sheet"`
	Review      ReviewConfig      `mapstructure:"review"`
	Journal     JournalConfig     `mapstructure:"journal"`
}

type TransformerConfig struct {
	Mode           string `mapstructure:"mode" validate:"required,oneof=backend chat"`
	URL            string `mapstructure:"url" validate:"required,url"`
	Category       string `mapstructure:"category" validate:"required"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"min=1,max=600"`
}

type ChatConfig struct {
	BaseURL   string `mapstructure:"base_url" validate:"required,url"`
	Model     string `mapstructure:"model" validate:"required"`
	APIKeyEnv string `mapstructure:"api_key_env" validate:"required"`
}

type SheetConfig struct {
	Name          string   `mapstructure:"name"`
	HeaderRows    int      `mapstructure:"header_rows" validate:"min=1,max=1000"`
	HeaderCols    int      `mapstructure:"header_cols" validate:"min=1,max=16384"`
	HeaderMarkers []string `mapstructure:"header_markers" validate:"required,min=1"`
}

type ReviewConfig struct {
	TitleMarkers       []string `mapstructure:"title_markers" validate:"required,min=1"`
	DescriptionMarkers []string `mapstructure:"description_markers" validate:"required,min=1"`
	AppliedColor       string   `mapstructure:"applied_color" validate:"required,hexcolor"`
	ChangedColor       string   `mapstructure:"changed_color" validate:"required,hexcolor"`
}

type JournalConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Timeout returns the per-call transformer timeout.
func (c TransformerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// APIKey reads the chat API key from the configured environment variable.
func (c ChatConfig) APIKey() string {
	return strings.TrimSpace(os.Getenv(c.APIKeyEnv))
}

// SetDefaults sets default values if not provided
func SetDefaults() {
	setDefaults(viper.GetViper())
}

// LoadAndValidate loads config from Viper and validates it
func LoadAndValidate() (*Config, error) {
	return loadAndValidateFromViper(viper.GetViper())
}

// ValidateYAMLContent validates configuration from raw YAML content.
func ValidateYAMLContent(content []byte) (*Config, error) {
	local := viper.New()
	setDefaults(local)
	local.SetConfigType("yaml")
	if err := local.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("read config content: %w", err)
	}
	return loadAndValidateFromViper(local)
}

// ExampleYAML returns the default configuration template.
func ExampleYAML() string {
	return `# listingpilot configuration
transformer:
  # backend: the optimize/smart-edit HTTP service, chat: an OpenAI-compatible API
  mode: "backend"
  url: "https://localhost:8000"
  category: "General"
  timeout_seconds: 60

chat:
  base_url: "https://openrouter.ai/api/v1"
  model: "google/gemini-2.5-flash"
  # name of the environment variable (or .env entry) holding the API key
  api_key_env: "LISTINGPILOT_API_KEY"

sheet:
  # empty means the active sheet
  name: ""
  header_rows: 15
  header_cols: 52
  header_markers: ["título", "titulo", "title", "sku", "código", "codigo", "precio", "price"]

review:
  title_markers: ["título", "titulo", "title"]
  description_markers: ["descripción", "descripcion", "description"]
  applied_color: "#E2EFDA"
  changed_color: "#FFF2CC"

journal:
  dsn: ":memory:"
`
}

func loadAndValidateFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := validateMarkers(cfg); err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.Review.AppliedColor, cfg.Review.ChangedColor) {
		return nil, fmt.Errorf("validation failed: review.applied_color and review.changed_color must differ")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyTransformerMode, ModeBackend)
	v.SetDefault(KeyTransformerURL, "https://localhost:8000")
	v.SetDefault(KeyTransformerCategory, "General")
	v.SetDefault(KeyTransformerTimeoutSeconds, 60)
	v.SetDefault(KeyChatBaseURL, "https://openrouter.ai/api/v1")
	v.SetDefault(KeyChatModel, "google/gemini-2.5-flash")
	v.SetDefault(KeyChatAPIKeyEnv, "LISTINGPILOT_API_KEY")
	v.SetDefault(KeySheetName, "")
	v.SetDefault(KeySheetHeaderRows, 15)
	v.SetDefault(KeySheetHeaderCols, 52)
	v.SetDefault(KeySheetHeaderMarkers, []string{"título", "titulo", "title", "sku", "código", "codigo", "precio", "price"})
	v.SetDefault(KeyReviewTitleMarkers, []string{"título", "titulo", "title"})
	v.SetDefault(KeyReviewDescriptionMarkers, []string{"descripción", "descripcion", "description"})
	v.SetDefault(KeyReviewAppliedColor, "#E2EFDA")
	v.SetDefault(KeyReviewChangedColor, "#FFF2CC")
	v.SetDefault(KeyJournalDSN, ":memory:")
}

func validateMarkers(cfg Config) error {
	lists := []struct {
		key     string
		markers []string
	}{
		{KeySheetHeaderMarkers, cfg.Sheet.HeaderMarkers},
		{KeyReviewTitleMarkers, cfg.Review.TitleMarkers},
		{KeyReviewDescriptionMarkers, cfg.Review.DescriptionMarkers},
	}
	for _, list := range lists {
		for i, marker := range list.markers {
			if strings.TrimSpace(marker) == "" {
				return fmt.Errorf("validation failed: %s[%d] is blank", list.key, i)
			}
		}
	}
	return nil
}
