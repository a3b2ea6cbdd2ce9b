// Package config loads runtime settings from the environment, an optional
// .env file, and command line flags.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Responder providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds everything main needs to wire the bot
type Config struct {
	Port        string
	PublicURL   string
	Environment string
	ImagesDir   string

	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFrom        string
	DisableValidation bool

	AdminAPIKey string

	ResponderProvider string
	OpenAIKey         string
	OpenAIModel       string
	GeminiKey         string
	GeminiModel       string
	ResponderTimeout  time.Duration

	PropertyFile string
	AskingPrice  int64 // 0 keeps the listing's price
	MaxRounds    int   // 0 keeps the listing's rounds

	HistoryCap    int
	ResetTimeout  time.Duration
	GCTimeout     time.Duration
	SweepInterval time.Duration

	UseMemoryStore bool
	Database       DatabaseConfig
}

// DatabaseConfig locates the PostgreSQL instance
type DatabaseConfig struct {
	User                   string
	Password               string
	Name                   string
	Host                   string
	Port                   string
	InstanceConnectionName string
}

// OnCloudRun reports whether we run next to a Cloud SQL socket
func (d DatabaseConfig) OnCloudRun() bool {
	return d.InstanceConnectionName != ""
}

// Load reads .env (outside Cloud Run), the environment, then flags from args.
// Malformed values are collected and returned together.
func Load(args []string) (*Config, error) {
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		if err := godotenv.Load(".env"); err != nil {
			if err := godotenv.Load("environments/.env.development"); err != nil {
				log.Println("⚠️  No .env file found - checking environment variables")
			}
		}
	}

	p := &parser{}
	cfg := &Config{
		Port:        stringOr("PORT", "8080"),
		PublicURL:   stringOr("PUBLIC_URL", stringOr("NGROK_URL", "http://localhost:8080")),
		Environment: stringOr("ENVIRONMENT", "production"),
		ImagesDir:   stringOr("IMAGES_DIR", "./images"),

		TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:        stringOr("TWILIO_WHATSAPP_FROM", os.Getenv("TWILIO_PHONE_NUMBER")),
		DisableValidation: p.boolOr("DISABLE_WEBHOOK_VALIDATION", false),

		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),

		ResponderProvider: stringOr("RESPONDER_PROVIDER", ProviderOpenAI),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       os.Getenv("OPENAI_MODEL"),
		GeminiKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       os.Getenv("GEMINI_MODEL"),
		ResponderTimeout:  p.durationOr("RESPONDER_TIMEOUT", 20*time.Second),

		PropertyFile: os.Getenv("PROPERTY_FILE"),
		AskingPrice:  int64(p.intOr("ASKING_PRICE", 0)),
		MaxRounds:    p.intOr("MAX_NEGOTIATION_ROUNDS", 0),

		HistoryCap:    p.intOr("HISTORY_CAP", 10),
		ResetTimeout:  p.durationOr("SESSION_RESET_TIMEOUT", 30*time.Minute),
		GCTimeout:     p.durationOr("SESSION_GC_TIMEOUT", 24*time.Hour),
		SweepInterval: p.durationOr("SESSION_SWEEP_INTERVAL", 5*time.Minute),

		UseMemoryStore: p.boolOr("USE_MEMORY_STORE", false),
		Database: DatabaseConfig{
			User:                   stringOr("DB_USER", "postgres"),
			Password:               os.Getenv("DB_PASS"),
			Name:                   stringOr("DB_NAME", "propertybot"),
			Host:                   stringOr("DB_HOST", "localhost"),
			Port:                   stringOr("DB_PORT", "5432"),
			InstanceConnectionName: os.Getenv("INSTANCE_CONNECTION_NAME"),
		},
	}

	flags := pflag.NewFlagSet("propertybot", pflag.ContinueOnError)
	flags.StringVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	flags.StringVar(&cfg.PropertyFile, "property", cfg.PropertyFile, "path to a property listing YAML file")
	flags.BoolVar(&cfg.UseMemoryStore, "memory-store", cfg.UseMemoryStore, "keep leads in memory instead of PostgreSQL")
	if err := flags.Parse(args); err != nil {
		p.errs = append(p.errs, err)
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the bot cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.ResponderProvider != ProviderOpenAI && c.ResponderProvider != ProviderGemini {
		errs = append(errs, fmt.Errorf("RESPONDER_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, c.ResponderProvider))
	}
	if c.AskingPrice < 0 {
		errs = append(errs, fmt.Errorf("ASKING_PRICE cannot be negative"))
	}
	if c.MaxRounds < 0 {
		errs = append(errs, fmt.Errorf("MAX_NEGOTIATION_ROUNDS cannot be negative"))
	}
	if c.HistoryCap <= 0 {
		errs = append(errs, fmt.Errorf("HISTORY_CAP must be positive"))
	}
	if c.ResponderTimeout <= 0 || c.ResetTimeout <= 0 || c.GCTimeout <= 0 || c.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("timeouts and intervals must be positive"))
	}
	if c.GCTimeout < c.ResetTimeout {
		errs = append(errs, fmt.Errorf("SESSION_GC_TIMEOUT (%v) must not be shorter than SESSION_RESET_TIMEOUT (%v)", c.GCTimeout, c.ResetTimeout))
	}
	return errors.Join(errs...)
}

// Warnings lists missing integrations the bot can run without
func (c *Config) Warnings() []string {
	var warnings []string
	if !c.TwilioConfigured() {
		warnings = append(warnings, "Twilio credentials not found - replies will not be delivered")
	}
	if c.AdminAPIKey == "" && !c.IsDevelopment() {
		warnings = append(warnings, "ADMIN_API_KEY not set - admin routes are disabled")
	}
	switch c.ResponderProvider {
	case ProviderOpenAI:
		if c.OpenAIKey == "" {
			warnings = append(warnings, "OPENAI_API_KEY not set - generated replies will fail")
		}
	case ProviderGemini:
		if c.GeminiKey == "" {
			warnings = append(warnings, "GEMINI_API_KEY not set - generated replies will fail")
		}
	}
	return warnings
}

// TwilioConfigured reports whether outbound messaging can work
func (c *Config) TwilioConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFrom != ""
}

// ValidateWebhooks reports whether inbound webhooks must carry a Twilio signature
func (c *Config) ValidateWebhooks() bool {
	return !c.IsDevelopment() && !c.DisableValidation
}

// IsDevelopment reports whether ENVIRONMENT is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func stringOr(name, defaultValue string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return defaultValue
}

// parser reads typed env vars and remembers what failed to parse
type parser struct {
	errs []error
}

func (p *parser) intOr(name string, defaultValue int) int {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not an integer", name, v))
		return defaultValue
	}
	return n
}

func (p *parser) boolOr(name string, defaultValue bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a boolean", name, v))
		return defaultValue
	}
	return b
}

func (p *parser) durationOr(name string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a duration", name, v))
		return defaultValue
	}
	return d
}
