package config

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultSecret = "default-secret"

var ErrDatabaseURLRequired = errors.New("database URL is required")

type Config struct {
	Debug            bool     `yaml:"debug"`
	Host             string   `yaml:"host"`
	Port             string   `yaml:"port"`
	Secret           string   `yaml:"secret"`
	DatabaseURL      string   `yaml:"database_url"`
	MigrationSource  string   `yaml:"migration_source"`
	BaseURL          string   `yaml:"base_url"`
	MailSender       string   `yaml:"mail_sender"`
	AllowOrigins     []string `yaml:"allow_origins"`
	AdminEmails      []string `yaml:"admin_emails"`
	OtelCollectorUrl string   `yaml:"otel_collector_url"`
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrDatabaseURLRequired
	}
	return nil
}

// Load resolves configuration with the usual precedence:
// flags > environment > .env file > yaml file > defaults.
func Load() Config {
	cfg := Config{
		Host:            "localhost",
		Port:            "8080",
		Secret:          DefaultSecret,
		MigrationSource: "file://internal/database/migrations",
		BaseURL:         "http://localhost:8080",
		MailSender:      "noreply@surveyhub.local",
	}

	cfg = cfg.loadYamlFile("config.yaml")
	cfg = cfg.loadEnvFile(".env")
	cfg = cfg.loadEnv()
	cfg = cfg.loadFlags()

	return cfg
}

func (c Config) loadYamlFile(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return c
	}

	return c.merge(fileCfg)
}

func (c Config) loadEnvFile(path string) Config {
	env, err := godotenv.Read(path)
	if err != nil {
		return c
	}
	return c.merge(fromEnvMap(env))
}

func (c Config) loadEnv() Config {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			env[parts[0]] = parts[1]
		}
	}
	return c.merge(fromEnvMap(env))
}

func (c Config) loadFlags() Config {
	var flagCfg Config
	var allowOrigins string
	var adminEmails string

	flag.BoolVar(&flagCfg.Debug, "debug", false, "enable debug mode")
	flag.StringVar(&flagCfg.Host, "host", "", "server host")
	flag.StringVar(&flagCfg.Port, "port", "", "server port")
	flag.StringVar(&flagCfg.Secret, "secret", "", "JWT signing secret")
	flag.StringVar(&flagCfg.DatabaseURL, "database-url", "", "database connection string")
	flag.StringVar(&flagCfg.MigrationSource, "migration-source", "", "migration source path")
	flag.StringVar(&flagCfg.BaseURL, "base-url", "", "public base URL used to build survey links")
	flag.StringVar(&flagCfg.MailSender, "mail-sender", "", "sender address for invitation mail")
	flag.StringVar(&allowOrigins, "allow-origins", "", "comma-separated list of allowed CORS origins")
	flag.StringVar(&adminEmails, "admin-emails", "", "comma-separated list of emails granted the superuser role on login")
	flag.StringVar(&flagCfg.OtelCollectorUrl, "otel-collector-url", "", "OTLP collector target")
	flag.Parse()

	flagCfg.AllowOrigins = splitList(allowOrigins)
	flagCfg.AdminEmails = splitList(adminEmails)

	return c.merge(flagCfg)
}

func fromEnvMap(env map[string]string) Config {
	debug, _ := strconv.ParseBool(env["DEBUG"])
	return Config{
		Debug:            debug,
		Host:             env["HOST"],
		Port:             env["PORT"],
		Secret:           env["SECRET"],
		DatabaseURL:      env["DATABASE_URL"],
		MigrationSource:  env["MIGRATION_SOURCE"],
		BaseURL:          env["BASE_URL"],
		MailSender:       env["MAIL_SENDER"],
		AllowOrigins:     splitList(env["ALLOW_ORIGINS"]),
		AdminEmails:      splitList(env["ADMIN_EMAILS"]),
		OtelCollectorUrl: env["OTEL_COLLECTOR_URL"],
	}
}

func (c Config) merge(next Config) Config {
	if next.Debug {
		c.Debug = true
	}
	if next.Host != "" {
		c.Host = next.Host
	}
	if next.Port != "" {
		c.Port = next.Port
	}
	if next.Secret != "" {
		c.Secret = next.Secret
	}
	if next.DatabaseURL != "" {
		c.DatabaseURL = next.DatabaseURL
	}
	if next.MigrationSource != "" {
		c.MigrationSource = next.MigrationSource
	}
	if next.BaseURL != "" {
		c.BaseURL = next.BaseURL
	}
	if next.MailSender != "" {
		c.MailSender = next.MailSender
	}
	if len(next.AllowOrigins) > 0 {
		c.AllowOrigins = next.AllowOrigins
	}
	if len(next.AdminEmails) > 0 {
		c.AdminEmails = next.AdminEmails
	}
	if next.OtelCollectorUrl != "" {
		c.OtelCollectorUrl = next.OtelCollectorUrl
	}
	return c
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
