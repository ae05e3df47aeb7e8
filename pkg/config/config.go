// Package config holds the hook installation's own configuration, as
// opposed to the per-repository policy options stored inside each
// repository.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrNilConfig is returned when a nil config is passed around.
var ErrNilConfig = errors.New("nil config")

var binPath = "refgate"

// LogConfig is the logger configuration.
type LogConfig struct {
	// Format is the format of the logs.
	// Valid values are "json", "logfmt", and "text".
	Format string `env:"FORMAT" yaml:"format"`

	// Time format for the log `ts` field.
	// Format must be described in Golang's time format.
	TimeFormat string `env:"TIME_FORMAT" yaml:"time_format"`

	// Path to a file to write logs to.
	// If not set, logs will be written to stderr.
	Path string `env:"PATH" yaml:"path"`
}

// MailConfig is the notification email delivery configuration.
type MailConfig struct {
	// Protocol selects the delivery mechanism.
	// Valid values are "smtp", "sendmail", and "dummy".
	Protocol string `env:"PROTOCOL" yaml:"protocol"`

	// From is the default sender address when the repository does not
	// configure one of its own.
	From string `env:"FROM" yaml:"from"`

	// Host and Port locate the SMTP server.
	Host string `env:"HOST" yaml:"host"`
	Port int    `env:"PORT" yaml:"port"`

	// Username and Password authenticate against the SMTP server.
	// Empty means no authentication.
	Username string `env:"USERNAME" yaml:"username"`
	Password string `env:"PASSWORD" yaml:"password"`

	// SendmailPath is the sendmail binary used by the sendmail
	// protocol.
	SendmailPath string `env:"SENDMAIL_PATH" yaml:"sendmail_path"`

	// Async detaches email delivery from the push so slow mail
	// servers do not hold the pusher's terminal.
	Async bool `env:"ASYNC" yaml:"async"`
}

// DBConfig is the audit database connection configuration.
type DBConfig struct {
	// Driver is the driver for the database.
	Driver string `env:"DRIVER" yaml:"driver"`

	// DataSource is the database data source name.
	DataSource string `env:"DATA_SOURCE" yaml:"data_source"`
}

// WebhookConfig configures push event delivery over HTTP.
type WebhookConfig struct {
	// URLs are the endpoints push events are delivered to.
	URLs []string `env:"URLS" envSeparator:"\n" yaml:"urls"`

	// Secret signs the payloads.
	Secret string `env:"SECRET" yaml:"secret"`

	// ContentType is "json" or "form".
	ContentType string `env:"CONTENT_TYPE" yaml:"content_type"`
}

// Config is the configuration for the hooks installation.
type Config struct {
	// Name overrides the repository name used in email subjects.
	// Empty derives the name from the repository path.
	Name string `env:"NAME" yaml:"name"`

	// Log is the logger configuration.
	Log LogConfig `envPrefix:"LOG_" yaml:"log"`

	// Mail is the email delivery configuration.
	Mail MailConfig `envPrefix:"MAIL_" yaml:"mail"`

	// DB is the audit database configuration.
	DB DBConfig `envPrefix:"DB_" yaml:"db"`

	// Webhook is the push event delivery configuration.
	Webhook WebhookConfig `envPrefix:"WEBHOOK_" yaml:"webhook"`

	// DataPath is the path to the directory where refgate stores its
	// data.
	DataPath string `env:"DATA_PATH" yaml:"-"`
}

// Environ returns the config as a list of environment variables.
func (c *Config) Environ() []string {
	envs := []string{
		fmt.Sprintf("REFGATE_BIN_PATH=%s", binPath),
	}
	if c == nil {
		return envs
	}

	envs = append(envs, []string{
		fmt.Sprintf("REFGATE_DATA_PATH=%s", c.DataPath),
		fmt.Sprintf("REFGATE_NAME=%s", c.Name),
		fmt.Sprintf("REFGATE_LOG_FORMAT=%s", c.Log.Format),
		fmt.Sprintf("REFGATE_LOG_TIME_FORMAT=%s", c.Log.TimeFormat),
		fmt.Sprintf("REFGATE_LOG_PATH=%s", c.Log.Path),
		fmt.Sprintf("REFGATE_MAIL_PROTOCOL=%s", c.Mail.Protocol),
		fmt.Sprintf("REFGATE_MAIL_FROM=%s", c.Mail.From),
		fmt.Sprintf("REFGATE_MAIL_HOST=%s", c.Mail.Host),
		fmt.Sprintf("REFGATE_MAIL_PORT=%d", c.Mail.Port),
		fmt.Sprintf("REFGATE_MAIL_USERNAME=%s", c.Mail.Username),
		fmt.Sprintf("REFGATE_MAIL_PASSWORD=%s", c.Mail.Password),
		fmt.Sprintf("REFGATE_MAIL_SENDMAIL_PATH=%s", c.Mail.SendmailPath),
		fmt.Sprintf("REFGATE_MAIL_ASYNC=%t", c.Mail.Async),
		fmt.Sprintf("REFGATE_DB_DRIVER=%s", c.DB.Driver),
		fmt.Sprintf("REFGATE_DB_DATA_SOURCE=%s", c.DB.DataSource),
		fmt.Sprintf("REFGATE_WEBHOOK_URLS=%s", strings.Join(c.Webhook.URLs, "\n")),
		fmt.Sprintf("REFGATE_WEBHOOK_SECRET=%s", c.Webhook.Secret),
		fmt.Sprintf("REFGATE_WEBHOOK_CONTENT_TYPE=%s", c.Webhook.ContentType),
	}...)

	return envs
}

// IsDebug returns true if the hooks are running in debug mode.
func IsDebug() bool {
	debug, _ := strconv.ParseBool(os.Getenv("REFGATE_DEBUG"))
	return debug
}

// IsVerbose returns true if the hooks are running in verbose mode.
// Verbose mode is only enabled if debug mode is enabled.
func IsVerbose() bool {
	verbose, _ := strconv.ParseBool(os.Getenv("REFGATE_VERBOSE"))
	return IsDebug() && verbose
}

// parseFile parses the given file as a configuration file.
// The file must be in YAML format.
func parseFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer f.Close() // nolint: errcheck
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	return cfg.Validate()
}

// ParseFile parses the config from the default file path.
// This also calls Validate() on the config.
func (c *Config) ParseFile() error {
	return parseFile(c, c.ConfigPath())
}

// parseEnv parses the environment variables as a configuration file.
func parseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{
		Prefix: "REFGATE_",
	}); err != nil {
		return fmt.Errorf("parse environment variables: %w", err)
	}

	return cfg.Validate()
}

// ParseEnv parses the config from the environment variables.
// This also calls Validate() on the config.
func (c *Config) ParseEnv() error {
	return parseEnv(c)
}

// Parse parses the config from the default file path and environment
// variables. Environment variables take precedence. A missing config
// file is not an error; the defaults simply stand.
func (c *Config) Parse() error {
	if c.Exist() {
		if err := c.ParseFile(); err != nil {
			return err
		}
	}

	return c.ParseEnv()
}

// writeConfig writes the configuration to the given file.
func writeConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(newConfigFile(cfg)), 0o644) // nolint: errcheck, gosec
}

// WriteConfig writes the configuration to the default file.
func (c *Config) WriteConfig() error {
	return writeConfig(c, c.ConfigPath())
}

// DefaultDataPath returns the path to the data directory.
// It uses the REFGATE_DATA_PATH environment variable if set, otherwise
// it uses "data".
func DefaultDataPath() string {
	dp := os.Getenv("REFGATE_DATA_PATH")
	if dp == "" {
		dp = "data"
	}

	return dp
}

// ConfigPath returns the path to the config file.
func (c *Config) ConfigPath() string { // nolint:revive
	return filepath.Join(c.DataPath, "config.yaml")
}

func exist(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Exist returns true if the config file exists.
func (c *Config) Exist() bool {
	return exist(filepath.Join(c.DataPath, "config.yaml"))
}

// DefaultConfig returns the default Config. All the path values are
// relative to the data directory.
// Use Validate() to validate the config and ensure absolute paths.
func DefaultConfig() *Config {
	return &Config{
		DataPath: DefaultDataPath(),
		Log: LogConfig{
			Format:     "text",
			TimeFormat: time.DateTime,
		},
		Mail: MailConfig{
			Protocol:     "sendmail",
			Port:         25,
			SendmailPath: "/usr/sbin/sendmail",
			Async:        true,
		},
		DB: DBConfig{
			Driver: "sqlite",
			DataSource: "refgate.db" +
				"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		},
		Webhook: WebhookConfig{
			ContentType: "json",
		},
	}
}

// Validate validates the configuration.
// It updates the configuration with absolute paths.
func (c *Config) Validate() error {
	if !filepath.IsAbs(c.DataPath) {
		dp, err := filepath.Abs(c.DataPath)
		if err != nil {
			return err
		}
		c.DataPath = dp
	}

	switch c.Mail.Protocol {
	case "", "smtp", "sendmail", "dummy":
	default:
		return fmt.Errorf("unknown mail protocol %q", c.Mail.Protocol)
	}

	switch c.Webhook.ContentType {
	case "", "json", "form":
	default:
		return fmt.Errorf("unknown webhook content type %q", c.Webhook.ContentType)
	}

	if c.Log.Path != "" && !filepath.IsAbs(c.Log.Path) {
		c.Log.Path = filepath.Join(c.DataPath, c.Log.Path)
	}

	if strings.HasPrefix(c.DB.Driver, "sqlite") && !filepath.IsAbs(c.DB.DataSource) {
		c.DB.DataSource = filepath.Join(c.DataPath, c.DB.DataSource)
	}

	return nil
}

// BinPath returns the path of the running hooks binary.
func BinPath() string {
	return binPath
}

func init() {
	ex, err := os.Executable()
	if err != nil {
		ex = "refgate"
	}
	ex = filepath.ToSlash(ex)
	binPath = ex
}
