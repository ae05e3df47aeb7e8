package config

import (
	"strings"
	"text/template"
)

var configFileTmpl = template.Must(template.New("config").Parse(`# refgate hooks configuration.
# All fields can be overridden by REFGATE_* environment variables.

# Repository name override used in email subjects.
# Empty derives the name from the repository path.
name: "{{ .Name }}"

# Logging configuration.
log:
  # Log format to use. Valid values are "json", "logfmt", and "text".
  format: "{{ .Log.Format }}"
  # Time format for the log "ts" field.
  # Should be described in Golang's time format.
  time_format: "{{ .Log.TimeFormat }}"
  # Path to the log file. Empty logs to stderr.
  path: "{{ .Log.Path }}"

# Notification email delivery.
mail:
  # Delivery protocol. Valid values are "smtp", "sendmail", and "dummy".
  protocol: "{{ .Mail.Protocol }}"
  # Default sender address for repositories without one of their own.
  from: "{{ .Mail.From }}"
  # SMTP server location and credentials.
  host: "{{ .Mail.Host }}"
  port: {{ .Mail.Port }}
  username: "{{ .Mail.Username }}"
  password: "{{ .Mail.Password }}"
  # Sendmail binary used by the sendmail protocol.
  sendmail_path: "{{ .Mail.SendmailPath }}"
  # Deliver emails without holding the pusher's terminal.
  async: {{ .Mail.Async }}

# Audit database configuration.
db:
  # Database driver to use. Valid values are "sqlite" and "postgres".
  driver: "{{ .DB.Driver }}"
  # Database data source name.
  data_source: "{{ .DB.DataSource }}"

# Push event delivery over HTTP.
webhook:
  # Endpoints push events are delivered to, one per line.
  urls:{{ range .Webhook.URLs }}
    - "{{ . }}"{{ else }} []{{ end }}
  # Secret used to sign payloads. Empty disables signing.
  secret: "{{ .Webhook.Secret }}"
  # Payload encoding. Valid values are "json" and "form".
  content_type: "{{ .Webhook.ContentType }}"
`))

// newConfigFile renders the configuration into a commented YAML file.
func newConfigFile(cfg *Config) string {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	var b strings.Builder
	if err := configFileTmpl.Execute(&b, cfg); err != nil {
		return ""
	}
	return b.String()
}
