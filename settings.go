package supervisor

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EmailSettings holds delivery parameters for the SMTP handler.
type EmailSettings struct {
	SMTPServer  string   `yaml:"smtp_server" envconfig:"SMTP_SERVER"`
	SMTPPort    int      `yaml:"smtp_port" envconfig:"SMTP_PORT"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	Encryption  string   `yaml:"encryption"` // "none", "starttls", "ssl_tls"
	FromAddress string   `yaml:"from_address" envconfig:"FROM_ADDRESS"`
	ToAddresses []string `yaml:"to_addresses" envconfig:"TO_ADDRESSES"`

	// Prefix is prepended to every outgoing subject.
	Prefix string `yaml:"prefix"`

	// Client is the host program name reported in the message footer.
	Client string `yaml:"client"`
}

// SendGridSettings holds delivery parameters for the SendGrid handler.
type SendGridSettings struct {
	APIKey      string   `yaml:"api_key" envconfig:"API_KEY"`
	FromAddress string   `yaml:"from_address" envconfig:"FROM_ADDRESS"`
	ToAddresses []string `yaml:"to_addresses" envconfig:"TO_ADDRESSES"`
	Prefix      string   `yaml:"prefix"`
	Client      string   `yaml:"client"`
}

// SlackSettings holds delivery parameters for the Slack webhook handler.
type SlackSettings struct {
	WebhookURL string `yaml:"webhook_url" envconfig:"WEBHOOK_URL"`
	Prefix     string `yaml:"prefix"`
	Client     string `yaml:"client"`
}

// Settings aggregates per-handler settings plus the report log location.
type Settings struct {
	LogPath  string           `yaml:"log_path" envconfig:"LOG_PATH"`
	Email    EmailSettings    `yaml:"email" envconfig:"EMAIL"`
	SendGrid SendGridSettings `yaml:"sendgrid" envconfig:"SENDGRID"`
	Slack    SlackSettings    `yaml:"slack" envconfig:"SLACK"`
}

// LoadSettings reads Settings from a YAML file.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file %q: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing settings file %q: %w", path, err)
	}
	return &s, nil
}

// SettingsFromEnv reads Settings from SUPERVISOR_-prefixed environment
// variables, e.g. SUPERVISOR_EMAIL_SMTP_SERVER or SUPERVISOR_SENDGRID_API_KEY.
// List values are comma-separated.
func SettingsFromEnv() (*Settings, error) {
	var s Settings
	if err := envconfig.Process("supervisor", &s); err != nil {
		return nil, fmt.Errorf("loading settings from environment: %w", err)
	}
	return &s, nil
}
