package config

import (
	"fmt"
	"time"

	"dealflow/internal/directory"
)

// Config is the top-level configuration structure for dealflow.
type Config struct {
	CRM       CRMConfig       `yaml:"crm" envPrefix:"CRM_"`
	Roles     RolesConfig     `yaml:"roles" envPrefix:"ROLES_"`
	OnDuty    OnDutyConfig    `yaml:"onDuty" envPrefix:"ON_DUTY_"`
	Scheduler SchedulerConfig `yaml:"scheduler" envPrefix:"SCHEDULER_"`

	// DealNameLayout is the Go time layout appended to a contact's name
	// when a deal is auto-created. An unusable layout degrades to the ISO
	// calendar date at runtime rather than failing validation.
	DealNameLayout string `yaml:"dealNameLayout,omitempty" env:"DEAL_NAME_LAYOUT"`

	LogLevel string `yaml:"logLevel,omitempty" env:"LOG_LEVEL"`
}

// CRMConfig holds the CRM API connection settings.
type CRMConfig struct {
	BaseURL     string `yaml:"baseUrl,omitempty" env:"BASE_URL"`
	AccessToken string `yaml:"accessToken,omitempty" env:"ACCESS_TOKEN"`

	// DeviceUUID identifies this consumer to the change feed; the feed
	// tracks a cursor per device. Two processes sharing a UUID steal each
	// other's events.
	DeviceUUID string `yaml:"deviceUuid,omitempty" env:"DEVICE_UUID"`

	// GenerateDeviceUUID permits starting without a configured device
	// UUID; a random one is generated at startup. The feed cursor then
	// restarts from scratch on every boot, so this is for trials only.
	GenerateDeviceUUID bool `yaml:"generateDeviceUuid,omitempty" env:"GENERATE_DEVICE_UUID"`

	// MaxRetries bounds retry attempts per CRM request (default: 3).
	MaxRetries int `yaml:"maxRetries,omitempty" env:"MAX_RETRIES"`
}

// RolesConfig configures the two role classifiers.
type RolesConfig struct {
	SalesReps       RoleConfig `yaml:"salesReps" envPrefix:"SALES_REPS_"`
	AccountManagers RoleConfig `yaml:"accountManagers" envPrefix:"ACCOUNT_MANAGERS_"`
}

// RoleConfig selects a classification strategy and its data. Values carries
// emails, a single substring pattern, or display names depending on the
// strategy.
type RoleConfig struct {
	Strategy directory.ClassifierStrategy `yaml:"strategy,omitempty" env:"STRATEGY"`
	Values   []string                     `yaml:"values,omitempty" env:"VALUES"`
}

// Classifier builds the directory classifier for this role.
func (rc RoleConfig) Classifier() (directory.RoleClassifier, error) {
	return directory.NewClassifier(rc.Strategy, rc.Values)
}

// OnDutyConfig names the on-duty account manager. Email takes priority when
// both are set.
type OnDutyConfig struct {
	Email string `yaml:"email,omitempty" env:"EMAIL"`
	Name  string `yaml:"name,omitempty" env:"NAME"`
}

// Identity converts the config into a directory lookup identity.
func (oc OnDutyConfig) Identity() directory.OnDutyIdentity {
	return directory.OnDutyIdentity{Email: oc.Email, Name: oc.Name}
}

// SchedulerConfig controls the reconciliation loop.
type SchedulerConfig struct {
	// Interval is the fixed delay between cycle starts.
	Interval Duration `yaml:"interval,omitempty" env:"INTERVAL"`
}

// Duration wraps time.Duration so YAML accepts "45s" style strings.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for env parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
