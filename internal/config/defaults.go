package config

import "time"

const (
	// DefaultBaseURL is the CRM API endpoint used when none is configured.
	DefaultBaseURL = "https://api.getbase.com"

	// DefaultInterval is the delay between reconciliation cycles.
	DefaultInterval = 45 * time.Second

	// DefaultDealNameLayout is the date suffix layout for auto-created
	// deal names.
	DefaultDealNameLayout = "2006-01-02"
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() Config {
	return Config{
		CRM: CRMConfig{
			BaseURL:    DefaultBaseURL,
			MaxRetries: 3,
		},
		Scheduler: SchedulerConfig{
			Interval: Duration(DefaultInterval),
		},
		DealNameLayout: DefaultDealNameLayout,
		LogLevel:       "info",
	}
}
