package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks the configuration for fatal problems. It collects every
// violation instead of stopping at the first so operators can fix a broken
// deployment in one pass.
func (c Config) Validate() ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(c.CRM.BaseURL) == "" {
		errs.Add("crm.baseUrl", "is required")
	}
	if strings.TrimSpace(c.CRM.AccessToken) == "" {
		errs.Add("crm.accessToken", "is required")
	}
	if strings.TrimSpace(c.CRM.DeviceUUID) == "" && !c.CRM.GenerateDeviceUUID {
		errs.Add("crm.deviceUuid", "is required unless crm.generateDeviceUuid is set")
	}
	if c.CRM.MaxRetries < 0 {
		errs.Add("crm.maxRetries", "must not be negative", c.CRM.MaxRetries)
	}

	if _, err := c.Roles.SalesReps.Classifier(); err != nil {
		errs.Add("roles.salesReps", err.Error())
	}
	if _, err := c.Roles.AccountManagers.Classifier(); err != nil {
		errs.Add("roles.accountManagers", err.Error())
	}

	if strings.TrimSpace(c.OnDuty.Email) == "" && strings.TrimSpace(c.OnDuty.Name) == "" {
		errs.Add("onDuty", "either email or name is required")
	}

	if c.Scheduler.Interval.Std() <= 0 {
		errs.Add("scheduler.interval", "must be positive", c.Scheduler.Interval.Std().String())
	}

	return errs
}
