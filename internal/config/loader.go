package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dealflow/pkg/logging"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/dealflow"
	configFileName = "config.yaml"

	// envPrefix namespaces all environment overrides, e.g.
	// DEALFLOW_CRM_ACCESS_TOKEN.
	envPrefix = "DEALFLOW_"
)

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig builds the effective configuration in three layers: built-in
// defaults, then config.yaml from the specified directory, then environment
// variables with the DEALFLOW_ prefix. A missing config.yaml is not an
// error; secrets typically arrive via the environment only.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return Config{}, err
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
		}
		logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	if err := env.ParseWithOptions(&config, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("error applying environment overrides: %w", err)
	}

	applyDeviceUUID(&config)
	return config, nil
}

// applyDeviceUUID generates a device UUID when permitted and none is
// configured. Validation rejects the missing-UUID case otherwise.
func applyDeviceUUID(config *Config) {
	if config.CRM.DeviceUUID != "" || !config.CRM.GenerateDeviceUUID {
		return
	}
	config.CRM.DeviceUUID = uuid.NewString()
	logging.Warn("ConfigLoader",
		"Generated device UUID %s; the change feed cursor will not survive a restart", config.CRM.DeviceUUID)
}
