package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load builds an AgentConfig from the layered source chain described in
// infrastructure/src/config.rs's AgentConfig::load: defaults, then
// configDir/default.{yaml,yml,json} (required), then
// configDir/last_known.json (optional, written by ConfigManager),
// then configDir/<RUN_MODE>.{yaml,yml,json} (optional), then SCADA__*
// environment variables (double-underscore nested separator).
func Load(configDir string) (*AgentConfig, error) {
	runMode := os.Getenv("RUN_MODE")
	if runMode == "" {
		runMode = "development"
	}

	v := viper.New()
	v.SetDefault("mqtt.host", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("heartbeat_interval_secs", defaultHeartbeatIntervalSecs)

	v.SetConfigName("default")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read required default config: %w", err)
	}

	if err := mergeOptional(v, configDir, "last_known"); err != nil {
		return nil, err
	}
	if err := mergeOptional(v, configDir, runMode); err != nil {
		return nil, err
	}

	// viper joins prefix and key with "_", so "SCADA_" yields SCADA__MQTT__HOST.
	v.SetEnvPrefix("SCADA_")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	var cfg AgentConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal agent config: %w", err)
	}
	cfg.ConfigDir = configDir

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("agent config validation failed: %w", err)
	}
	return &cfg, nil
}

// mergeOptional merges configDir/<name>.{yaml,yml,json} into v if present,
// tolerating a missing file (each layer beyond default.* is optional).
func mergeOptional(v *viper.Viper, configDir, name string) error {
	layer := viper.New()
	layer.SetConfigName(name)
	layer.AddConfigPath(configDir)
	if err := layer.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read optional config layer %q: %w", name, err)
	}
	return v.MergeConfigMap(layer.AllSettings())
}

var validate = validator.New()

// Validate runs struct tag validation over cfg, matching the teacher's
// go-playground/validator usage elsewhere in the codebase.
func Validate(cfg *AgentConfig) error {
	return validate.Struct(cfg)
}
