// Package config loads runtime settings from an optional config file, a .env
// file and PLANTIFY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Port            string
	ModelPath       string
	MetadataPath    string
	ClassNamesPath  string
	DiseaseInfoPath string
	OnnxRuntimeLib  string
	AnalysisDelay   time.Duration
	LogLevel        string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("model_path", filepath.Join("models", "model.onnx"))
	v.SetDefault("metadata_path", filepath.Join("models", "model_metadata.json"))
	v.SetDefault("class_names_path", "class_names.json")
	v.SetDefault("disease_info_path", "disease_info.json")
	v.SetDefault("onnxruntime_lib", "")
	v.SetDefault("analysis_delay", time.Second)
	v.SetDefault("log_level", "info")
}

// Load reads configuration into a Config. cfgFile may be empty, in which case
// config.yaml is looked up in the working directory and its absence is fine.
// flags are the command-line flags bound to v, or nil.
func Load(v *viper.Viper, cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PLANTIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Port:            v.GetString("port"),
		ModelPath:       v.GetString("model_path"),
		MetadataPath:    v.GetString("metadata_path"),
		ClassNamesPath:  v.GetString("class_names_path"),
		DiseaseInfoPath: v.GetString("disease_info_path"),
		OnnxRuntimeLib:  v.GetString("onnxruntime_lib"),
		AnalysisDelay:   v.GetDuration("analysis_delay"),
		LogLevel:        v.GetString("log_level"),
	}

	// Platforms such as Heroku and Cloud Run only set PORT. An explicit
	// --port or PLANTIFY_PORT still wins.
	if port := os.Getenv("PORT"); port != "" && os.Getenv("PLANTIFY_PORT") == "" && !changed(flags, "port") {
		cfg.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func changed(flags *pflag.FlagSet, name string) bool {
	if flags == nil {
		return false
	}
	f := flags.Lookup(name)
	return f != nil && f.Changed
}

// Validate reports settings that can never work.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port must not be empty")
	}
	if c.AnalysisDelay < 0 {
		return fmt.Errorf("analysis_delay must not be negative, got %s", c.AnalysisDelay)
	}
	return nil
}
