package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Filters holds the input patterns of each command
type Filters struct {
	ARC     []string `mapstructure:"arc"`
	GLB     []string `mapstructure:"glb"`
	CDFiles []string `mapstructure:"cdfiles"`
	ARCN    []string `mapstructure:"arcn"`
	LDA     []string `mapstructure:"lda"`
}

type Config struct {
	OutputDir        string  `mapstructure:"output_dir"`
	TextureFormat    string  `mapstructure:"texture_format"`
	TextureCacheSize int     `mapstructure:"texture_cache_size"`
	Catalog          string  `mapstructure:"catalog"`
	LogLevel         string  `mapstructure:"log_level"`
	LogFormat        string  `mapstructure:"log_format"`
	Filters          Filters `mapstructure:"filters"`
}

// Load initializes and loads configuration from file
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("output_dir", "")
	v.SetDefault("texture_format", "png")
	v.SetDefault("texture_cache_size", 256)
	v.SetDefault("catalog", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("filters.arc", []string{"**/*.arc"})
	v.SetDefault("filters.glb", []string{"**/*.glb", "**/*.gltf"})
	v.SetDefault("filters.cdfiles", []string{"**/cdfiles*.dat"})
	v.SetDefault("filters.arcn", []string{"**/*.arc"})
	v.SetDefault("filters.lda", []string{"**/*.lda"})

	v.SetEnvPrefix("arcbank")
	v.AutomaticEnv()

	// Config file handling
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigName("arcbank")
		v.SetConfigType("yaml")
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
