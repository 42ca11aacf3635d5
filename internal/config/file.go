package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	DatabaseURL   string `yaml:"database_url"`
	MediaDir      string `yaml:"media_dir"`
	APIBaseURL    string `yaml:"api_base_url"`
	UserAgent     string `yaml:"user_agent"`
	Timeout       string `yaml:"timeout"`
	OpenDownloads *bool  `yaml:"open_downloads"`
	RedisURL      string `yaml:"redis_url"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	LogOutput     string `yaml:"log_output"`
	Mirror        struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		Region    string `yaml:"region"`
		UseSSL    bool   `yaml:"use_ssl"`
	} `yaml:"mirror"`
}

// LoadFromFile loads config from a YAML file. Unset keys keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	c := Default()
	pick(&c.DatabaseURL, f.DatabaseURL)
	pick(&c.MediaDir, f.MediaDir)
	pick(&c.APIBaseURL, f.APIBaseURL)
	pick(&c.UserAgent, f.UserAgent)
	pick(&c.RedisURL, f.RedisURL)
	pick(&c.LogLevel, f.LogLevel)
	pick(&c.LogFormat, f.LogFormat)
	pick(&c.LogOutput, f.LogOutput)
	pick(&c.Mirror.Endpoint, f.Mirror.Endpoint)
	pick(&c.Mirror.AccessKey, f.Mirror.AccessKey)
	pick(&c.Mirror.SecretKey, f.Mirror.SecretKey)
	pick(&c.Mirror.Bucket, f.Mirror.Bucket)
	pick(&c.Mirror.Region, f.Mirror.Region)
	c.Mirror.UseSSL = f.Mirror.UseSSL
	if f.OpenDownloads != nil {
		c.OpenDownloads = *f.OpenDownloads
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			c.Timeout = d
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func pick(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
