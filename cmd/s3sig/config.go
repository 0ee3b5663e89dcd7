package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/s3types"
)

// Config holds the CLI configuration.
//
// YAML example:
//
//	host: "localhost:4566"
//	accessKeyId: "test"
//	secretAccessKey: "test"
//	disableSSL: true
//	timeout: "30s"
//
// Environment overrides:
//
//	S3SIG_HOST, S3SIG_ACCESS_KEY_ID, S3SIG_SECRET_ACCESS_KEY,
//	S3SIG_DISABLE_SSL (true/false) and S3SIG_TIMEOUT (Go duration).
//	S3SIG_CONFIG names the YAML file when --config is not given.
//
// When no keys are configured they are resolved through the default AWS
// credential chain.
type Config struct {
	Host            string `yaml:"host"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	DisableSSL      bool   `yaml:"disableSSL"`
	Timeout         string `yaml:"timeout"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Host:    s3sig.DefaultHost,
		Timeout: "60s",
	}
}

// LoadConfig reads path, or $S3SIG_CONFIG when path is empty, on top of the
// defaults and applies environment overrides. No file at all is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv("S3SIG_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg, err := applyEnvOverrides(cfg)
	if err != nil {
		return Config{}, err
	}
	if _, err := cfg.timeout(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg Config) (Config, error) {
	if v := os.Getenv("S3SIG_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("S3SIG_ACCESS_KEY_ID"); v != "" {
		cfg.AccessKeyID = v
	}
	if v := os.Getenv("S3SIG_SECRET_ACCESS_KEY"); v != "" {
		cfg.SecretAccessKey = v
	}
	if v := os.Getenv("S3SIG_DISABLE_SSL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("S3SIG_DISABLE_SSL: %w", err)
		}
		cfg.DisableSSL = b
	}
	if v := os.Getenv("S3SIG_TIMEOUT"); v != "" {
		cfg.Timeout = v
	}
	return cfg, nil
}

func (c Config) timeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}

// Credential returns the configured keys, falling back to the default AWS
// credential chain when either key is missing.
func (c Config) Credential(ctx context.Context) (s3types.Credential, error) {
	if c.AccessKeyID != "" && c.SecretAccessKey != "" {
		cred := s3types.Credential{
			AccessKeyID:     c.AccessKeyID,
			SecretAccessKey: c.SecretAccessKey,
			Host:            c.Host,
		}
		return cred, cred.Validate()
	}
	return s3sig.LoadDefaultCredential(ctx, c.Host)
}
