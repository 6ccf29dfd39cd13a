// Copyright 2024 Greymass Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "drops.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	DataDir         string `yaml:"dataDir"         split_words:"true"`
	BindAddr        string `yaml:"bindAddr"        split_words:"true"`
	MetricsPort     uint   `yaml:"metricsPort"     split_words:"true"`
	LedgerAccount   string `yaml:"ledgerAccount"   split_words:"true"`
	ReserveAccount  string `yaml:"reserveAccount"  split_words:"true"`
	SystemAccount   string `yaml:"systemAccount"   split_words:"true"`
	EpochPhase      string `yaml:"epochPhase"      split_words:"true"`
	AdvanceCap      int    `yaml:"advanceCap"      split_words:"true"`
	AdvanceInterval string `yaml:"advanceInterval" split_words:"true"`
	ShutdownTimeout string `yaml:"shutdownTimeout" split_words:"true"`
	// Opening reserves for the storage market
	ExchangeStorageBytes int64 `yaml:"exchangeStorageBytes" split_words:"true"`
	ExchangeCurrency     int64 `yaml:"exchangeCurrency"     split_words:"true"`
}

var globalConfig = &Config{
	DataDir:              ".drops",
	BindAddr:             "0.0.0.0",
	MetricsPort:          12798,
	LedgerAccount:        "drops",
	ReserveAccount:       "reserve",
	SystemAccount:        "system",
	EpochPhase:           "1h",
	AdvanceCap:           100,
	AdvanceInterval:      "1m",
	ShutdownTimeout:      DefaultShutdownTimeout,
	ExchangeStorageBytes: 64 * 1024 * 1024 * 1024,
	ExchangeCurrency:     1_000_000_0000,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.drops/drops.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".drops", "drops.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		// Try to check for /etc/drops/drops.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/drops/drops.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		err = yaml.Unmarshal(buf, globalConfig)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	err := envconfig.Process("drops", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	// Validate durations up front so failures happen at startup
	if _, err := globalConfig.EpochPhaseDuration(); err != nil {
		return nil, err
	}
	if _, err := globalConfig.AdvanceIntervalDuration(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

func (c *Config) EpochPhaseDuration() (time.Duration, error) {
	ret, err := time.ParseDuration(c.EpochPhase)
	if err != nil {
		return 0, fmt.Errorf("invalid epoch phase: %w", err)
	}
	if ret <= 0 {
		return 0, fmt.Errorf("epoch phase must be positive")
	}
	return ret, nil
}

func (c *Config) AdvanceIntervalDuration() (time.Duration, error) {
	ret, err := time.ParseDuration(c.AdvanceInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid advance interval: %w", err)
	}
	if ret <= 0 {
		return 0, fmt.Errorf("advance interval must be positive")
	}
	return ret, nil
}
