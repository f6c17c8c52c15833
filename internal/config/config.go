// Copyright 2025 Agentic World, LLC (Sherin Thomas)
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

// Package config loads the vinesnake configuration file. Every key has a
// default, so running without a config file is fully supported.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Store     StoreConfig     `mapstructure:"store"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig configures the HTTP transport of the tool server
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the host:port string for the HTTP transport
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RemoteConfig configures the rendering-service client
type RemoteConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxBodyMB      int    `mapstructure:"max_body_mb"`
}

// Timeout returns the per-call timeout as a duration
func (c RemoteConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MaxBodyBytes returns the response body cap in bytes
func (c RemoteConfig) MaxBodyBytes() int64 {
	return int64(c.MaxBodyMB) * 1024 * 1024
}

// CrawlConfig holds the traversal defaults applied when a tool call leaves
// them unset
type CrawlConfig struct {
	MaxDepth      int  `mapstructure:"max_depth"`
	MaxPages      int  `mapstructure:"max_pages"`
	MaxURLLength  int  `mapstructure:"max_url_length"`
	RespectRobots bool `mapstructure:"respect_robots"`
}

// ArtifactsConfig configures where screenshots and PDFs are written.
// An empty Dir selects the artifact store's own default directory.
type ArtifactsConfig struct {
	Dir string `mapstructure:"dir"`
}

// StoreConfig configures the session/crawl-history database. An empty Path
// selects the store's own default location.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LLMConfig configures the structured-extraction model endpoint
type LLMConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// LoggingConfig configures the process logger
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	Dir      string         `mapstructure:"dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// Load reads the configuration. With a non-empty configPath that exact file
// is used; otherwise config.yaml is searched in ./configs, the working
// directory, and ~/.vinesnake. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".vinesnake"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// No file found on the search path means defaults; an explicitly
		// named file that is missing or malformed is still an error.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &config, nil
}

// setDefaults registers the default for every configuration key
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8853)

	v.SetDefault("remote.base_url", "http://localhost:11235")
	v.SetDefault("remote.api_key", "")
	v.SetDefault("remote.timeout_seconds", 60)
	v.SetDefault("remote.max_body_mb", 10)

	v.SetDefault("crawl.max_depth", 3)
	v.SetDefault("crawl.max_pages", 50)
	v.SetDefault("crawl.max_url_length", 0)
	v.SetDefault("crawl.respect_robots", false)

	v.SetDefault("artifacts.dir", "")
	v.SetDefault("store.path", "")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "gpt-4o-mini")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.dir", "")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)
}
