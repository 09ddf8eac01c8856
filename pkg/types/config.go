// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero leaves the transport default.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with outbound requests
	// (e.g. "florafind/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// PubMedConfig holds settings for the PubMed article lookup.
type PubMedConfig struct {
	// BaseURL is the E-utilities base, without a trailing slash.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// MaxResults is the default number of article URLs requested (default 5).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// Tool and Email identify the caller to NCBI. Both are optional.
	Tool  string `json:"tool,omitempty" yaml:"tool,omitempty" mapstructure:"tool"`
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`

	// APIKey raises the NCBI rate limit from 3 to 10 requests per second.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// AIConfig holds settings for the generative model behind plant profiles.
type AIConfig struct {
	// Model is the text model identifier (e.g. "gemini-2.0-flash").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// ImageModel is the model used for plant image generation.
	ImageModel string `json:"image_model" yaml:"image_model" mapstructure:"image_model"`

	// APIKey is the Gemini API key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// AuthConfig holds settings for accounts and sessions.
type AuthConfig struct {
	// DatabasePath is the SQLite file holding users and reset tokens.
	DatabasePath string `json:"database_path" yaml:"database_path" mapstructure:"database_path"`

	// SessionSecret signs session tokens.
	SessionSecret string `json:"session_secret,omitempty" yaml:"session_secret,omitempty" mapstructure:"session_secret"`

	// SessionTTL is how long a login stays valid (default 24h).
	SessionTTL time.Duration `json:"session_ttl" yaml:"session_ttl" mapstructure:"session_ttl"`

	// ResetTTL is how long a password reset token stays valid (default 1h).
	ResetTTL time.Duration `json:"reset_ttl" yaml:"reset_ttl" mapstructure:"reset_ttl"`

	// BaseURL is the public address used in password reset links.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
}

// ServerConfig holds settings for the web server.
type ServerConfig struct {
	Addr            string        `json:"addr" yaml:"addr" mapstructure:"addr"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// RateLimit is the number of model-backed requests allowed per client
	// per minute.
	RateLimit int `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// SecureCookies marks session cookies Secure. Enable behind TLS.
	SecureCookies bool `json:"secure_cookies" yaml:"secure_cookies" mapstructure:"secure_cookies"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `json:"level" yaml:"level" mapstructure:"level"`
	File  string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
}

// Config groups all component configurations.
type Config struct {
	HTTP   HTTPConfig   `json:"http" yaml:"http" mapstructure:"http"`
	PubMed PubMedConfig `json:"pubmed" yaml:"pubmed" mapstructure:"pubmed"`
	AI     AIConfig     `json:"ai" yaml:"ai" mapstructure:"ai"`
	Auth   AuthConfig   `json:"auth" yaml:"auth" mapstructure:"auth"`
	Server ServerConfig `json:"server" yaml:"server" mapstructure:"server"`
	Log    LogConfig    `json:"log" yaml:"log" mapstructure:"log"`
}
