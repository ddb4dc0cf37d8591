package config

import "time"

type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	Identity IdentityConfig `yaml:"identity" json:"identity"`
	Chat     ChatConfig     `yaml:"chat" json:"chat"`
	Media    MediaConfig    `yaml:"media" json:"media"`
}

type ServerConfig struct {
	URL                string `yaml:"url" json:"url"`                               // base URL of the chat backend, e.g. https://chat.example.org
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify" json:"insecureSkipVerify"` // dev only
}

type AuthConfig struct {
	Token string `yaml:"token" json:"token"`
}

type IdentityConfig struct {
	UserID string `yaml:"userId" json:"userId"`
}

type ChatConfig struct {
	TypingExpiry         time.Duration `yaml:"typingExpiry" json:"typingExpiry"`                 // auto-clear of a stale typing indicator
	MaxReconnectAttempts int           `yaml:"maxReconnectAttempts" json:"maxReconnectAttempts"` // reconnects before giving up
	DedupCapacity        int           `yaml:"dedupCapacity" json:"dedupCapacity"`               // recently-seen message id window
}

type MediaConfig struct {
	KeyFile      string        `yaml:"keyFile" json:"keyFile"`           // PEM RSA private key used to unwrap content keys
	RawKeyMode   bool          `yaml:"rawKeyMode" json:"rawKeyMode"`     // test harnesses only: wrapped key field carries the raw content key
	FetchTimeout time.Duration `yaml:"fetchTimeout" json:"fetchTimeout"` // per ciphertext fetch
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL: "http://localhost:19820",
		},
		Chat: ChatConfig{
			TypingExpiry:         5 * time.Second,
			MaxReconnectAttempts: 5,
			DedupCapacity:        100,
		},
		Media: MediaConfig{
			FetchTimeout: 30 * time.Second,
		},
	}
}
