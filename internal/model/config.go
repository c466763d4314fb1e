package model

import "fmt"

// Config はサーバー全体の設定を表す
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server" toml:"server"`
	Store   StoreConfig   `json:"store" yaml:"store" toml:"store"`
	Logging LoggingConfig `json:"logging" yaml:"logging" toml:"logging"`
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Name        string   `json:"name" yaml:"name" toml:"name"`
	Transport   string   `json:"transport" yaml:"transport" toml:"transport"`       // "stdio" | "http"
	Runtime     string   `json:"runtime" yaml:"runtime" toml:"runtime"`             // "builtin" | "sdk"
	HTTPAddr    string   `json:"httpAddr" yaml:"httpAddr" toml:"httpAddr"`          // 例: "127.0.0.1:8765"
	CORSOrigins []string `json:"corsOrigins,omitempty" yaml:"corsOrigins,omitempty" toml:"corsOrigins,omitempty"`
}

// StoreConfig はエンティティストア設定
type StoreConfig struct {
	Type        string `json:"type" yaml:"type" toml:"type"` // "memory" | "sqlite"
	SeedWelcome *bool  `json:"seedWelcome,omitempty" yaml:"seedWelcome,omitempty" toml:"seedWelcome,omitempty"`
}

// LoggingConfig はログ設定
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`    // "debug" | "info" | "warn" | "error"
	Format string `json:"format" yaml:"format" toml:"format"` // "text" | "json"
}

// Transport定数
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Runtime定数
const (
	RuntimeBuiltin = "builtin"
	RuntimeSDK     = "sdk"
)

// Store Type定数
const (
	StoreTypeMemory = "memory"
	StoreTypeSQLite = "sqlite"
)

// Log Format定数
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// ShouldSeedWelcome はWelcomeノートを投入するかを返す（未指定ならtrue）
func (c StoreConfig) ShouldSeedWelcome() bool {
	return c.SeedWelcome == nil || *c.SeedWelcome
}

// Validate は設定値のバリデーションを実行する
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("invalid server.transport: %q (must be stdio or http)", c.Server.Transport)
	}

	switch c.Server.Runtime {
	case RuntimeBuiltin, RuntimeSDK:
	default:
		return fmt.Errorf("invalid server.runtime: %q (must be builtin or sdk)", c.Server.Runtime)
	}

	// SDKランタイムはstdioのみ
	if c.Server.Runtime == RuntimeSDK && c.Server.Transport != TransportStdio {
		return fmt.Errorf("server.runtime sdk requires stdio transport")
	}

	if c.Server.Transport == TransportHTTP && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.httpAddr is required for http transport")
	}

	switch c.Store.Type {
	case StoreTypeMemory, StoreTypeSQLite:
	default:
		return fmt.Errorf("invalid store.type: %q (must be memory or sqlite)", c.Store.Type)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("invalid logging.format: %q (must be text or json)", c.Logging.Format)
	}

	return nil
}
