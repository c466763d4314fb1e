package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/brbranch/notes_mcp/internal/model"
)

// Manager は設定の読み書きを管理する
type Manager struct {
	mu         sync.RWMutex
	config     *model.Config
	configPath string
}

// NewManager は新しいManagerを作成する
// configPathが空文字の場合、デフォルトパス（~/.mcp-notes/config.json）を使用
func NewManager(configPath string) (*Manager, error) {
	if configPath == "" {
		defaultPath, err := GetDefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default config path: %w", err)
		}
		configPath = defaultPath
	}

	expanded, err := ExpandTilde(configPath)
	if err != nil {
		return nil, err
	}

	if _, err := formatOf(expanded); err != nil {
		return nil, err
	}

	return &Manager{
		config:     DefaultConfig(),
		configPath: expanded,
	}, nil
}

// Load は設定を読み込む
// 優先順位: デフォルト → 設定ファイル（存在する場合）→ 環境変数
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	config := DefaultConfig()

	data, err := os.ReadFile(m.configPath)
	switch {
	case os.IsNotExist(err):
		// ファイルがなければデフォルト設定を使う
	case err != nil:
		return fmt.Errorf("failed to read config file: %w", err)
	default:
		// 未指定のフィールドはデフォルト値が残る
		if err := decode(m.configPath, []byte(ExpandEnv(string(data))), config); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", m.configPath, err)
		}
	}

	ApplyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	m.config = config
	return nil
}

// Save は設定ファイルを保存する（形式は拡張子に従う）
func (m *Manager) Save() error {
	m.mu.RLock()
	config := m.config
	m.mu.RUnlock()

	if err := EnsureDir(filepath.Dir(m.configPath)); err != nil {
		return err
	}

	data, err := encode(m.configPath, config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 一時ファイルに書き込み（atomicな保存のため）
	tmpFile := m.configPath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}

	if err := os.Rename(tmpFile, m.configPath); err != nil {
		os.Remove(tmpFile) // クリーンアップ
		return fmt.Errorf("failed to rename config file: %w", err)
	}

	return nil
}

// GetConfig は現在の設定を返す
func (m *Manager) GetConfig() *model.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetConfigPath は設定ファイルパスを返す
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// Update は設定を変更する（CLIフラグの上書き用）
// 変更後の設定が不正な場合は変更しない
func (m *Manager) Update(fn func(cfg *model.Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := *m.config
	next.Server.CORSOrigins = append([]string(nil), m.config.Server.CORSOrigins...)
	fn(&next)

	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	m.config = &next
	return nil
}

// NewManagerWithConfig は指定した設定でManagerを作成する（テスト用）
func NewManagerWithConfig(cfg *model.Config) *Manager {
	return &Manager{
		config:     cfg,
		configPath: "", // テスト用なので空
	}
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() *model.Config {
	return &model.Config{
		Server: model.ServerConfig{
			Name:      DefaultServerName,
			Transport: model.TransportStdio,
			Runtime:   model.RuntimeBuiltin,
			HTTPAddr:  DefaultHTTPAddr,
		},
		Store: model.StoreConfig{
			Type: model.StoreTypeMemory,
		},
		Logging: model.LoggingConfig{
			Level:  "info",
			Format: model.LogFormatText,
		},
	}
}
