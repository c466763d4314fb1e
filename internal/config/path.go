package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultConfigDir はデフォルトの設定ディレクトリ名
	DefaultConfigDir = ".mcp-notes"
	// DefaultConfigFile はデフォルトの設定ファイル名
	DefaultConfigFile = "config.json"
	// DefaultServerName はデフォルトのサーバー名
	DefaultServerName = "notes-server"
	// DefaultHTTPAddr はHTTPトランスポートのデフォルトlisten address
	DefaultHTTPAddr = "127.0.0.1:8765"
)

// ExpandTilde は"~"をホームディレクトリに展開する
// "~/" で始まる場合のみ展開し、それ以外はそのまま返す
func ExpandTilde(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		// "~user" などはそのまま返す
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// GetDefaultConfigPath はデフォルトの設定ファイルパスを返す
// ~/.mcp-notes/config.json
func GetDefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), nil
}

// EnsureDir はディレクトリが存在することを確認し、なければ作成する
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
