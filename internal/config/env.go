package config

import (
	"os"
	"regexp"

	"github.com/brbranch/notes_mcp/internal/model"
)

// 環境変数名の定数
const (
	EnvStore     = "MCP_NOTES_STORE"
	EnvLogLevel  = "MCP_NOTES_LOG_LEVEL"
	EnvTransport = "MCP_NOTES_TRANSPORT"
)

// envRefPattern は設定ファイル中の ${VAR} 参照
var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ApplyEnvOverrides は環境変数による設定上書きを適用する
// config を直接変更する
func ApplyEnvOverrides(config *model.Config) {
	if v := os.Getenv(EnvStore); v != "" {
		config.Store.Type = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv(EnvTransport); v != "" {
		config.Server.Transport = v
	}
}

// ExpandEnv は ${VAR} 形式の参照を環境変数の値に置き換える
// 未定義の変数は空文字になる。$VAR 形式は展開しない
func ExpandEnv(s string) string {
	return envRefPattern.ReplaceAllStringFunc(s, func(ref string) string {
		name := envRefPattern.FindStringSubmatch(ref)[1]
		return os.Getenv(name)
	})
}
