package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// 設定ファイル形式
const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatTOML = "toml"
)

// formatOf は拡張子から設定ファイル形式を判定する
func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".toml":
		return formatTOML, nil
	default:
		return "", fmt.Errorf("unsupported config file extension: %q (use .json, .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

func decode(path string, data []byte, v any) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}

	switch format {
	case formatYAML:
		return yaml.Unmarshal(data, v)
	case formatTOML:
		_, err := toml.Decode(string(data), v)
		return err
	default:
		return json.Unmarshal(data, v)
	}
}

func encode(path string, v any) ([]byte, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case formatYAML:
		return yaml.Marshal(v)
	case formatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return json.MarshalIndent(v, "", "  ")
	}
}
