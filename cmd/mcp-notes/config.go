package main

import (
	"encoding/json"
	"fmt"
	"io"
)

// runConfigCmd は有効な設定を表示、または--writeで設定ファイルに保存する
func runConfigCmd(args []string, stdout io.Writer) error {
	opts, err := parseFlags("config", args)
	if err != nil {
		return err
	}

	mgr, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if opts.Write {
		if err := mgr.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintf(stdout, "wrote config to %s\n", mgr.GetConfigPath())
		return nil
	}

	data, err := json.MarshalIndent(mgr.GetConfig(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintln(stdout, string(data))
	return nil
}
