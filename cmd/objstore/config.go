package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/dw/acid/pkg/engine/dbconfig"
)

// loadDBConfig reads an engine configuration from a YAML file, the same
// shape pkg/engine/dbconfig.DBConfiguration already unmarshals from a
// node's application configuration.
func loadDBConfig(path string) (dbconfig.DBConfiguration, error) {
	var cfg dbconfig.DBConfiguration
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

func decodeHexPrefix(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("--prefix must be hex-encoded: %w", err)
	}
	return b, nil
}

// parseKeyArg turns a command-line key argument into a tuple element: an
// int64 if it parses as one, otherwise a text element. Composite
// (multi-element) keys aren't reachable from the CLI -- dump/rebuild-index
// are single-collection inspection tools, not a general query language.
func parseKeyArg(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}
