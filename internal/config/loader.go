package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (Default())
//  2. file (YAML) if path or REBIN_CONFIG is set
//  3. env (prefix REBIN_, underscores map to dots: REBIN_REASONING_API_KEY)
func Load(path string) (*Config, error) {
	base := Default()

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv("REBIN_CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// REBIN_SERVER_ADDR -> server.addr, REBIN_DATA_DIR -> data_dir, etc.
	// Section names are single words, so only the first underscore after a
	// known section name becomes a separator.
	envProvider := env.Provider("REBIN_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "REBIN_"))
		for _, section := range []string{"server", "detector", "reasoning", "speech"} {
			if strings.HasPrefix(s, section+"_") {
				return section + "." + strings.TrimPrefix(s, section+"_")
			}
		}
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Server.Addr == "" {
		return nil, errors.New("server.addr must not be empty")
	}
	if cfg.DataDir == "" {
		return nil, errors.New("data_dir must not be empty")
	}
	return &cfg, nil
}
