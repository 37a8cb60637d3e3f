// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package config

import (
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	flag "github.com/spf13/pflag"

	"github.com/unknowntpo/scylladb/pkg/coderr"
)

// Parser builds a Config from command-line flags, then layers a TOML
// file and environment variables on top, mirroring cmd/meta/main.go's
// three-stage load (flags -> toml -> env) but built on spf13/pflag
// instead of hand-rolled os.Args scanning.
type Parser struct {
	flags     *flag.FlagSet
	cfgPath   string
	showUsage bool
	cfg       *Config
}

// MakeConfigParser returns a Parser with its flag set declared but not
// yet parsed.
func MakeConfigParser() (*Parser, error) {
	p := &Parser{flags: flag.NewFlagSet("ringd", flag.ContinueOnError)}
	p.flags.StringVarP(&p.cfgPath, "config", "c", "", "path to a TOML config file")
	p.flags.BoolVarP(&p.showUsage, "help", "h", false, "print usage and exit")
	return p, nil
}

// Parse parses args against the declared flags and returns a Config
// seeded with defaults. It returns coderr.PrintHelpUsage if -h/--help
// was passed, the same sentinel cmd/ringd checks for before treating any
// other error as fatal.
func (p *Parser) Parse(args []string) (*Config, error) {
	if err := p.flags.Parse(args); err != nil {
		return nil, ErrInvalidCommandArgs.Wrap(err)
	}
	if p.showUsage {
		if p.flags.Usage != nil {
			p.flags.Usage()
		} else {
			p.flags.PrintDefaults()
		}
		return nil, coderr.NewNormalizedCodeError(coderr.PrintHelpUsage, "usage requested")
	}
	p.cfg = DefaultConfig()
	return p.cfg, nil
}

// ParseConfigFromToml overlays cfgPath's contents onto the Config
// returned by Parse, if a path was given; a missing -c/--config flag is
// not an error, it just means "use the flag-seeded defaults".
func (p *Parser) ParseConfigFromToml() error {
	if p.cfgPath == "" {
		return nil
	}
	data, err := os.ReadFile(p.cfgPath)
	if err != nil {
		return ErrParseToml.Wrap(err)
	}
	if err := toml.Unmarshal(data, p.cfg); err != nil {
		return ErrParseToml.Wrap(err)
	}
	return nil
}

// ParseConfigFromEnv overlays a handful of RINGD_-prefixed environment
// variables onto the Config, the highest-precedence layer.
func (p *Parser) ParseConfigFromEnv() error {
	if v := os.Getenv("RINGD_DATA_DIR"); v != "" {
		p.cfg.DataDir = v
	}
	if v := os.Getenv("RINGD_ETCD_ENDPOINTS"); v != "" {
		p.cfg.Etcd.Endpoints = strings.Split(v, ",")
	}
	if v := os.Getenv("RINGD_LOG_LEVEL"); v != "" {
		p.cfg.Log.Level = v
	}
	return nil
}
