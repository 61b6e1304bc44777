package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// ConfigEnv names the config file used when --config is not given.
const ConfigEnv = "DECXSPEC_CONFIG"

// FileConfig is the harness configuration read from YAML or JSON.
type FileConfig struct {
	Command     string            `yaml:"command" json:"command"`
	DummyDir    string            `yaml:"dummyDir" json:"dummyDir"`
	Specs       []string          `yaml:"specs" json:"specs"`
	Timeout     string            `yaml:"timeout" json:"timeout"`
	Build       string            `yaml:"build" json:"build"`
	Report      string            `yaml:"report" json:"report"`
	KeepSandbox bool              `yaml:"keepSandbox" json:"keepSandbox"`
	Shell       string            `yaml:"shell" json:"shell"`
	Env         map[string]string `yaml:"env" json:"env"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// runConfig is what the run command works with after flags and config file
// were merged.
type runConfig struct {
	FileConfig
	timeout time.Duration
}

// mergeConfig overlays fc with every flag that was set explicitly.
func mergeConfig(fc FileConfig, flags *pflag.FlagSet) (cfg runConfig, err error) {
	set := func(name string, dst *string) {
		if flags.Changed(name) || *dst == "" {
			*dst, _ = flags.GetString(name)
		}
	}
	set("command", &fc.Command)
	set("dummy", &fc.DummyDir)
	set("build", &fc.Build)
	set("report", &fc.Report)
	set("shell", &fc.Shell)
	if flags.Changed("keep") {
		fc.KeepSandbox, _ = flags.GetBool("keep")
	}
	cfg.FileConfig = fc
	if flags.Changed("timeout") || fc.Timeout == "" {
		cfg.timeout, _ = flags.GetDuration("timeout")
	} else if cfg.timeout, err = time.ParseDuration(fc.Timeout); err != nil {
		return cfg, fmt.Errorf("config timeout: %w", err)
	}
	return cfg, nil
}
