// Package config resolves boxplan settings from, in increasing precedence:
// built-in defaults, a YAML file, a .env file and BOXPLAN_* environment
// variables. Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/haricheung/boxplan/internal/planner"
	"github.com/haricheung/boxplan/internal/workspace"
)

// DefaultFile is read from the working directory when no file is named.
const DefaultFile = "boxplan.yaml"

// EnvPrefix prefixes every environment variable config reads.
const EnvPrefix = "BOXPLAN_"

// Planner configures the external planner process.
type Planner struct {
	Command  string        `yaml:"command" validate:"required"`
	Args     []string      `yaml:"args"`
	PlanBase string        `yaml:"plan_base" validate:"required,excludes=/"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
	Grace    time.Duration `yaml:"grace" validate:"gte=0"`
}

// Config is the resolved configuration.
type Config struct {
	Planner     Planner `yaml:"planner"`
	Workspace   string  `yaml:"workspace" validate:"required"`
	KeepWorkdir bool    `yaml:"keep_workdir"`
	LogDir      string  `yaml:"log_dir"` // empty: <workspace>/logs
	LogLevel    string  `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat   string  `yaml:"log_format" validate:"oneof=text json"`
}

// Options controls where Load looks. Zero values use the defaults.
type Options struct {
	File    string                          // YAML file; must exist when set
	EnvFile string                          // .env file; missing is fine
	Lookup  func(key string) (string, bool) // defaults to os.LookupEnv
}

var validate = validator.New()

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Planner: Planner{
			Command:  planner.DefaultCommand,
			Args:     planner.DefaultArgs(),
			PlanBase: planner.DefaultPlanBase,
			Grace:    5 * time.Second,
		},
		Workspace: workspace.DefaultRoot,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load resolves the configuration.
//
// Expectations:
//   - A named File that does not exist is an error; a missing DefaultFile is not
//   - Unknown YAML keys are an error
//   - The .env file is loaded into the process environment without
//     overriding variables that are already set
//   - BOXPLAN_* variables override the file
//   - The result is validated; the error names the failing field
func Load(opts Options) (*Config, error) {
	cfg := Default()

	path, required := opts.File, true
	if path == "" {
		path, required = DefaultFile, false
	}
	if err := cfg.mergeFile(path, required); err != nil {
		return nil, err
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: %s: %w", envFile, err)
	}
	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := cfg.mergeEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: %s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// RunLogDir is where per-run JSONL logs go.
func (c *Config) RunLogDir() string {
	if c.LogDir != "" {
		return workspace.ExpandHome(c.LogDir)
	}
	return filepath.Join(workspace.ExpandHome(c.Workspace), "logs")
}

func (c *Config) mergeFile(path string, required bool) error {
	f, err := os.Open(workspace.ExpandHome(path))
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
		}
		*dst = d
		return nil
	}

	str("PLANNER_COMMAND", &c.Planner.Command)
	if v, ok := lookup(EnvPrefix + "PLANNER_ARGS"); ok && v != "" {
		c.Planner.Args = strings.Fields(v)
	}
	str("PLAN_BASE", &c.Planner.PlanBase)
	if err := dur("PLANNER_TIMEOUT", &c.Planner.Timeout); err != nil {
		return err
	}
	if err := dur("PLANNER_GRACE", &c.Planner.Grace); err != nil {
		return err
	}
	str("WORKSPACE", &c.Workspace)
	if v, ok := lookup(EnvPrefix + "KEEP_WORKDIR"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %sKEEP_WORKDIR: %w", EnvPrefix, err)
		}
		c.KeepWorkdir = b
	}
	str("LOG_DIR", &c.LogDir)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	return nil
}
