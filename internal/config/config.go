// Package config loads minicc settings from TOML files.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/Masterminds/semver/v3"
	"github.com/naoina/toml"

	"github.com/ZMcc18/minicompiler/internal/codegen"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Compiler holds code generation settings.
type Compiler struct {
	OptLevel   int
	Target     string
	Output     string
	EmitIR     bool
	MinVersion string `toml:",omitempty"` // semver constraint on the running minicc
}

// Diagnostics holds reporting settings.
type Diagnostics struct {
	Color            string // auto, always or never
	MaxErrors        int    // 0 means unlimited
	WarningsAsErrors bool
}

// Watch holds settings for --watch mode.
type Watch struct {
	DebounceMillis int
	CacheSize      int
}

// Log holds logger settings.
type Log struct {
	Verbose bool
	Debug   bool
}

// Config is the full minicc configuration.
type Config struct {
	Compiler    Compiler
	Diagnostics Diagnostics
	Watch       Watch
	Log         Log
}

// Defaults contains the settings used when no file overrides them.
var Defaults = Config{
	Compiler: Compiler{
		OptLevel: 0,
		Target:   codegen.DefaultTargetTriple,
		Output:   "a.out",
	},
	Diagnostics: Diagnostics{
		Color: "auto",
	},
	Watch: Watch{
		DebounceMillis: 100,
		CacheSize:      64,
	},
}

// Load decodes the TOML file into cfg. Fields absent from the file keep
// their current values; unknown fields are an error.
func Load(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	if err != nil {
		return err
	}
	return cfg.Validate()
}

// Dump renders cfg as TOML.
func Dump(cfg *Config) ([]byte, error) {
	return tomlSettings.Marshal(cfg)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Compiler.OptLevel < 0 || c.Compiler.OptLevel > 2 {
		return fmt.Errorf("invalid optimization level %d (want 0, 1 or 2)", c.Compiler.OptLevel)
	}
	switch c.Diagnostics.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid color mode %q (want auto, always or never)", c.Diagnostics.Color)
	}
	if c.Diagnostics.MaxErrors < 0 {
		return fmt.Errorf("invalid MaxErrors %d", c.Diagnostics.MaxErrors)
	}
	if c.Watch.DebounceMillis < 0 {
		return fmt.Errorf("invalid watch debounce %dms (must not be negative)", c.Watch.DebounceMillis)
	}
	if c.Watch.CacheSize <= 0 {
		return fmt.Errorf("invalid watch cache size %d (must be positive)", c.Watch.CacheSize)
	}
	return nil
}

// CheckVersion reports an error when version does not satisfy constraint.
// An empty constraint accepts every version.
func CheckVersion(constraint, version string) error {
	if constraint == "" {
		return nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid constraint: %w", err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", version, err)
	}

	if !c.Check(v) {
		return fmt.Errorf("minicc %s does not satisfy required version %s", version, constraint)
	}
	return nil
}
