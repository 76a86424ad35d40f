package config

import (
	"bytes"
	_ "embed"
	"errors"
	"io"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/restql/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// Load reads a configuration file, applies defaults, and validates it.
//
// Files ending in .cue are unified with the embedded #Config schema;
// everything else is parsed as YAML. Unknown fields are rejected in both
// formats. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, ir.WrapError(ir.ErrCodeParse, err, "read config %s", path)
	}

	var cfg Config
	if filepath.Ext(path) == ".cue" {
		cfg, err = DecodeCUE(data, path)
	} else {
		cfg, err = DecodeYAML(data)
	}
	if err != nil {
		return Config{}, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DecodeYAML parses YAML configuration without applying defaults.
func DecodeYAML(data []byte) (Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, ir.WrapError(ir.ErrCodeParse, err, "parse YAML config")
	}
	return cfg, nil
}

// DecodeCUE parses CUE configuration against the #Config schema without
// applying defaults. filename is used in error positions.
func DecodeCUE(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, ir.WrapError(ir.ErrCodeParse, err, "compile config schema")
	}

	val := ctx.CompileBytes(data, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return Config{}, ir.WrapError(ir.ErrCodeParse, err, "parse CUE config")
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, ir.WrapError(ir.ErrCodeParse, err, "validate CUE config")
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, ir.WrapError(ir.ErrCodeParse, err, "decode CUE config")
	}
	return cfg, nil
}
