package config

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

const yamlIndent = 2

// Encode writes the persisted fields of c as YAML.
func (c *Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(yamlIndent)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// Describe renders c as a YAML document headed by comments naming the
// files it was layered from, lowest precedence first.
func (c *Config) Describe(sources []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# Effective pawnls configuration.\n")
	if len(sources) == 0 {
		buf.WriteString("# No configuration files found; built-in defaults apply.\n")
	} else {
		buf.WriteString("# Layered from:\n")
		for _, src := range sources {
			fmt.Fprintf(&buf, "#   %s\n", src)
		}
	}
	buf.WriteByte('\n')
	if err := c.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FromYAML parses a configuration document. Fields absent from the
// document keep their zero value.
func FromYAML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return cfg, nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.IncludeRoots = slices.Clone(c.IncludeRoots)
	clone.Extensions = slices.Clone(c.Extensions)
	clone.Ignore = slices.Clone(c.Ignore)
	if c.Defines != nil {
		clone.Defines = maps.Clone(c.Defines)
	}
	return &clone
}
