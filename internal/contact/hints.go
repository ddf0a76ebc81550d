package contact

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// hintsFile mirrors the optional YAML override of the built-in hints.
//
// Example:
//
//	phone:
//	  triggers: ["ver telefone"]
//	  values: ["a[href^='tel:']"]
//	email:
//	  triggers: ["ver e-mail"]
type hintsFile map[string]struct {
	Triggers []string `yaml:"triggers"`
	Values   []string `yaml:"values"`
}

// LoadHints reads a hints file and returns a Resolver that falls back to the
// built-in hints for anything the file leaves out.
func LoadHints(path string) (Resolver, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ResolveOptions, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contact hints file: %w", err)
	}
	return ParseHints(b)
}

func ParseHints(b []byte) (Resolver, error) {
	var raw hintsFile
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse contact hints YAML: %w", err)
	}

	overrides := make(map[Kind]Options, len(raw))
	for key, h := range raw {
		kind := Kind(strings.ToLower(strings.TrimSpace(key)))
		if kind != Phone && kind != Email {
			return nil, fmt.Errorf("unknown contact kind %q in hints file", key)
		}

		o := ResolveOptions(kind)
		if triggers := cleanHints(h.Triggers); len(triggers) > 0 {
			o.TriggerHints = triggers
		}
		if values := cleanHints(h.Values); len(values) > 0 {
			o.ValueHints = values
		}
		overrides[kind] = o
	}

	return func(kind Kind) Options {
		if o, ok := overrides[kind]; ok {
			return o.clone()
		}
		return ResolveOptions(kind)
	}, nil
}

func cleanHints(in []string) []string {
	var out []string
	for _, h := range in {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
