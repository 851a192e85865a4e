package yolocrop

// Class registry loaded from a YOLO dataset manifest (data.yaml).

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// RegistryOptions controls how a class manifest is interpreted.
type RegistryOptions struct {
	// SynthesizeNames accepts a manifest with only a class count (nc) and names the classes
	// class_0, class_1, ... Without it such a manifest is rejected.
	SynthesizeNames bool
}

// ClassRegistry maps dense, zero-based class indices to directory-safe class names.
type ClassRegistry struct {
	names []string
}

// manifest is the subset of data.yaml that is read. Names is either a sequence of names or a
// mapping from index to name.
type manifest struct {
	Names yaml.Node `yaml:"names"`
	NC    *int      `yaml:"nc"`
}

// LoadClassRegistry reads the class manifest at path. All failures are returned as *ConfigError.
func LoadClassRegistry(path string, opts RegistryOptions) (*ClassRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	r, err := parseClassManifest(data, opts)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return r, nil
}

func parseClassManifest(data []byte, opts RegistryOptions) (*ClassRegistry, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("malformed manifest: %w", err)
	}

	hasNames := m.Names.Kind != 0 && m.Names.Tag != "!!null"
	switch {
	case hasNames:
		raw, err := decodeNames(&m.Names)
		if err != nil {
			return nil, err
		}
		if m.NC != nil && *m.NC != len(raw) {
			warnf("manifest declares nc=%d but lists %d names, using the names", *m.NC, len(raw))
		}
		return NewClassRegistry(raw)

	case m.NC != nil:
		if !opts.SynthesizeNames {
			return nil, fmt.Errorf("manifest has nc=%d but no names; enable name synthesis to use"+
				" generated labels", *m.NC)
		}
		if *m.NC <= 0 {
			return nil, fmt.Errorf("invalid class count nc=%d", *m.NC)
		}
		raw := make([]string, *m.NC)
		for i := range raw {
			raw[i] = fmt.Sprintf("class_%d", i)
		}
		return NewClassRegistry(raw)
	}

	return nil, errors.New(`manifest has neither "names" nor "nc"`)
}

// decodeNames accepts names: [a, b] and names: {0: a, 1: b}.
func decodeNames(n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := n.Decode(&names); err != nil {
			return nil, fmt.Errorf("invalid names list: %w", err)
		}
		return names, nil

	case yaml.MappingNode:
		var byIndex map[int]string
		if err := n.Decode(&byIndex); err != nil {
			return nil, fmt.Errorf("invalid names mapping: %w", err)
		}
		names := make([]string, len(byIndex))
		for i := range names {
			name, ok := byIndex[i]
			if !ok {
				return nil, fmt.Errorf("names mapping is not dense: missing index %d", i)
			}
			names[i] = name
		}
		return names, nil
	}

	return nil, fmt.Errorf("names must be a list or an index mapping, got %s", n.Tag)
}

// NewClassRegistry builds a registry from raw class names in index order. Names are sanitized
// with SanitizeClassName and must be non-empty and unique after sanitizing.
func NewClassRegistry(rawNames []string) (*ClassRegistry, error) {
	if len(rawNames) == 0 {
		return nil, errors.New("no class names")
	}

	names := make([]string, len(rawNames))
	seen := make(map[string]int, len(rawNames))
	for i, raw := range rawNames {
		name := SanitizeClassName(raw)
		if name == "" {
			return nil, fmt.Errorf("class %d has an empty name", i)
		}
		if j, dup := seen[name]; dup {
			return nil, fmt.Errorf("classes %d and %d both map to directory %q", j, i, name)
		}
		seen[name] = i
		names[i] = name
	}

	return &ClassRegistry{names: names}, nil
}

// SanitizeClassName replaces whitespace and path separators with underscores so the name can be
// used as a single directory component.
func SanitizeClassName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)
}

// Len is the number of classes.
func (r *ClassRegistry) Len() int {
	return len(r.names)
}

// Name returns the sanitized name for class index i.
func (r *ClassRegistry) Name(i int) (string, bool) {
	if i < 0 || i >= len(r.names) {
		return "", false
	}
	return r.names[i], true
}

// Index returns the class index for a sanitized name, or -1.
func (r *ClassRegistry) Index(name string) int {
	for i, n := range r.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Names returns a copy of the class names in index order.
func (r *ClassRegistry) Names() []string {
	return append([]string(nil), r.names...)
}
