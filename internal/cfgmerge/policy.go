package cfgmerge

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed deprecations.yaml
var defaultPolicyDocument []byte

// Policy lists options and whole sections that are no longer recognised by
// the firmware. A Policy is immutable once built.
type Policy struct {
	options  map[string]map[string]struct{}
	prefixes []string
}

type policyDocument struct {
	Sections        map[string][]string `yaml:"sections"`
	SectionPrefixes []string            `yaml:"section_prefixes"`
}

// NewPolicy builds a Policy from a section to deprecated-keys mapping and a
// list of deprecated section name prefixes.
func NewPolicy(options map[string][]string, sectionPrefixes []string) *Policy {
	p := &Policy{
		options: make(map[string]map[string]struct{}, len(options)),
	}

	for section, keys := range options {
		set := make(map[string]struct{}, len(keys))
		for _, key := range keys {
			set[key] = struct{}{}
		}
		p.options[section] = set
	}

	for _, prefix := range sectionPrefixes {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			p.prefixes = append(p.prefixes, prefix)
		}
	}

	return p
}

// ParsePolicy decodes a YAML policy document.
func ParsePolicy(content []byte) (*Policy, error) {
	var doc policyDocument
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse deprecation policy: %w", err)
	}

	return NewPolicy(doc.Sections, doc.SectionPrefixes), nil
}

// LoadPolicy reads a YAML policy document from path.
func LoadPolicy(path string) (*Policy, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deprecation policy %q: %w\nCheck the deprecations setting", path, err)
	}

	policy, err := ParsePolicy(content)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}

	return policy, nil
}

// DefaultPolicy returns the policy shipped with the updater.
func DefaultPolicy() *Policy {
	policy, err := ParsePolicy(defaultPolicyDocument)
	if err != nil {
		panic(err)
	}

	return policy
}

// SectionDeprecated reports whether every option of section is deprecated.
func (p *Policy) SectionDeprecated(section string) bool {
	if p == nil {
		return false
	}

	for _, prefix := range p.prefixes {
		if strings.HasPrefix(section, prefix) {
			return true
		}
	}

	return false
}

// OptionDeprecated reports whether key is deprecated within section.
func (p *Policy) OptionDeprecated(section, key string) bool {
	if p == nil {
		return false
	}

	_, ok := p.options[section][key]
	return ok
}
