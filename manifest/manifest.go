// Package manifest reads the declarative YAML description of a coupled
// simulation: which named components take part, what each expects to be
// configured with, and how their slots are linked. A manifest only
// describes topology; instantiating the named components into running
// Go values is the hosting program's job, typically through a registry
// keyed by the same Type string used here.
package manifest

import (
	"fmt"
	"os"

	ferrors "github.com/finam-ufz/finam/errors"
	"gopkg.in/yaml.v3"
)

// ComponentSpec names one participant in the composition and the type used
// to look it up in the hosting program's component registry.
type ComponentSpec struct {
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:"config,omitempty"`
}

// AdapterSpec names one adapter stage spliced into a Link's chain.
type AdapterSpec struct {
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:"config,omitempty"`
}

// LinkSpec couples one component's output slot to another's input slot,
// optionally through a chain of adapters.
type LinkSpec struct {
	From     string        `yaml:"from"`
	Output   string        `yaml:"output"`
	To       string        `yaml:"to"`
	Input    string        `yaml:"input"`
	Adapters []AdapterSpec `yaml:"adapters,omitempty"`
}

// Manifest is the full declarative description of a composition.
type Manifest struct {
	Version    string          `yaml:"version"`
	Components []ComponentSpec `yaml:"components"`
	Links      []LinkSpec      `yaml:"links"`
}

// Load reads and parses a manifest file.
func Load(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, ferrors.Wrap(ferrors.SetupError, "manifest", "Load", err)
	}
	return Parse(raw)
}

// Parse decodes raw YAML bytes into a Manifest.
func Parse(raw []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, ferrors.Wrap(ferrors.SetupError, "manifest", "Parse", err)
	}
	return m, nil
}

// Validate checks the manifest is internally consistent: component names
// are unique and non-empty, and every link references declared components
// and names both an output and an input slot. It does not check that those
// slot names exist on the components, nor that named Types are
// registered anywhere; that can only be checked once a registry is in
// hand, which is the hosting program's responsibility.
func (m Manifest) Validate() error {
	seen := map[string]bool{}
	for _, c := range m.Components {
		if c.Name == "" {
			return ferrors.Newf(ferrors.SetupError, "manifest", "Validate", "component with empty name")
		}
		if c.Type == "" {
			return ferrors.Newf(ferrors.SetupError, "manifest", "Validate", "component %q has no type", c.Name)
		}
		if seen[c.Name] {
			return ferrors.Newf(ferrors.SetupError, "manifest", "Validate", "duplicate component name %q", c.Name)
		}
		seen[c.Name] = true
	}

	for i, l := range m.Links {
		if !seen[l.From] {
			return ferrors.Newf(ferrors.SetupError, "manifest", "Validate", "link %d: unknown source component %q", i, l.From)
		}
		if !seen[l.To] {
			return ferrors.Newf(ferrors.SetupError, "manifest", "Validate", "link %d: unknown target component %q", i, l.To)
		}
		if l.Output == "" {
			return ferrors.Newf(ferrors.SetupError, "manifest", "Validate", "link %d: missing output slot name", i)
		}
		if l.Input == "" {
			return ferrors.Newf(ferrors.SetupError, "manifest", "Validate", "link %d: missing input slot name", i)
		}
	}
	return nil
}

// ComponentNames returns the declared component names, in manifest order.
func (m Manifest) ComponentNames() []string {
	names := make([]string, len(m.Components))
	for i, c := range m.Components {
		names[i] = c.Name
	}
	return names
}

// Summary renders a short human-readable description of the manifest's
// topology, used by the describe command.
func (m Manifest) Summary() string {
	out := fmt.Sprintf("version %s, %d component(s), %d link(s)\n", m.Version, len(m.Components), len(m.Links))
	for _, c := range m.Components {
		out += fmt.Sprintf("  component %s (%s)\n", c.Name, c.Type)
	}
	for _, l := range m.Links {
		chain := ""
		for _, a := range l.Adapters {
			chain += fmt.Sprintf(" -> %s", a.Type)
		}
		out += fmt.Sprintf("  link %s.%s%s -> %s.%s\n", l.From, l.Output, chain, l.To, l.Input)
	}
	return out
}
