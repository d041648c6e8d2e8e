// Package registry resolves a manifest's component and adapter type names
// against factory functions a hosting program has registered, and wires the
// resulting components into a runnable composition.Composition. It is the
// generic counterpart to composition.Link/AddComponent, which a Go program
// authoring its coupling by hand calls directly instead.
package registry

import (
	"time"

	"github.com/finam-ufz/finam/adapter"
	"github.com/finam-ufz/finam/component"
	"github.com/finam-ufz/finam/composition"
	ferrors "github.com/finam-ufz/finam/errors"
	"github.com/finam-ufz/finam/fdata"
	"github.com/finam-ufz/finam/manifest"
)

// ComponentFactory builds a registered component type from its manifest
// config block.
type ComponentFactory func(name string, cfg map[string]any) (composition.Participant, error)

// AdapterFactory builds a registered adapter type from its manifest config
// block.
type AdapterFactory func(cfg map[string]any) (composition.ChainStage, error)

// slotHost is satisfied by any component.Component-embedding Participant;
// duck-typed here rather than exported from component so that a Participant
// never needs to implement it on purpose.
type slotHost interface {
	Output(name string) (*component.Output, error)
	Input(name string) (*component.Input, error)
}

// Registry holds the component and adapter factories a hosting program has
// registered, keyed by the Type string manifests refer to them by.
type Registry struct {
	components map[string]ComponentFactory
	adapters   map[string]AdapterFactory
}

// New creates a Registry pre-populated with the built-in adapter types
// (scale, delay, time-caching) so manifests can use them without a caller
// registering anything.
func New() *Registry {
	r := &Registry{
		components: map[string]ComponentFactory{},
		adapters:   map[string]AdapterFactory{},
	}
	r.registerBuiltinAdapters()
	return r
}

// RegisterComponent adds a component factory under type name typeName.
func (r *Registry) RegisterComponent(typeName string, factory ComponentFactory) error {
	if _, exists := r.components[typeName]; exists {
		return ferrors.Newf(ferrors.SetupError, "registry", "RegisterComponent", "component type %q already registered", typeName)
	}
	r.components[typeName] = factory
	return nil
}

// RegisterAdapter adds an adapter factory under type name typeName,
// overriding a built-in of the same name if present.
func (r *Registry) RegisterAdapter(typeName string, factory AdapterFactory) error {
	r.adapters[typeName] = factory
	return nil
}

func (r *Registry) registerBuiltinAdapters() {
	r.adapters["Scale"] = func(cfg map[string]any) (composition.ChainStage, error) {
		factor, _ := cfg["factor"].(float64)
		return adapter.NewScale("scale", factor, fdataUnitFromConfig(cfg)), nil
	}
	r.adapters["PreviousTime"] = func(map[string]any) (composition.ChainStage, error) {
		return adapter.NewPreviousTime("previous-time"), nil
	}
	r.adapters["NextTime"] = func(map[string]any) (composition.ChainStage, error) {
		return adapter.NewNextTime("next-time"), nil
	}
	r.adapters["LinearTime"] = func(map[string]any) (composition.ChainStage, error) {
		return adapter.NewLinearTime("linear-time"), nil
	}
	r.adapters["ExtrapolateTime"] = func(map[string]any) (composition.ChainStage, error) {
		return adapter.NewExtrapolateTime("extrapolate-time"), nil
	}
	r.adapters["StackTime"] = func(map[string]any) (composition.ChainStage, error) {
		return adapter.NewStackTime("stack-time"), nil
	}
	r.adapters["Integrate"] = func(cfg map[string]any) (composition.ChainStage, error) {
		average, _ := cfg["average"].(bool)
		return adapter.NewIntegrate("integrate", average), nil
	}
	r.adapters["FixedDelay"] = func(cfg map[string]any) (composition.ChainStage, error) {
		seconds, _ := cfg["seconds"].(float64)
		return adapter.NewFixedDelay("fixed-delay", time.Duration(seconds*float64(time.Second))), nil
	}
}

func fdataUnitFromConfig(cfg map[string]any) fdata.Unit {
	symbol, _ := cfg["units"].(string)
	if symbol == "" {
		return fdata.Unit{}
	}
	return fdata.ParseUnit(symbol)
}

// Build instantiates every component and link named in m, using this
// Registry's factories, and returns a ready-to-Initialize Composition.
func (r *Registry) Build(m manifest.Manifest) (*composition.Composition, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	comp := composition.New()
	built := map[string]composition.Participant{}

	for _, c := range m.Components {
		factory, ok := r.components[c.Type]
		if !ok {
			return nil, ferrors.Newf(ferrors.SetupError, "registry", "Build", "no component factory registered for type %q", c.Type)
		}
		participant, err := factory(c.Name, c.Config)
		if err != nil {
			return nil, ferrors.Wrap(ferrors.SetupError, "registry", "Build", err)
		}
		if err := comp.AddComponent(c.Name, participant); err != nil {
			return nil, err
		}
		built[c.Name] = participant
	}

	for _, l := range m.Links {
		fromHost, ok := built[l.From].(slotHost)
		if !ok {
			return nil, ferrors.Newf(ferrors.SetupError, "registry", "Build", "component %q does not expose named slots", l.From)
		}
		toHost, ok := built[l.To].(slotHost)
		if !ok {
			return nil, ferrors.Newf(ferrors.SetupError, "registry", "Build", "component %q does not expose named slots", l.To)
		}

		out, err := fromHost.Output(l.Output)
		if err != nil {
			return nil, err
		}
		in, err := toHost.Input(l.Input)
		if err != nil {
			return nil, err
		}

		stages := make([]composition.ChainStage, 0, len(l.Adapters))
		for _, a := range l.Adapters {
			factory, ok := r.adapters[a.Type]
			if !ok {
				return nil, ferrors.Newf(ferrors.SetupError, "registry", "Build", "no adapter factory registered for type %q", a.Type)
			}
			stage, err := factory(a.Config)
			if err != nil {
				return nil, ferrors.Wrap(ferrors.SetupError, "registry", "Build", err)
			}
			stages = append(stages, stage)
		}

		if err := comp.Link(l.From, out, l.To, in, stages...); err != nil {
			return nil, err
		}
	}

	return comp, nil
}
