package component

import (
	"time"

	ferrors "github.com/finam-ufz/finam/errors"
)

// Hooks is implemented by a hosted simulation component. The scheduler only
// ever calls these through Component's final wrapper methods, which handle
// state transitions and input/output freezing uniformly across every
// component. A panic raised inside a hook is not recovered by the wrappers.
type Hooks interface {
	// InitializeHooks registers the component's inputs and outputs.
	InitializeHooks(inputs *IOList[*Input], outputs *IOList[*Output]) error
	// ConnectHook runs one pass of the connect fixpoint and reports the
	// resulting state: Connected once every slot is resolved, Connecting if
	// this pass made any progress, ConnectingIdle if it made none.
	ConnectHook() (State, error)
	// ValidateHook runs once, after every component has reached Connected.
	ValidateHook() error
	// UpdateHook advances the component by one step.
	UpdateHook() error
	// FinalizeHook runs once the run loop has ended.
	FinalizeHook() error
}

// Component is the base embedded by every hosted simulation component. It
// owns the Input/Output slots, tracks lifecycle State, and exposes the
// final wrapper methods the scheduler calls: Initialize, Connect, Validate,
// Update, Finalize. Embedders implement Hooks and never override the
// wrappers themselves.
type Component struct {
	Name    string
	Hooks   Hooks
	status  State
	Inputs  *IOList[*Input]
	Outputs *IOList[*Output]
}

// NewComponent wires a Component around the hosted Hooks implementation.
func NewComponent(name string, hooks Hooks) *Component {
	return &Component{
		Name:    name,
		Hooks:   hooks,
		status:  Created,
		Inputs:  NewIOList[*Input]("inputs"),
		Outputs: NewIOList[*Output]("outputs"),
	}
}

// Status returns the component's current lifecycle state.
func (c *Component) Status() State { return c.status }

// Output returns the named output slot, for callers that only hold a
// Component by way of a generic interface (a manifest-driven registry,
// for instance) and need to reach a slot by name rather than by field.
func (c *Component) Output(name string) (*Output, error) {
	out, ok := c.Outputs.Get(name)
	if !ok {
		return nil, ferrors.Newf(ferrors.SetupError, c.Name, "Output", "no output slot named %q", name)
	}
	return out, nil
}

// Input returns the named input slot, the Input counterpart to Output.
func (c *Component) Input(name string) (*Input, error) {
	in, ok := c.Inputs.Get(name)
	if !ok {
		return nil, ferrors.Newf(ferrors.SetupError, c.Name, "Input", "no input slot named %q", name)
	}
	return in, nil
}

// EachOutput calls fn for every output slot in registration order, for a
// Composition propagating run-wide slot settings (memory limit, metrics
// hooks) into every hosted component without Component needing to expose
// its Outputs field through a dedicated setter per setting.
func (c *Component) EachOutput(fn func(name string, out *Output)) {
	c.Outputs.Each(fn)
}

func (c *Component) transition(next State) error {
	if !CanTransition(c.status, next) {
		return ferrors.Newf(ferrors.SetupError, c.Name, "transition", "illegal transition from %s to %s", c.status, next)
	}
	c.status = next
	return nil
}

// Initialize calls InitializeHooks, then freezes the input/output lists so
// no slot can be added once connect negotiation begins.
func (c *Component) Initialize() error {
	if err := c.Hooks.InitializeHooks(c.Inputs, c.Outputs); err != nil {
		c.status = Failed
		return ferrors.Wrap(ferrors.SetupError, c.Name, "Initialize", err)
	}
	c.Inputs.Freeze()
	c.Outputs.Freeze()
	return c.transition(Initialized)
}

// Connect runs one pass of the connect fixpoint and transitions to the
// state ConnectHook reports.
func (c *Component) Connect() error {
	next, err := c.Hooks.ConnectHook()
	if err != nil {
		c.status = Failed
		return ferrors.Wrap(ferrors.MetadataError, c.Name, "Connect", err)
	}
	return c.transition(next)
}

// Validate runs once every component in the composition has reached
// Connected.
func (c *Component) Validate() error {
	if err := c.Hooks.ValidateHook(); err != nil {
		c.status = Failed
		return ferrors.Wrap(ferrors.ComponentError, c.Name, "Validate", err)
	}
	return c.transition(Validated)
}

// Update advances the component by one step.
func (c *Component) Update() error {
	if err := c.Hooks.UpdateHook(); err != nil {
		c.status = Failed
		return ferrors.Wrap(ferrors.ComponentError, c.Name, "Update", err)
	}
	return c.transition(Updated)
}

// Finalize runs once the run loop has ended, successfully or not.
func (c *Component) Finalize() error {
	if err := c.Hooks.FinalizeHook(); err != nil {
		c.status = Failed
		return ferrors.Wrap(ferrors.ComponentError, c.Name, "Finalize", err)
	}
	return c.transition(Finalized)
}

// TimeComponent is the base for a stepping component that advances its own
// simulation time. The scheduler drives the run loop by repeatedly
// selecting the TimeComponent with the smallest Time and calling Update.
type TimeComponent struct {
	*Component
	currentTime time.Time
	nextTime    time.Time
}

// NewTimeComponent wires a TimeComponent around hooks, starting at zero
// time; hosted code sets a real starting time during InitializeHooks via
// SetTime.
func NewTimeComponent(name string, hooks Hooks) *TimeComponent {
	return &TimeComponent{Component: NewComponent(name, hooks)}
}

// Time returns the component's current simulation time.
func (c *TimeComponent) Time() time.Time { return c.currentTime }

// SetTime sets the component's current simulation time. A new time must
// not precede the previous one: the scheduler relies on time only ever
// advancing to make progress.
func (c *TimeComponent) SetTime(t time.Time) error {
	if !c.currentTime.IsZero() && t.Before(c.currentTime) {
		return ferrors.Newf(ferrors.ComponentError, c.Name, "SetTime", "time must not go backwards: %v is before current time %v", t, c.currentTime)
	}
	c.currentTime = t
	return nil
}

// NextTime returns the simulation time the component's next Update call
// will advance it to. Hosted code declares this via SetNextTime; if it
// never does, NextTime falls back to the current time.
func (c *TimeComponent) NextTime() time.Time {
	if c.nextTime.IsZero() {
		return c.currentTime
	}
	return c.nextTime
}

// SetNextTime declares the time the component's next Update call will
// advance it to, so the scheduler's dependency walk (composition.Stepper)
// can tell whether an upstream component needs to catch up before this
// one's next step, rather than before its current one.
func (c *TimeComponent) SetNextTime(t time.Time) error {
	if t.Before(c.currentTime) {
		return ferrors.Newf(ferrors.ComponentError, c.Name, "SetNextTime", "next time must not precede current time: %v is before %v", t, c.currentTime)
	}
	c.nextTime = t
	return nil
}
