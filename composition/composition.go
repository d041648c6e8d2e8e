// Package composition assembles independently-authored components and
// adapters into a runnable coupled simulation: it owns the connect
// fixpoint across every component, the dependency-aware scheduler that
// drives the run loop, and the metadata snapshot used for diagnostics.
package composition

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/finam-ufz/finam/component"
	ferrors "github.com/finam-ufz/finam/errors"
	"github.com/finam-ufz/finam/metric"
	"github.com/google/uuid"
)

// ChainStage is implemented by every adapter usable inside Link's chain
// argument: it can be pulled from like an Output and pushed to like an
// Input, and it can be spliced between two slots by binding a single
// upstream source and a single downstream target.
type ChainStage interface {
	component.Pullable
	component.Notifiable
	SetSource(component.Pullable) error
	AddTarget(component.Notifiable) error
}

// Source is satisfied by a component's upstream slot: an Output, a
// CallbackOutput, or anything else a Link can pull from and bind targets
// onto.
type Source interface {
	component.Pullable
	AddTarget(component.Notifiable) error
}

// Sink is satisfied by a component's downstream slot: an Input, a
// CallbackInput, or anything else a Link can bind a single upstream source
// into.
type Sink interface {
	component.Notifiable
	SetSource(component.Pullable) error
}

type notifier interface {
	AddTarget(component.Notifiable) error
}

// noDependency is satisfied by an adapter (currently only FixedDelay) that
// the scheduler must not treat as introducing a dependency on its source.
type noDependency interface {
	WithDelay(t time.Time) time.Time
}

// named is satisfied by an adapter that can report its own name for
// diagnostics, without the caller needing its concrete type.
type named interface {
	Named() string
}

// outputLister is satisfied by any component.Component-embedding
// Participant; duck-typed here rather than exported from component so that
// a Participant never needs to implement it on purpose. Composition uses it
// to propagate its slot memory-limit/spill options and metrics hooks into
// every hosted component's Output slots.
type outputLister interface {
	EachOutput(fn func(name string, out *component.Output))
}

// Participant is implemented by everything Composition schedules through
// the lifecycle: both time-stepping components and static, non-stepping
// ones.
type Participant interface {
	Initialize() error
	Connect() error
	Validate() error
	Finalize() error
	Status() component.State
}

// Stepper is a Participant that advances its own simulation time; the run
// loop only ever calls Update on these.
type Stepper interface {
	Participant
	Time() time.Time
	// NextTime reports the time this step's Update call will advance to.
	// The scheduler's dependency walk uses it, rather than Time, to decide
	// whether an upstream dependency still needs to catch up: comparing
	// against Time alone only works when every coupled component shares
	// the same step size.
	NextTime() time.Time
	Update() error
}

type entry struct {
	id   string
	name string
	part Participant
	step Stepper // nil if part does not implement Stepper
}

// stageRef names one adapter in a link's chain, for Metadata's adapters map.
type stageRef struct {
	id   string
	name string
}

type link struct {
	from, to string
	cut      bool
	stages   []stageRef
}

// Composition is the coupled-simulation container: the set of components,
// the links between their slots, and the options governing logging and
// output memory retention.
type Composition struct {
	logger     *slog.Logger
	entries    []*entry
	byName     map[string]*entry
	links      []link
	stopped    bool
	slotMemory int64
	slotSpill  string
	metrics    *metric.Metrics
	runStart   time.Time
	runEnd     time.Time
}

// Option configures a Composition at construction time.
type Option func(*Composition)

// WithLogger overrides the default stderr text logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composition) { c.logger = logger }
}

// WithLogLevel replaces the logger with a stderr text logger at the given
// minimum level. Options apply in order, so it overrides an earlier
// WithLogger and is overridden by a later one.
func WithLogLevel(level slog.Level) Option {
	return func(c *Composition) {
		c.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
}

// WithSlotMemoryLimit sets the per-output history budget, in bytes, beyond
// which an Output should spill to disk rather than retain data in memory.
func WithSlotMemoryLimit(bytes int64) Option {
	return func(c *Composition) { c.slotMemory = bytes }
}

// WithSlotMemoryLocation sets the directory used for the disk spill
// WithSlotMemoryLimit enables.
func WithSlotMemoryLocation(dir string) Option {
	return func(c *Composition) { c.slotSpill = dir }
}

// WithMetrics attaches a metric.Metrics instance the Composition records
// component state, update, connect-pass, and scheduler error metrics
// against. Without it, the Composition records nothing.
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Composition) { c.metrics = m }
}

// New creates an empty Composition.
func New(opts ...Option) *Composition {
	c := &Composition{
		logger: slog.New(slog.NewTextHandler(os.Stderr, nil)),
		byName: map[string]*entry{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddComponent registers a component under name. name must be unique
// within the composition.
func (c *Composition) AddComponent(name string, p Participant) error {
	if _, exists := c.byName[name]; exists {
		return ferrors.Newf(ferrors.SetupError, "composition", "AddComponent", "component %q already registered", name)
	}
	e := &entry{id: uuid.NewString(), name: name, part: p}
	if s, ok := p.(Stepper); ok {
		e.step = s
	}
	c.entries = append(c.entries, e)
	c.byName[name] = e
	return nil
}

// Link binds from to to, optionally through a chain of adapters, and
// records the coupling as a scheduling dependency: the scheduler will
// never advance toComponent past a point where fromComponent's data isn't
// available yet, unless the chain passes through an adapter (a fixed
// delay) that breaks the dependency on purpose.
//
// Link also runs the dead-link check (S4): it walks from's capability
// through every stage to to's, and fails SetupError if a point that only
// ever serves a pull (NeedsPull) feeds, with nothing able to push in
// between, a point that only ever reacts to a push (NeedsPush). Such a
// link can never actually exchange data.
func (c *Composition) Link(fromComponent string, from Source, toComponent string, to Sink, stages ...ChainStage) error {
	if _, ok := c.byName[fromComponent]; !ok {
		return ferrors.Newf(ferrors.SetupError, "composition", "Link", "unknown component %q", fromComponent)
	}
	if _, ok := c.byName[toComponent]; !ok {
		return ferrors.Newf(ferrors.SetupError, "composition", "Link", "unknown component %q", toComponent)
	}

	sawPullOnly := needsPull(from)

	var prev component.Pullable = from
	var prevNotifier notifier = from
	cut := false
	refs := make([]stageRef, 0, len(stages))

	for _, stage := range stages {
		if sawPullOnly && needsPush(stage) {
			return deadLinkError(fromComponent, toComponent)
		}
		if needsPull(stage) {
			sawPullOnly = true
		}

		if err := stage.SetSource(prev); err != nil {
			return err
		}
		if err := prevNotifier.AddTarget(stage); err != nil {
			return err
		}
		if _, ok := stage.(noDependency); ok {
			cut = true
		}
		refs = append(refs, stageRef{id: uuid.NewString(), name: stageName(stage)})
		prev = stage
		prevNotifier = stage
	}

	if sawPullOnly && needsPush(to) {
		return deadLinkError(fromComponent, toComponent)
	}

	if err := to.SetSource(prev); err != nil {
		return err
	}
	if err := prevNotifier.AddTarget(to); err != nil {
		return err
	}

	c.links = append(c.links, link{from: fromComponent, to: toComponent, cut: cut, stages: refs})
	return nil
}

func needsPull(v any) bool {
	c, ok := v.(component.Capabilities)
	return ok && c.NeedsPull()
}

func needsPush(v any) bool {
	c, ok := v.(component.Capabilities)
	return ok && c.NeedsPush()
}

func stageName(stage ChainStage) string {
	if n, ok := stage.(named); ok {
		return n.Named()
	}
	return "adapter"
}

func deadLinkError(fromComponent, toComponent string) error {
	return ferrors.Wrap(ferrors.SetupError, "composition", "Link",
		fmt.Errorf("dead link between %q and %q: %w", fromComponent, toComponent, ferrors.ErrDeadLink))
}

// Stop requests that Run return after the current step finishes, the
// cooperative cancellation latch checked once per scheduler iteration.
func (c *Composition) Stop() {
	c.stopped = true
}

// Initialize runs Initialize on every registered component, in
// registration order.
func (c *Composition) Initialize() error {
	for _, e := range c.entries {
		if err := e.part.Initialize(); err != nil {
			return err
		}
	}
	c.configureSlots()
	return nil
}

// configureSlots propagates WithSlotMemoryLimit/WithSlotMemoryLocation and,
// if WithMetrics was given, spill/memory-usage reporting hooks into every
// hosted component's Output slots. Runs once, after every component has
// registered its slots during Initialize.
func (c *Composition) configureSlots() {
	for _, e := range c.entries {
		lister, ok := e.part.(outputLister)
		if !ok {
			continue
		}
		name := e.name
		lister.EachOutput(func(outName string, out *component.Output) {
			out.SetMemoryLimit(c.slotMemory, c.slotSpill)
			if c.metrics != nil {
				out.SetMetricsHook(
					func() { c.metrics.RecordSpillToDisk(name, outName) },
					func(bytes int64) { c.metrics.RecordOutputMemory(name, outName, bytes) },
				)
			}
		})
	}
}

// closeSlots removes every hosted component's spill scratch file, the
// shared scratch directory's per-run cleanup.
func (c *Composition) closeSlots() {
	for _, e := range c.entries {
		lister, ok := e.part.(outputLister)
		if !ok {
			continue
		}
		lister.EachOutput(func(_ string, out *component.Output) {
			_ = out.Close()
		})
	}
}

// Connect runs the connect fixpoint to completion: repeated passes over
// every not-yet-Connected component until all are Connected, or until a
// full pass makes no progress at all (ConnectStalled).
func (c *Composition) Connect() error {
	for {
		allConnected := true
		anyProgress := false

		for _, e := range c.entries {
			if e.part.Status() == component.Connected {
				continue
			}
			allConnected = false
			if err := e.part.Connect(); err != nil {
				c.recordSchedulerError(err)
				return err
			}
			if c.metrics != nil {
				c.metrics.RecordConnectPass(e.name, e.part.Status().String())
			}
			if e.part.Status() != component.ConnectingIdle {
				anyProgress = true
			}
		}

		if allConnected {
			break
		}
		if !anyProgress {
			err := ferrors.Newf(ferrors.ConnectStalled, "composition", "Connect", "connect fixpoint stalled: every unresolved component reported CONNECTING_IDLE")
			c.recordSchedulerError(err)
			return err
		}
	}

	for _, e := range c.entries {
		if err := e.part.Validate(); err != nil {
			c.recordSchedulerError(err)
			return err
		}
		c.recordState(e)
	}
	return nil
}

func (c *Composition) recordState(e *entry) {
	if c.metrics != nil {
		c.metrics.RecordComponentState(e.name, int(e.part.Status()))
	}
}

func (c *Composition) recordSchedulerError(err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordSchedulerError(ferrors.KindOf(err).String())
}

// Run drives the scheduler from the current time of every Stepper up to
// endTime: at each iteration it picks the Stepper with the smallest
// current time and advances exactly one Stepper by one step, either the
// first dependency (found recursively) that is still behind the
// candidate's next time, or the candidate itself. Run returns once every Stepper has reached
// endTime or Stop has been called.
//
// If the scheduler fails mid-run, Run still finalizes every component that
// reached VALIDATED or UPDATED before surfacing the original error: a
// failed Update leaves those components' lifecycle incomplete otherwise.
func (c *Composition) Run(endTime time.Time) error {
	if c.runStart.IsZero() {
		c.runStart = c.earliestTime()
	}
	c.runEnd = endTime

	var runErr error
	for !c.stopped {
		next := c.earliest(endTime)
		if next == nil {
			break
		}
		if err := c.updateRecursive(next, map[Stepper]bool{}, nil); err != nil {
			c.recordSchedulerError(err)
			runErr = err
			break
		}
	}

	for _, e := range c.entries {
		status := e.part.Status()
		if status != component.Validated && status != component.Updated {
			continue
		}
		if err := e.part.Finalize(); err != nil {
			c.recordSchedulerError(err)
			if runErr == nil {
				runErr = err
			}
			continue
		}
		c.recordState(e)
	}
	c.closeSlots()
	return runErr
}

func (c *Composition) earliest(endTime time.Time) Stepper {
	var best Stepper
	for _, e := range c.entries {
		if e.step == nil {
			continue
		}
		if !e.step.Time().Before(endTime) {
			continue
		}
		if best == nil || e.step.Time().Before(best.Time()) {
			best = e.step
		}
	}
	return best
}

// earliestTime returns the smallest current time across every Stepper, the
// simulation start recorded in Metadata's time_frame.
func (c *Composition) earliestTime() time.Time {
	var best time.Time
	for _, e := range c.entries {
		if e.step == nil {
			continue
		}
		if best.IsZero() || e.step.Time().Before(best) {
			best = e.step.Time()
		}
	}
	return best
}

func (c *Composition) entryOf(s Stepper) *entry {
	for _, e := range c.entries {
		if e.step == s {
			return e
		}
	}
	return nil
}

// updateRecursive looks for the first not-cut dependency of s whose time is
// before s's next time and recurses into it, returning after that one
// step without updating s; only when no dependency is behind does it
// update s itself. chain tracks the
// components visited on the current recursion path: revisiting one without
// having passed through a cut (delayed) link is an unresolved cycle (P5).
func (c *Composition) updateRecursive(s Stepper, chain map[Stepper]bool, path []string) error {
	self := c.entryOf(s)
	if self == nil {
		return s.Update()
	}
	if chain[s] {
		return ferrors.Newf(ferrors.SetupError, "composition", "Run", "circular coupling without a delay: %v", append(path, self.name))
	}
	chain[s] = true
	defer delete(chain, s)

	for _, lk := range c.links {
		if lk.to != self.name || lk.cut {
			continue
		}
		dep := c.byName[lk.from]
		if dep == nil || dep.step == nil {
			continue
		}
		if dep.step.Time().Before(s.NextTime()) {
			// Only the first blocking dependency is advanced, by one step,
			// and this call returns without updating s: a single step may
			// not be enough to catch a slower-stepping dependency all the
			// way up to s.NextTime(). The outer Run loop re-picks the
			// earliest Stepper and re-walks until every dependency clears,
			// rather than this call looping to catch each one up itself.
			return c.updateRecursive(dep.step, chain, append(path, self.name))
		}
	}

	if err := s.Update(); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.RecordUpdate(self.name)
	}
	c.recordState(self)
	return nil
}

// Metadata returns a diagnostic snapshot of the composition, mirroring the
// shape of the original Composition.metadata: every registered component
// keyed "name@id", every adapter stage used by a link keyed the same way,
// every link between them, and the time_frame (start, end) of the run.
func (c *Composition) Metadata() map[string]any {
	components := map[string]any{}
	for _, e := range c.entries {
		key := fmt.Sprintf("%s@%s", e.name, e.id)
		entryInfo := map[string]any{"status": e.part.Status().String()}
		if e.step != nil {
			entryInfo["time"] = e.step.Time()
		}
		components[key] = entryInfo
	}

	adapters := map[string]any{}
	links := make([]map[string]any, 0, len(c.links))
	for _, lk := range c.links {
		stageKeys := make([]string, 0, len(lk.stages))
		for _, ref := range lk.stages {
			key := fmt.Sprintf("%s@%s", ref.name, ref.id)
			adapters[key] = map[string]any{"from": lk.from, "to": lk.to}
			stageKeys = append(stageKeys, key)
		}
		links = append(links, map[string]any{
			"from":     lk.from,
			"to":       lk.to,
			"delayed":  lk.cut,
			"adapters": stageKeys,
		})
	}

	return map[string]any{
		"version":    "1",
		"components": components,
		"adapters":   adapters,
		"links":      links,
		"time_frame": [2]time.Time{c.runStart, c.runEnd},
	}
}
