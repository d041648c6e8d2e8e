package component

import (
	"encoding/gob"
	"fmt"
	"os"
	"sort"
	"time"

	ferrors "github.com/finam-ufz/finam/errors"
	"github.com/finam-ufz/finam/fdata"
)

// Pullable is implemented by anything an Input can pull data and metadata
// from: an Output, or an Adapter standing in front of one.
type Pullable interface {
	GetData(t time.Time, target Notifiable) (fdata.Envelope, error)
	GetInfo(info fdata.Info) (fdata.Info, error)
}

// Pushable is implemented by anything data and metadata can be pushed into:
// an Input, or an Adapter standing in front of one.
type Pushable interface {
	PushData(env fdata.Envelope) error
	PushInfo(info fdata.Info) error
}

// Notifiable is implemented by anything that wants to hear about a new push
// on its source without pulling right away.
type Notifiable interface {
	SourceUpdated(t time.Time)
}

// Capabilities is implemented by every slot and adapter stage: it reports
// whether the data it exchanges is only ever obtained by pulling, or only
// ever obtained by being pushed into. The composition's dead-link check
// walks a link's chain looking for a pull-only point followed by a
// push-only one, since such a chain can never actually move data.
type Capabilities interface {
	NeedsPull() bool
	NeedsPush() bool
}

// timeSample pairs a push time with the Envelope pushed at it.
type timeSample struct {
	time time.Time
	env  fdata.Envelope
}

// spillRecord is the on-disk form of one spilled history entry. Grid and
// Units are not persisted: they are invariant across a single Output's
// history (every Envelope it produces shares o.info's Grid/Units), so
// restore reattaches them from the live Output rather than round-tripping
// fdata.Grid, an interface gob cannot decode without a type registry.
type spillRecord struct {
	Time    time.Time
	Payload []float64
	Shape   []int
}

// Output is a named source slot owned by a component. It retains pushed
// data in a time-indexed history and serves pulls from one or more
// targets, pruning retained history to the oldest watermark still needed
// across all of them.
type Output struct {
	Name      string
	static    bool
	memLimit  int64
	info      fdata.Info
	infoSet   bool
	history   []timeSample
	targets   []Notifiable
	connected map[Notifiable]time.Time
	totalMem  int64

	spillDir   string
	spillTimes []time.Time
	spillFile  *os.File
	spillEnc   *gob.Encoder
	onSpill    func()
	onMemory   func(bytes int64)
}

// NewOutput creates an unconnected Output. static outputs accept exactly
// one push and hand every target the same Envelope regardless of the time
// requested.
func NewOutput(name string, static bool) *Output {
	return &Output{Name: name, static: static, connected: map[Notifiable]time.Time{}}
}

// AddTarget registers target as a consumer of this output, so that future
// pushes notify it and its watermark is tracked for history pruning.
func (o *Output) AddTarget(target Notifiable) error {
	o.targets = append(o.targets, target)
	return nil
}

// PushInfo absorbs metadata the Output doesn't yet have set. Calling it more
// than once is safe: an already-set field is never overwritten.
func (o *Output) PushInfo(info fdata.Info) error {
	if o.infoSet {
		o.info = o.info.Merge(info)
	} else {
		o.info = info
		o.infoSet = true
	}
	return nil
}

// GetInfo returns the Output's current Info, absorbing any field of it that
// is still unset from requested. It fails NoData while no Info has been
// pushed yet, which the connect fixpoint absorbs and retries.
func (o *Output) GetInfo(requested fdata.Info) (fdata.Info, error) {
	if !o.infoSet {
		return fdata.Info{}, ferrors.Newf(ferrors.NoData, o.Name, "GetInfo", "no info has been pushed yet")
	}
	o.info = o.info.Merge(requested)
	return o.info, nil
}

// HasInfo reports whether PushInfo has ever been called.
func (o *Output) HasInfo() bool { return o.infoSet }

// SetMemoryLimit configures the Output's byte budget and the directory
// entries beyond that budget are spooled to. A limit of zero or less
// disables spilling: PushData then retains every entry in memory, the
// behavior before this was configurable. Composition calls this on every
// output once after Initialize, propagating its WithSlotMemoryLimit/
// WithSlotMemoryLocation options to each slot.
func (o *Output) SetMemoryLimit(limit int64, spillDir string) {
	o.memLimit = limit
	o.spillDir = spillDir
}

// SetMetricsHook wires optional callbacks the Output invokes on a spill
// event and after every memory-usage change, so a Composition with metrics
// attached can report them without this package depending on metric.
func (o *Output) SetMetricsHook(onSpill func(), onMemory func(bytes int64)) {
	o.onSpill = onSpill
	o.onMemory = onMemory
}

// Close removes the Output's spill file, if one was ever created. Called
// once a run's finalize pass completes, matching the scratch directory's
// per-run cleanup contract.
func (o *Output) Close() error {
	if o.spillFile == nil {
		return nil
	}
	name := o.spillFile.Name()
	_ = o.spillFile.Close()
	o.spillFile = nil
	o.spillEnc = nil
	return os.Remove(name)
}

// NeedsPull reports false: a regular Output is served by push, not pull.
func (o *Output) NeedsPull() bool { return false }

// NeedsPush reports true: a regular Output only ever gets data through
// PushData; nothing computes it lazily on a pull.
func (o *Output) NeedsPush() bool { return true }

// PushData validates value against the Output's Info and appends it to
// history, then notifies every target. A static Output accepts exactly one
// push; a later one is a SetupError.
func (o *Output) PushData(value []float64, shape []int, at time.Time) error {
	if o.static && len(o.history) > 0 {
		return ferrors.Newf(ferrors.SetupError, o.Name, "PushData", "static output %q was pushed to more than once", o.Name)
	}
	if len(o.history) > 0 && !at.After(o.history[len(o.history)-1].time) {
		return ferrors.Newf(ferrors.DataError, o.Name, "PushData", "push time %v does not strictly advance past last push time %v", at, o.history[len(o.history)-1].time)
	}

	var previous *fdata.Envelope
	if len(o.history) > 0 {
		previous = &o.history[len(o.history)-1].env
	}
	env, err := fdata.Prepare(o.Name, "PushData", value, shape, o.info, at, previous)
	if err != nil {
		return err
	}

	o.history = append(o.history, timeSample{time: at, env: env})
	o.totalMem += int64(len(value)) * 8
	if err := o.spillOverflow(); err != nil {
		return err
	}
	o.notifyTargets(at)
	return nil
}

// spillOverflow spools the oldest retained entries to the scratch directory
// until the Output's memory budget is satisfied, or fails OutOfRange if no
// directory is configured or the spill write itself fails. A limit of zero
// or less leaves history entirely in memory.
func (o *Output) spillOverflow() error {
	if o.memLimit <= 0 {
		return nil
	}
	for o.totalMem > o.memLimit && len(o.history) > 1 {
		if err := o.spillOldest(); err != nil {
			return err
		}
	}
	if o.onMemory != nil {
		o.onMemory(o.totalMem)
	}
	return nil
}

// spillOldest writes the single oldest retained entry to the scratch file,
// opening it lazily on first use, and drops it from in-memory history.
func (o *Output) spillOldest() error {
	if o.spillFile == nil {
		if err := o.openSpillFile(); err != nil {
			return ferrors.Wrap(ferrors.OutOfRange, o.Name, "PushData", err)
		}
	}

	oldest := o.history[0]
	rec := spillRecord{Time: oldest.time, Payload: oldest.env.Payload, Shape: oldest.env.Shape}
	if err := o.spillEnc.Encode(rec); err != nil {
		return ferrors.Wrap(ferrors.OutOfRange, o.Name, "PushData", err)
	}

	o.spillTimes = append(o.spillTimes, oldest.time)
	o.totalMem -= int64(len(oldest.env.Payload)) * 8
	o.history = o.history[1:]
	if o.onSpill != nil {
		o.onSpill()
	}
	return nil
}

// openSpillFile creates this Output's unique scratch file in the shared
// spill directory. The filename carries the output's name so that several
// slots spilling to the same directory never collide.
func (o *Output) openSpillFile() error {
	if o.spillDir == "" {
		return fmt.Errorf("no scratch directory configured for output %q", o.Name)
	}
	f, err := os.CreateTemp(o.spillDir, fmt.Sprintf("finam-%s-*.spill", o.Name))
	if err != nil {
		return err
	}
	o.spillFile = f
	o.spillEnc = gob.NewEncoder(f)
	return nil
}

// restoreFromSpill sequentially scans the scratch file for the step-left
// match at t: the last spilled record at or before t. Grid and Units are
// reattached from the Output's own Info, since they are never persisted
// per record. Returns found=false, not an error, when t precedes every
// spilled record or nothing has ever been spilled.
func (o *Output) restoreFromSpill(t time.Time) (fdata.Envelope, bool, error) {
	if o.spillFile == nil || len(o.spillTimes) == 0 || t.Before(o.spillTimes[0]) {
		return fdata.Envelope{}, false, nil
	}

	f, err := os.Open(o.spillFile.Name())
	if err != nil {
		return fdata.Envelope{}, false, ferrors.Wrap(ferrors.OutOfRange, o.Name, "GetData", err)
	}
	defer f.Close()

	dec := gob.NewDecoder(f)
	var match *spillRecord
	for {
		var rec spillRecord
		if err := dec.Decode(&rec); err != nil {
			break
		}
		if rec.Time.After(t) {
			break
		}
		found := rec
		match = &found
	}
	if match == nil {
		return fdata.Envelope{}, false, nil
	}
	return fdata.Envelope{
		Payload: match.Payload,
		Shape:   match.Shape,
		Grid:    o.info.Grid,
		Units:   o.info.Units,
		Time:    match.Time,
	}, true, nil
}

func (o *Output) notifyTargets(at time.Time) {
	for _, t := range o.targets {
		t.SourceUpdated(at)
	}
}

// GetData returns the Envelope valid at t for target: the static push if
// the Output is static, otherwise the step-left interpolation of history
// (the latest retained entry at or before t), then prunes history entries
// no longer needed by any target.
func (o *Output) GetData(t time.Time, target Notifiable) (fdata.Envelope, error) {
	if len(o.history) == 0 {
		return fdata.Envelope{}, ferrors.Newf(ferrors.NoData, o.Name, "GetData", "no data has been pushed yet")
	}
	if o.static {
		return o.history[0].env, nil
	}

	env, err := o.interpolate(t)
	if err != nil {
		return fdata.Envelope{}, err
	}
	if target != nil {
		o.connected[target] = t
		o.pruneHistory()
	}
	return env, nil
}

// interpolate applies the step-left rule: the returned Envelope is the
// latest entry whose time is at or before t. A request for a time before
// the oldest retained entry is a NoData error.
func (o *Output) interpolate(t time.Time) (fdata.Envelope, error) {
	idx := sort.Search(len(o.history), func(i int) bool {
		return o.history[i].time.After(t)
	})
	if idx == 0 {
		if env, found, err := o.restoreFromSpill(t); err != nil {
			return fdata.Envelope{}, err
		} else if found {
			return env, nil
		}
		return fdata.Envelope{}, ferrors.Newf(ferrors.NoData, o.Name, "GetData", "no data at or before %v; oldest retained is %v", t, o.history[0].time)
	}
	return o.history[idx-1].env, nil
}

// pruneHistory drops every entry strictly older than the minimum watermark
// across all connected targets, keeping at least one entry so a late
// target can still be served.
func (o *Output) pruneHistory() {
	if len(o.connected) == 0 || len(o.connected) < len(o.targets) {
		return
	}
	var min time.Time
	first := true
	for _, t := range o.connected {
		if first || t.Before(min) {
			min = t
			first = false
		}
	}
	idx := sort.Search(len(o.history), func(i int) bool {
		return o.history[i].time.After(min)
	})
	if idx > 0 {
		idx--
	}
	if idx > 0 {
		o.history = o.history[idx:]
	}
}

// Input is a named target slot owned by a component. It pulls data and
// metadata from a single bound source, which may be another component's
// Output or an Adapter chain in front of one.
type Input struct {
	Name           string
	static         bool
	source         Pullable
	cachedStatic   *fdata.Envelope
	requestedInfo  fdata.Info
	resolvedInfo   fdata.Info
	infoExchanged  bool
}

// NewInput creates an unbound Input.
func NewInput(name string, static bool) *Input {
	return &Input{Name: name, static: static}
}

// SetSource binds the Input to source. Rebinding an already-bound Input is
// a programming error: sources are bound once, during composition wiring.
func (in *Input) SetSource(source Pullable) error {
	if in.source != nil {
		return ferrors.Wrap(ferrors.SetupError, in.Name, "SetSource", ferrors.ErrAlreadyBound)
	}
	in.source = source
	return nil
}

// SourceUpdated is the default no-op hook; a pull-based Input doesn't act
// on push notifications, it simply pulls when asked.
func (in *Input) SourceUpdated(time.Time) {}

// NeedsPull reports true: a regular Input is pulled from on the scheduler's
// own schedule rather than reacting to pushes.
func (in *Input) NeedsPull() bool { return true }

// NeedsPush reports false: a regular Input never needs to be pushed into.
func (in *Input) NeedsPush() bool { return false }

// ExchangeInfo negotiates metadata with the bound source: it pushes
// requested upstream, reads back the source's resolved Info, checks it is
// acceptable, and caches the result. Calling it again after the first
// successful exchange is a no-op returning the cached result, matching the
// source idempotency guarantee Info.Merge provides.
func (in *Input) ExchangeInfo(requested fdata.Info) (fdata.Info, error) {
	if in.infoExchanged {
		return in.resolvedInfo, nil
	}
	if in.source == nil {
		return fdata.Info{}, ferrors.Newf(ferrors.SetupError, in.Name, "ExchangeInfo", "input %q has no bound source", in.Name)
	}

	in.requestedInfo = requested
	srcInfo, err := in.source.GetInfo(requested)
	if err != nil {
		return fdata.Info{}, err
	}

	ok, reason := requested.Accepts(srcInfo, false)
	if !ok {
		return fdata.Info{}, ferrors.Newf(ferrors.MetadataError, in.Name, "ExchangeInfo", "%s", reason)
	}

	in.resolvedInfo = requested.Merge(srcInfo)
	in.infoExchanged = true
	return in.resolvedInfo, nil
}

// PullData retrieves the Envelope valid at t from the bound source,
// converting units onto the resolved Info if they differ and transforming
// the grid if the source's grid is only compatible by an axis transform.
// A static Input caches its single pull and returns it on every later call
// regardless of t.
func (in *Input) PullData(t time.Time) (fdata.Envelope, error) {
	if in.static && in.cachedStatic != nil {
		return *in.cachedStatic, nil
	}
	if in.source == nil {
		return fdata.Envelope{}, ferrors.Newf(ferrors.SetupError, in.Name, "PullData", "input %q has no bound source", in.Name)
	}

	env, err := in.source.GetData(t, in)
	if err != nil {
		return fdata.Envelope{}, err
	}

	env, err = in.convertAndCheck(env)
	if err != nil {
		return fdata.Envelope{}, err
	}

	if in.static {
		in.cachedStatic = &env
	}
	return env, nil
}

func (in *Input) convertAndCheck(env fdata.Envelope) (fdata.Envelope, error) {
	if in.resolvedInfo.Grid != nil && env.Grid != nil && !env.Grid.Equal(in.resolvedInfo.Grid) {
		tr, ok := env.Grid.TransformTo(in.resolvedInfo.Grid)
		if !ok {
			return fdata.Envelope{}, ferrors.Newf(ferrors.MetadataError, in.Name, "PullData", "pulled grid is incompatible with the resolved grid")
		}
		env = fdata.TransformGrid(env, in.resolvedInfo.Grid, tr)
	}

	if in.resolvedInfo.Units.IsUnset() || env.Units.EquivalentTo(in.resolvedInfo.Units) {
		return env, nil
	}
	return fdata.ConvertUnits(in.Name, "PullData", env, in.resolvedInfo.Units)
}

// CallbackOutput is an Output that computes its data on demand instead of
// retaining history: GetData invokes callback rather than reading a push.
type CallbackOutput struct {
	*Output
	callback func(t time.Time) ([]float64, []int, error)
}

// NewCallbackOutput creates a CallbackOutput that computes its Envelope
// lazily via callback whenever GetData is called.
func NewCallbackOutput(name string, callback func(t time.Time) ([]float64, []int, error)) *CallbackOutput {
	return &CallbackOutput{Output: NewOutput(name, false), callback: callback}
}

// GetData calls the callback, validates the result against Info, and
// returns it without consulting or mutating history.
func (o *CallbackOutput) GetData(t time.Time, target Notifiable) (fdata.Envelope, error) {
	value, shape, err := o.callback(t)
	if err != nil {
		return fdata.Envelope{}, ferrors.Wrap(ferrors.ComponentError, o.Name, "GetData", err)
	}
	return fdata.Prepare(o.Name, "GetData", value, shape, o.info, t, nil)
}

// NeedsPull overrides Output: a CallbackOutput only ever serves a pull, it
// is never pushed into.
func (o *CallbackOutput) NeedsPull() bool { return true }

// NeedsPush overrides Output: nothing needs to push into a CallbackOutput.
func (o *CallbackOutput) NeedsPush() bool { return false }

// CallbackInput is an Input that reacts to push notifications immediately
// instead of waiting to be pulled.
type CallbackInput struct {
	*Input
	callback func(t time.Time, env fdata.Envelope)
}

// NewCallbackInput creates a CallbackInput whose callback fires every time
// its source pushes new data.
func NewCallbackInput(name string, callback func(t time.Time, env fdata.Envelope)) *CallbackInput {
	return &CallbackInput{Input: NewInput(name, false), callback: callback}
}

// SourceUpdated pulls the freshly pushed Envelope and hands it to callback.
func (in *CallbackInput) SourceUpdated(t time.Time) {
	env, err := in.PullData(t)
	if err != nil {
		return
	}
	in.callback(t, env)
}

// NeedsPush overrides Input: a CallbackInput only ever reacts to a push
// notification, it never pulls on its own schedule.
func (in *CallbackInput) NeedsPush() bool { return true }

// NeedsPull overrides Input: nothing pulls a CallbackInput on its own.
func (in *CallbackInput) NeedsPull() bool { return false }
