package adapter

import (
	"sort"
	"time"

	"github.com/finam-ufz/finam/component"
	ferrors "github.com/finam-ufz/finam/errors"
	"github.com/finam-ufz/finam/fdata"
)

type timeSample struct {
	time time.Time
	env  fdata.Envelope
}

// TimeCachingBase is embedded by every time-domain adapter that needs more
// than the single most recent value: interpolation, integration, stacking.
// It reacts to SourceUpdated by pulling immediately and appending to an
// in-memory history, since the upstream Output may prune its own history
// before the downstream side asks for a value that spans several pushes.
// All such adapters support at most one downstream target, since the
// cache's pruning watermark is driven by a single consumer's pace.
type TimeCachingBase struct {
	Base
	history []timeSample
}

func (tc *TimeCachingBase) noBranch() {}

// NeedsPush overrides Base: a time-caching adapter must be pushed into to
// populate its history; it never computes a value lazily on a pull.
func (tc *TimeCachingBase) NeedsPush() bool { return true }

// AddTarget rejects a second target, since a shared cache pruned to one
// consumer's pace would silently starve another.
func (tc *TimeCachingBase) AddTarget(target component.Notifiable) error {
	if len(tc.targets) > 0 {
		return ferrors.Newf(ferrors.SetupError, tc.Name, "AddTarget", "time-caching adapter %q does not support branching", tc.Name)
	}
	return tc.Base.AddTarget(target)
}

// SourceUpdated pulls the newly available value immediately and appends it
// to history, then notifies downstream.
func (tc *TimeCachingBase) SourceUpdated(t time.Time) {
	env, err := tc.PullUpstream(t, tc)
	if err != nil {
		return
	}
	tc.history = append(tc.history, timeSample{time: t, env: env})
	tc.NotifyTargets(t)
}

// clearCachedData drops every entry strictly older than before except the
// one immediately preceding it, keeping enough history for the next
// interpolation without growing without bound.
func (tc *TimeCachingBase) clearCachedData(before time.Time) {
	for len(tc.history) > 1 && !tc.history[1].time.After(before) {
		tc.history = tc.history[1:]
	}
}

func (tc *TimeCachingBase) checkTime(t time.Time) error {
	if len(tc.history) == 0 {
		return ferrors.Newf(ferrors.NoData, tc.Name, "GetData", "no data has been pushed yet")
	}
	if t.Before(tc.history[0].time) {
		return ferrors.Newf(ferrors.NoData, tc.Name, "GetData", "requested time %v precedes the oldest cached entry %v", t, tc.history[0].time)
	}
	return nil
}

// PreviousTime returns the most recently cached value at or before the
// requested time, the step-left rule applied to the adapter's own cache
// rather than to the Output's history.
type PreviousTime struct{ TimeCachingBase }

// NewPreviousTime creates a PreviousTime adapter.
func NewPreviousTime(name string) *PreviousTime {
	return &PreviousTime{TimeCachingBase{Base: Base{Name: name}}}
}

func (p *PreviousTime) GetData(t time.Time, _ component.Notifiable) (fdata.Envelope, error) {
	if err := p.checkTime(t); err != nil {
		return fdata.Envelope{}, err
	}
	idx := sort.Search(len(p.history), func(i int) bool { return p.history[i].time.After(t) })
	env := p.history[idx-1].env
	env.Time = t
	p.clearCachedData(t)
	return env, nil
}

// NextTime returns the first cached value at or after the requested time.
type NextTime struct{ TimeCachingBase }

// NewNextTime creates a NextTime adapter.
func NewNextTime(name string) *NextTime {
	return &NextTime{TimeCachingBase{Base: Base{Name: name}}}
}

func (n *NextTime) GetData(t time.Time, _ component.Notifiable) (fdata.Envelope, error) {
	idx := sort.Search(len(n.history), func(i int) bool { return !n.history[i].time.Before(t) })
	if idx == len(n.history) {
		return fdata.Envelope{}, ferrors.Newf(ferrors.NoData, n.Name, "GetData", "no cached entry at or after %v", t)
	}
	env := n.history[idx].env
	env.Time = t
	if idx > 0 {
		n.history = n.history[idx-1:]
	}
	return env, nil
}

// LinearTime linearly interpolates between the cached entries straddling
// the requested time, element-wise.
type LinearTime struct{ TimeCachingBase }

// NewLinearTime creates a LinearTime adapter.
func NewLinearTime(name string) *LinearTime {
	return &LinearTime{TimeCachingBase{Base: Base{Name: name}}}
}

func (lt *LinearTime) GetData(t time.Time, _ component.Notifiable) (fdata.Envelope, error) {
	if err := lt.checkTime(t); err != nil {
		return fdata.Envelope{}, err
	}
	idx := sort.Search(len(lt.history), func(i int) bool { return lt.history[i].time.After(t) })
	if idx == 0 {
		env := lt.history[0].env
		env.Time = t
		return env, nil
	}
	if idx == len(lt.history) {
		env := lt.history[idx-1].env
		env.Time = t
		lt.clearCachedData(t)
		return env, nil
	}

	prev := lt.history[idx-1]
	next := lt.history[idx]
	span := next.time.Sub(prev.time).Seconds()
	frac := 0.0
	if span > 0 {
		frac = t.Sub(prev.time).Seconds() / span
	}

	out := make([]float64, len(prev.env.Payload))
	for i := range out {
		out[i] = prev.env.Payload[i] + frac*(next.env.Payload[i]-prev.env.Payload[i])
	}
	lt.clearCachedData(t)
	return fdata.Envelope{Payload: out, Shape: prev.env.Shape, Grid: prev.env.Grid, Units: prev.env.Units, Time: t}, nil
}

// ExtrapolateTime clamps a request for a time past the newest cached entry
// down to that entry's time, so a fast downstream component can keep
// pulling from a slower upstream one without stalling on NoData.
type ExtrapolateTime struct{ TimeCachingBase }

// NewExtrapolateTime creates an ExtrapolateTime adapter.
func NewExtrapolateTime(name string) *ExtrapolateTime {
	return &ExtrapolateTime{TimeCachingBase{Base: Base{Name: name}}}
}

func (e *ExtrapolateTime) GetData(t time.Time, target component.Notifiable) (fdata.Envelope, error) {
	if len(e.history) == 0 {
		return fdata.Envelope{}, ferrors.Newf(ferrors.NoData, e.Name, "GetData", "no data has been pushed yet")
	}
	latest := e.history[len(e.history)-1].time
	clamped := t
	if clamped.After(latest) {
		clamped = latest
	}
	env, err := e.PullUpstream(clamped, target)
	if err != nil {
		return fdata.Envelope{}, err
	}
	env.Time = t
	return env, nil
}

// StackTime collects every cached sample between successive pulls and
// returns it as an ordered slice, for a downstream consumer that wants
// every intermediate value rather than a single interpolated one. It
// returns []fdata.Envelope rather than a stacked tensor (there being no
// fixed-rank payload type at this layer), a deliberate narrowing of the
// original stacking adapter rather than a silent behavior change.
type StackTime struct {
	TimeCachingBase
	lastReturned time.Time
}

// NewStackTime creates a StackTime adapter.
func NewStackTime(name string) *StackTime {
	return &StackTime{TimeCachingBase: TimeCachingBase{Base: Base{Name: name}}}
}

// Stacked returns every cached sample with time in (since, t], in order.
func (s *StackTime) Stacked(since, t time.Time) []fdata.Envelope {
	var out []fdata.Envelope
	for _, sample := range s.history {
		if sample.time.After(since) && !sample.time.After(t) {
			out = append(out, sample.env)
		}
	}
	return out
}

// GetData returns the most recent sample at or before t, same as
// PreviousTime; callers needing the full intermediate stack use Stacked.
func (s *StackTime) GetData(t time.Time, _ component.Notifiable) (fdata.Envelope, error) {
	if err := s.checkTime(t); err != nil {
		return fdata.Envelope{}, err
	}
	idx := sort.Search(len(s.history), func(i int) bool { return s.history[i].time.After(t) })
	env := s.history[idx-1].env
	env.Time = t
	s.lastReturned = t
	return env, nil
}

// Integrate accumulates a trapezoidal area under the cached scalar series
// between successive pulls. With Average false it implements sum-over-time:
// a rate expressed per unit time, integrated over elapsed time, yields a
// dimensionless amount (S6: 2/day integrated over 10 days is 20.0). With
// Average true it instead divides by the elapsed time, yielding a
// time-weighted mean over the target step.
type Integrate struct {
	TimeCachingBase
	Average     bool
	prevTime    time.Time
	initialized bool
}

// NewIntegrate creates an Integrate adapter. average selects sum-over-time
// (false) versus time-average (true) semantics.
func NewIntegrate(name string, average bool) *Integrate {
	return &Integrate{TimeCachingBase: TimeCachingBase{Base: Base{Name: name}}, Average: average}
}

func (ig *Integrate) GetData(t time.Time, _ component.Notifiable) (fdata.Envelope, error) {
	if err := ig.checkTime(t); err != nil {
		return fdata.Envelope{}, err
	}
	if !ig.initialized {
		ig.prevTime = ig.history[0].time
		ig.initialized = true
	}

	area := 0.0
	for i := 0; i < len(ig.history)-1; i++ {
		segStart := ig.history[i].time
		segEnd := ig.history[i+1].time
		if !segEnd.After(ig.prevTime) {
			continue
		}
		if !segStart.Before(t) {
			break
		}
		clampedStart := maxTime(segStart, ig.prevTime)
		clampedEnd := minTime(segEnd, t)
		if !clampedEnd.After(clampedStart) {
			continue
		}

		v0 := ig.history[i].env.Payload[0]
		v1 := ig.history[i+1].env.Payload[0]
		totalSecs := segEnd.Sub(segStart).Seconds()
		frac0, frac1 := 0.0, 1.0
		if totalSecs > 0 {
			frac0 = clampedStart.Sub(segStart).Seconds() / totalSecs
			frac1 = clampedEnd.Sub(segStart).Seconds() / totalSecs
		}
		val0 := v0 + frac0*(v1-v0)
		val1 := v0 + frac1*(v1-v0)
		dtDays := clampedEnd.Sub(clampedStart).Hours() / 24
		area += (val0 + val1) / 2 * dtDays
	}

	result := area
	units := ig.history[len(ig.history)-1].env.Units
	if ig.Average {
		elapsedDays := t.Sub(ig.prevTime).Hours() / 24
		if elapsedDays > 0 {
			result = area / elapsedDays
		}
	} else {
		units = fdata.Dimensionless
	}

	ig.prevTime = t
	ig.clearCachedData(t)
	return fdata.Envelope{Payload: []float64{result}, Shape: []int{1}, Grid: fdata.NoGrid{Dim: 0}, Units: units, Time: t}, nil
}

// GetInfo overrides Base: in sum-over-time mode (Average is false), the
// integral's units are not the source's rate units, so the negotiated Info
// must rewrite Units to Dimensionless to match what GetData actually
// returns. In time-average mode the source's units pass through unchanged.
func (ig *Integrate) GetInfo(requested fdata.Info) (fdata.Info, error) {
	info, err := ig.Base.GetInfo(requested)
	if err != nil {
		return fdata.Info{}, err
	}
	if !ig.Average {
		info.Units = fdata.Dimensionless
	}
	return info, nil
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
