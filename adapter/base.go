// Package adapter provides the stateless and time-caching transform stages
// that sit between an Output and an Input: unit scaling, callbacks, grid
// rank changes, and time-domain transforms (interpolation, integration,
// extrapolation, fixed delay). Every adapter implements both component's
// Pullable and Pushable capability interfaces simultaneously, and a single
// adapter instance may be chained after another.
package adapter

import (
	"time"

	"github.com/finam-ufz/finam/component"
	ferrors "github.com/finam-ufz/finam/errors"
	"github.com/finam-ufz/finam/fdata"
)

// NoBranch marks an adapter that supports at most one downstream target,
// because it carries per-target state (a time cache, an integration
// accumulator) that would be ambiguous to share across branches.
type NoBranch interface {
	noBranch()
}

// NoDependency marks an adapter the scheduler must never treat as
// introducing a scheduling dependency on its source, because it only ever
// serves data the source already committed to in the past (a fixed delay).
type NoDependency interface {
	noDependency()
}

// DelayProvider is implemented by an adapter that shifts the time a pull
// request is evaluated at, the mechanism that lets a feedback cycle close
// without the scheduler treating it as an unresolvable dependency loop.
type DelayProvider interface {
	WithDelay(t time.Time) time.Time
}

// Base is embedded by every concrete adapter. It implements the plumbing
// every adapter shares — binding a single upstream source, tracking
// downstream targets, and the default (pass-through) behavior for
// PushInfo/GetInfo/SourceUpdated — leaving GetData and, where metadata is
// rewritten, GetInfo to the concrete adapter.
type Base struct {
	Name    string
	source  component.Pullable
	targets []component.Notifiable
	outInfo fdata.Info
	outSet  bool
}

// SetSource binds the adapter's upstream source. An adapter binds exactly
// one source, set once during composition wiring.
func (b *Base) SetSource(source component.Pullable) error {
	if b.source != nil {
		return ferrors.Wrap(ferrors.SetupError, b.Name, "SetSource", ferrors.ErrAlreadyBound)
	}
	b.source = source
	return nil
}

// AddTarget registers target as a downstream consumer. Adapters embedding
// NoBranch override this to reject a second target.
func (b *Base) AddTarget(target component.Notifiable) error {
	b.targets = append(b.targets, target)
	return nil
}

// NotifyTargets tells every registered downstream target that new data is
// available at t.
func (b *Base) NotifyTargets(t time.Time) {
	for _, target := range b.targets {
		target.SourceUpdated(t)
	}
}

// Named returns the adapter's name, for diagnostics that only hold it by a
// capability interface.
func (b *Base) Named() string { return b.Name }

// NeedsPull reports false: a plain adapter forwards a pull upstream rather
// than requiring one of its own.
func (b *Base) NeedsPull() bool { return false }

// NeedsPush reports false: a plain adapter is stateless and serves a pull
// by asking its source, it does not require being pushed into first.
// Time-caching adapters override this.
func (b *Base) NeedsPush() bool { return false }

// PushData notifies downstream targets; adapters that cache pushed data
// override this to record it first.
func (b *Base) PushData(env fdata.Envelope) error {
	b.NotifyTargets(env.Time)
	return nil
}

// PushInfo forwards the pushed Info upstream unchanged, the default for an
// adapter that does not rewrite metadata.
func (b *Base) PushInfo(info fdata.Info) error {
	if b.source == nil {
		return ferrors.Newf(ferrors.SetupError, b.Name, "PushInfo", "adapter %q has no bound source", b.Name)
	}
	if p, ok := b.source.(component.Pushable); ok {
		return p.PushInfo(info)
	}
	return nil
}

// GetInfo is the default metadata pass-through: request forwarded upstream
// unchanged, result cached and returned unchanged. Adapters that rewrite
// units or grid override this.
func (b *Base) GetInfo(requested fdata.Info) (fdata.Info, error) {
	if b.source == nil {
		return fdata.Info{}, ferrors.Newf(ferrors.SetupError, b.Name, "GetInfo", "adapter %q has no bound source", b.Name)
	}
	srcInfo, err := b.source.GetInfo(requested)
	if err != nil {
		return fdata.Info{}, err
	}
	if b.outSet {
		b.outInfo = b.outInfo.Merge(srcInfo)
	} else {
		b.outInfo = srcInfo
		b.outSet = true
	}
	return b.outInfo, nil
}

// SourceUpdated is the default push reaction: simply forward the
// notification downstream. Time-caching adapters override this to pull and
// cache the new value instead.
func (b *Base) SourceUpdated(t time.Time) {
	b.NotifyTargets(t)
}

// PullUpstream is a convenience for concrete adapters' GetData
// implementations: pull from the bound source at t.
func (b *Base) PullUpstream(t time.Time, target component.Notifiable) (fdata.Envelope, error) {
	if b.source == nil {
		return fdata.Envelope{}, ferrors.Newf(ferrors.SetupError, b.Name, "GetData", "adapter %q has no bound source", b.Name)
	}
	return b.source.GetData(t, target)
}
