package adapter

import (
	"time"

	"github.com/finam-ufz/finam/component"
	ferrors "github.com/finam-ufz/finam/errors"
	"github.com/finam-ufz/finam/fdata"
)

// FixedDelay shifts every pull request back by a fixed duration and serves
// it from values cached on each upstream push, so a request for a time in
// the past can still be served. It implements DelayProvider and
// NoDependency: the scheduler's dependency walk stops at a FixedDelay
// rather than treating its source as something the current step depends
// on, which is what lets a feedback cycle close (P5, S3).
type FixedDelay struct {
	TimeCachingBase
	Delay time.Duration
}

// NewFixedDelay creates a FixedDelay adapter shifting requests back by
// delay.
func NewFixedDelay(name string, delay time.Duration) *FixedDelay {
	return &FixedDelay{TimeCachingBase: TimeCachingBase{Base: Base{Name: name}}, Delay: delay}
}

func (d *FixedDelay) noDependency() {}

// WithDelay returns t shifted back by Delay, the time the scheduler should
// actually treat this link's data as depending on.
func (d *FixedDelay) WithDelay(t time.Time) time.Time {
	return t.Add(-d.Delay)
}

// GetData serves the cached value at t-Delay, falling back to the oldest
// cached entry if the delayed time precedes every push so far (the cycle's
// first few steps, before the delay's worth of history has accumulated).
func (d *FixedDelay) GetData(t time.Time, _ component.Notifiable) (fdata.Envelope, error) {
	if len(d.history) == 0 {
		return fdata.Envelope{}, ferrors.Newf(ferrors.NoData, d.Name, "GetData", "no data has been pushed yet")
	}
	target := d.WithDelay(t)
	if target.Before(d.history[0].time) {
		env := d.history[0].env
		env.Time = t
		return env, nil
	}

	idx := len(d.history) - 1
	for idx > 0 && d.history[idx].time.After(target) {
		idx--
	}
	env := d.history[idx].env
	env.Time = t
	d.clearCachedData(target)
	return env, nil
}
