// Package connector implements the per-component connect fixpoint: the
// iterative negotiation that lets every component in a composition push its
// static metadata and data, exchange Info with its neighbors, and pull
// whatever it depends on, without requiring any particular component to go
// first.
package connector

import (
	"time"

	"github.com/finam-ufz/finam/component"
	ferrors "github.com/finam-ufz/finam/errors"
	"github.com/finam-ufz/finam/fdata"
)

// PushDataFunc computes the value to push on an output slot for the
// current connect pass.
type PushDataFunc func(t time.Time) (value []float64, shape []int, err error)

// ConnectHelper drives one component's participation in the connect
// fixpoint. A hosted component creates one in InitializeHooks and calls
// Connect from ConnectHook on every pass, until it reports Connected.
type ConnectHelper struct {
	inputs  *component.IOList[*component.Input]
	outputs *component.IOList[*component.Output]

	inExchanged map[string]bool
	pulled      map[string]bool
	infoPushed  map[string]bool
	dataPushed  map[string]bool
}

// New creates a ConnectHelper over a component's already-frozen input and
// output lists. Outputs that already have Info set (a static output whose
// metadata never depends on negotiation) start pre-marked as pushed.
func New(inputs *component.IOList[*component.Input], outputs *component.IOList[*component.Output]) *ConnectHelper {
	h := &ConnectHelper{
		inputs:      inputs,
		outputs:     outputs,
		inExchanged: map[string]bool{},
		pulled:      map[string]bool{},
		infoPushed:  map[string]bool{},
		dataPushed:  map[string]bool{},
	}
	outputs.Each(func(name string, out *component.Output) {
		if out.HasInfo() {
			h.infoPushed[name] = true
		}
	})
	return h
}

// Connect runs one pass: push any not-yet-pushed info/data, exchange Info
// for any not-yet-exchanged input named in exchangeInfos, and pull data for
// any input whose Info exchange has completed. A NoData error at any step
// is absorbed (that dependency simply isn't ready yet); any other error
// aborts the pass and is returned to the caller.
func (h *ConnectHelper) Connect(
	t time.Time,
	exchangeInfos map[string]fdata.Info,
	pushInfos map[string]fdata.Info,
	pushData map[string]PushDataFunc,
) (component.State, error) {
	anyDone := false

	for name, info := range pushInfos {
		if h.infoPushed[name] {
			continue
		}
		out, ok := h.outputs.Get(name)
		if !ok {
			continue
		}
		if err := out.PushInfo(info); err != nil {
			return component.Failed, err
		}
		h.infoPushed[name] = true
		anyDone = true
	}

	for name, fn := range pushData {
		if h.dataPushed[name] {
			continue
		}
		out, ok := h.outputs.Get(name)
		if !ok {
			continue
		}
		value, shape, err := fn(t)
		if err != nil {
			return component.Failed, err
		}
		if err := out.PushData(value, shape, t); err != nil {
			return component.Failed, err
		}
		h.dataPushed[name] = true
		anyDone = true
	}

	for _, name := range h.inputs.Names() {
		if h.inExchanged[name] {
			continue
		}
		req, ok := exchangeInfos[name]
		if !ok {
			continue
		}
		in, _ := h.inputs.Get(name)
		if _, err := in.ExchangeInfo(req); err != nil {
			if ferrors.KindOf(err) == ferrors.NoData {
				continue
			}
			return component.Failed, err
		}
		h.inExchanged[name] = true
		anyDone = true
	}

	for _, name := range h.inputs.Names() {
		if h.pulled[name] || !h.inExchanged[name] {
			continue
		}
		in, _ := h.inputs.Get(name)
		if _, err := in.PullData(t); err != nil {
			if ferrors.KindOf(err) == ferrors.NoData {
				continue
			}
			return component.Failed, err
		}
		h.pulled[name] = true
		anyDone = true
	}

	allDone := len(h.inExchanged) == h.inputs.Len() &&
		len(h.pulled) == h.inputs.Len() &&
		len(h.infoPushed) == h.outputs.Len() &&
		len(h.dataPushed) == h.outputs.Len()

	switch {
	case allDone:
		return component.Connected, nil
	case anyDone:
		return component.Connecting, nil
	default:
		return component.ConnectingIdle, nil
	}
}
