package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a FinamError by the phase of the run in which it occurred
// and the remedy it implies.
type Kind int

const (
	// SetupError indicates a coupling topology problem found before the run
	// starts: an unresolved cycle, a dead link, disallowed branching on a
	// no-branch adapter, or a slot mutated after the connect phase began.
	SetupError Kind = iota
	// MetadataError indicates an Info exchange failed: incompatible grid,
	// units, or mask, or metadata still missing once the connect fixpoint
	// has stalled.
	MetadataError
	// ConnectStalled indicates the connect fixpoint reached a pass in which
	// every non-CONNECTED component reported CONNECTING_IDLE.
	ConnectStalled
	// DataError indicates a malformed payload at push time: shape mismatch,
	// time regression, aliased buffer, or incompatible units.
	DataError
	// NoData indicates a pull found no entry at or before the requested
	// time. Absorbed during connect; fatal during a run.
	NoData
	// ComponentError indicates a failure raised out of hosted component or
	// adapter code.
	ComponentError
	// OutOfRange indicates an Output's memory-limit spill could not be
	// honored: no scratch directory configured, or the spill write itself
	// failed.
	OutOfRange
)

// String returns the taxonomy name of the error kind.
func (k Kind) String() string {
	switch k {
	case SetupError:
		return "SetupError"
	case MetadataError:
		return "MetadataError"
	case ConnectStalled:
		return "ConnectStalled"
	case DataError:
		return "DataError"
	case NoData:
		return "NoData"
	case ComponentError:
		return "ComponentError"
	case OutOfRange:
		return "OutOfRange"
	default:
		return "UnknownError"
	}
}

// FinamError carries a classified cause plus the component/slot/phase
// context needed to make a failure actionable without a debugger.
type FinamError struct {
	Kind      Kind
	Component string
	Operation string
	Phase     string
	Err       error
}

// Error implements the error interface.
func (e *FinamError) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("%s: %s.%s (%s): %v", e.Kind, e.Component, e.Operation, e.Phase, e.Err)
	}
	return fmt.Sprintf("%s: %s.%s: %v", e.Kind, e.Component, e.Operation, e.Err)
}

// Unwrap returns the underlying cause, so errors.Is/As reach through to it.
func (e *FinamError) Unwrap() error {
	return e.Err
}

// Wrap classifies err as the given Kind, attaching component/operation
// context. Returns nil if err is nil.
func Wrap(kind Kind, component, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &FinamError{Kind: kind, Component: component, Operation: operation, Err: err}
}

// WrapPhase is Wrap plus the connect/run phase the failure occurred in.
func WrapPhase(kind Kind, component, operation, phase string, err error) error {
	if err == nil {
		return nil
	}
	return &FinamError{Kind: kind, Component: component, Operation: operation, Phase: phase, Err: err}
}

// Newf formats a message and classifies it as the given Kind.
func Newf(kind Kind, component, operation, format string, args ...any) error {
	return &FinamError{Kind: kind, Component: component, Operation: operation, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err was classified with the given Kind.
func Is(err error, kind Kind) bool {
	var fe *FinamError
	if stderrors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err, and ComponentError if err was not raised
// through this package (e.g. a plain error returned by hosted component code).
func KindOf(err error) Kind {
	var fe *FinamError
	if stderrors.As(err, &fe) {
		return fe.Kind
	}
	return ComponentError
}

// Sentinel errors for conditions checked structurally rather than by Kind.
var (
	ErrAlreadyBound          = stderrors.New("input already has a source")
	ErrAlreadyConnecting     = stderrors.New("slot reconfigured after connect began")
	ErrIncompatible          = stderrors.New("incompatible info")
	ErrBranchingNotSupported = stderrors.New("branching not supported by this adapter")
	ErrDeadLink              = stderrors.New("dead link: a pull-only point feeds a point that only reacts to pushes")
)
