// Package errors provides the error taxonomy used across the FINAM core.
//
// # Overview
//
// FINAM classifies every error raised by the scheduler, the dataflow slots,
// the connect fixpoint, and the data envelope into one of a small set of
// kinds (see Kind). Call sites wrap the underlying cause with Wrap, attaching
// the component/adapter (or slot) name and the operation, or with WrapPhase,
// which also records the phase in which the failure happened, so that a user-visible failure can always be traced back
// to "what, where, when" without a debugger.
//
// # Kinds
//
//   - SetupError: coupling topology is invalid (cycle without a delay edge,
//     dead link, disallowed branching, slot reconfiguration after connect).
//   - MetadataError: Info exchange failed (incompatible grid/units/mask, or
//     metadata still missing once the connect fixpoint has stalled).
//   - ConnectStalled: the connect fixpoint produced a pass in which every
//     non-connected component reported CONNECTING_IDLE.
//   - DataError: malformed payload at push time (shape mismatch, time
//     regression, aliased buffer, incompatible units).
//   - NoData: a pull found no entry at or before the requested time. Expected
//     and absorbed during connect; fatal during a run.
//   - ComponentError: a failure raised out of hosted component or adapter
//     code.
//   - OutOfRange: an output's memory-limit spill to disk could not be
//     written or read back (for example, no spill directory configured).
//
// # Usage
//
//	if got != want {
//	    return errors.Newf(errors.DataError, "source", "Push", "shape mismatch: got %v want %v", got, want)
//	}
package errors
