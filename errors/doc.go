// Package errors provides standardized error handling patterns for statesync components.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable), and
// Fatal (unrecoverable, stop processing).
//
// Classification lets callers make informed decisions about retries and
// failure recovery without error string matching. A timed-out wait for
// initial states is transient: the same session may be awaited again and
// succeed once the device finishes its snapshot burst. A duplicate identity
// in an inventory is invalid: it is a caller error detected at construction
// time and retrying cannot fix it.
//
// # Quick Start
//
// Return standard error variables for known conditions:
//
//	if len(pending) > 0 {
//	    return errors.ErrWaitTimeout
//	}
//
// Wrap errors with component context:
//
//	if err := conn.WriteJSON(req); err != nil {
//	    return errors.WrapTransient(err, "wsstream", "request", "write envelope")
//	}
//
// Check classification at call sites:
//
//	if errors.IsTransient(err) {
//	    // safe to retry
//	}
//
// The classification system integrates with Go's standard error handling,
// supporting errors.Is(), errors.As(), and error wrapping chains.
package errors
