package ratify

import "errors"

// Copyright © 2023 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// The error taxonomy at this layer is deliberately two-valued for the primitives under
// test, plus one value reserved for the verdicts of the suites themselves.

var (
	// ErrState is returned—wrapped—by operations that are illegal in the context's
	// current lifecycle state: a second Finalize without an intervening Reset, or an
	// Update after Finalize. The rejected call must not mutate the context.
	ErrState = errors.New("ratify: operation illegal in current state")

	// ErrValidation is returned—wrapped—when a structural precondition fails before any
	// work is done: an output buffer shorter than the input, an empty input to a cipher
	// that requires at least one byte, or a block counter that would wrap.
	ErrValidation = errors.New("ratify: argument fails a precondition")

	// ErrAssert marks a suite verdict: the implementation under test broke its
	// contract. It never originates from a primitive.
	ErrAssert = errors.New("ratify: implementation violates its contract")
)
