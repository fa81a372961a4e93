package ratify

import (
	"fmt"
	"reflect"
)

// Copyright © 2023 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// Package ratify shakes down streaming hashes, MACs, and counter-mode stream ciphers: It
// drives them through every legal and illegal lifecycle sequence it knows of and reports
// the first place their behavior diverges from the contracts below. The mathematical
// transforms themselves are somebody else's problem; ratify only cares that a streaming
// computation matches its one-shot twin, that misuse is refused rather than absorbed, and
// that block counters never silently wrap.

// Streaming is the capability set a streaming hash or MAC context must expose to be
// vetted by a StreamSuite. A context is created Fresh by its constructor, moves to
// Accumulating on Update, and is parked by Finalize until Reset returns it to Fresh;
// there is no terminal state.
type Streaming interface {
	// Update absorbs in, which may be empty (a no-op that must still succeed and must
	// not perturb the eventual digest). It fails with ErrState if the context has been
	// finalized and not since reset, leaving the context untouched.
	Update(in []byte) error

	// Reset discards all absorbed input and any finalized flag, returning the context
	// to the state produced by its constructor. It succeeds from every state.
	Reset() error

	// Finalize produces the digest over everything absorbed since the last reset and
	// bars further Update/Finalize calls until Reset. Finalizing a Fresh context
	// succeeds and equals the digest of empty input.
	Finalize() ([]byte, error)
}

// SameState is the default structural comparison used by StreamSuite: two contexts are
// equivalent only if reflect deems their exposed representations deeply equal. Contexts
// holding incomparable fields (funcs, dead buffer regions their Reset does not scrub)
// should inject their own comparison instead.
func SameState(a, b Streaming) error {
	if !reflect.DeepEqual(a, b) {
		return fmt.Errorf("contexts are structurally distinct: %w", ErrAssert)
	}
	return nil
}
