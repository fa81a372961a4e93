package ratify

import (
	"bytes"
	"errors"
	"fmt"
)

// Copyright © 2023 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// This file implements the consistency suite for the Streaming contract: Digests must be
// chunking-invariant and history-free, and the Fresh/Accumulating/Finalized lifecycle
// must reject misuse without perturbing state. Every check is deterministic; the first
// failure aborts the run.

// StreamSuite vets one Streaming implementation. New and OneShot are required; SameState
// may be nil, in which case the reflect-based default is used. BlockSize is the
// primitive's internal processing unit and drives the boundary sweep.
type StreamSuite struct {
	New       func() Streaming
	OneShot   func(in []byte) ([]byte, error)
	SameState func(a, b Streaming) error
	BlockSize int
}

// Run exercises the full suite over data, then again over empty input, and returns the
// first contract violation found, or nil. It never retries: these are correctness
// checks, not environmental ones.
func (s *StreamSuite) Run(data []byte) error {
	if s.New == nil || s.OneShot == nil || s.BlockSize < 1 {
		return fmt.Errorf("misconfigured suite: %w", ErrValidation)
	}
	for _, check := range []struct {
		name string
		fn   func([]byte) error
	}{
		{"consistency", s.consistency},
		{"consistency/empty", func([]byte) error { return s.consistency(nil) }},
		{"same state after reset", s.producesSameState},
		{"empty update is a no-op", s.emptyUpdateNoop},
		{"leftover boundaries", func([]byte) error { return s.leftoverBoundaries() }},
		{"double finalize rejected", s.doubleFinalizeErr},
		{"finalize after reset, no update", s.doubleFinalizeWithResetNoUpdateOK},
		{"finalize after reset", s.doubleFinalizeWithResetOK},
		{"update after finalize rejected", s.updateAfterFinalizeErr},
		{"update after finalize and reset", s.updateAfterFinalizeWithResetOK},
		{"rejected update mutates nothing", s.rejectedUpdateInert},
		{"double reset", s.doubleResetOK},
	} {
		if err := check.fn(data); err != nil {
			return fmt.Errorf("%s: %w", check.name, err)
		}
	}
	return nil
}

func (s *StreamSuite) sameState(a, b Streaming) error {
	if s.SameState != nil {
		return s.SameState(a, b)
	}
	return SameState(a, b)
}

/* Digests from every legal ordering of update(), reset(), and finalize() over the same
input must agree. With empty input, orderings that never feed real data must agree too:
that proves finalizing a Fresh context equals hashing zero bytes. */
func (s *StreamSuite) consistency(data []byte) error {
	sums := make([][]byte, 0, 7)

	/* update, finalize */
	c := s.New()
	if err := c.Update(data); err != nil {
		return err
	}
	sum, err := c.Finalize()
	if err != nil {
		return err
	}
	sums = append(sums, sum)

	/* reset, update, finalize */
	c = s.New()
	if err = c.Reset(); err != nil {
		return err
	}
	if err = c.Update(data); err != nil {
		return err
	}
	if sum, err = c.Finalize(); err != nil {
		return err
	}
	sums = append(sums, sum)

	/* update, reset, update, finalize */
	c = s.New()
	if err = c.Update(data); err != nil {
		return err
	}
	if err = c.Reset(); err != nil {
		return err
	}
	if err = c.Update(data); err != nil {
		return err
	}
	if sum, err = c.Finalize(); err != nil {
		return err
	}
	sums = append(sums, sum)

	/* update, finalize, reset, update, finalize */
	c = s.New()
	if err = c.Update(data); err != nil {
		return err
	}
	if _, err = c.Finalize(); err != nil {
		return err
	}
	if err = c.Reset(); err != nil {
		return err
	}
	if err = c.Update(data); err != nil {
		return err
	}
	if sum, err = c.Finalize(); err != nil {
		return err
	}
	sums = append(sums, sum)

	if len(data) == 0 {
		/* finalize */
		c = s.New()
		if sum, err = c.Finalize(); err != nil {
			return err
		}
		sums = append(sums, sum)

		/* reset, finalize */
		c = s.New()
		if err = c.Reset(); err != nil {
			return err
		}
		if sum, err = c.Finalize(); err != nil {
			return err
		}
		sums = append(sums, sum)

		/* update with junk, reset, finalize */
		c = s.New()
		if err = c.Update([]byte("WRONG DATA")); err != nil {
			return err
		}
		if err = c.Reset(); err != nil {
			return err
		}
		if sum, err = c.Finalize(); err != nil {
			return err
		}
		sums = append(sums, sum)
	}

	for i := range sums[1:] {
		if !bytes.Equal(sums[i], sums[i+1]) {
			return fmt.Errorf("sequences %d and %d disagree (%x != %x): %w",
				i, i+1, sums[i], sums[i+1], ErrAssert)
		}
	}
	return nil
}

/* Reset must restore the constructor-fresh state itself, not merely suppress external
symptoms: contexts reaching Fresh by four different roads must be structurally
indistinguishable. */
func (s *StreamSuite) producesSameState(data []byte) error {
	c1 := s.New()

	c2 := s.New()
	if err := c2.Reset(); err != nil {
		return err
	}

	c3 := s.New()
	if err := c3.Update(data); err != nil {
		return err
	}
	if err := c3.Reset(); err != nil {
		return err
	}

	c4 := s.New()
	if err := c4.Update(data); err != nil {
		return err
	}
	if _, err := c4.Finalize(); err != nil {
		return err
	}
	if err := c4.Reset(); err != nil {
		return err
	}

	for i, c := range []Streaming{c2, c3, c4} {
		if err := s.sameState(c1, c); err != nil {
			return fmt.Errorf("path %d differs from init: %v", i+2, err)
		}
	}
	return nil
}

/* An empty update must be invisible even structurally, not just in the digest. */
func (s *StreamSuite) emptyUpdateNoop([]byte) error {
	c1, c2 := s.New(), s.New()
	if err := c2.Update(nil); err != nil {
		return err
	}
	if err := c2.Update([]byte{}); err != nil {
		return err
	}
	return s.sameState(c1, c2)
}

/* Sweeps every input length from 0 through 4×BlockSize, feeding each either whole—with
staged extra updates that cross 0, 1, 2, and 3 internal-buffer boundaries—or split at
BlockSize seams, and demands the streaming digest match OneShot over the concatenation.
Off-by-one carry handling dies here. */
func (s *StreamSuite) leftoverBoundaries() error {
	bs := s.BlockSize
	for n := 0; n <= bs*4; n++ {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i + n)
		}

		c, fed := s.New(), data
		if err := c.Update(data); err != nil {
			return err
		}
		if n > bs {
			if err := c.Update([]byte{}); err != nil {
				return err
			}
		}
		if n > bs*2 {
			if err := c.Update([]byte("Extra")); err != nil {
				return err
			}
			fed = append(append([]byte{}, fed...), "Extra"...)
		}
		if n > bs*3 {
			if err := c.Update(make([]byte, 256)); err != nil {
				return err
			}
			fed = append(append([]byte{}, fed...), make([]byte, 256)...)
		}
		streamed, err := c.Finalize()
		if err != nil {
			return err
		}
		shot, err := s.OneShot(fed)
		if err != nil {
			return err
		}
		if !bytes.Equal(streamed, shot) {
			return fmt.Errorf("staged updates of %d bytes: %x != one-shot %x: %w",
				len(fed), streamed, shot, ErrAssert)
		}

		/* The same input carved at BlockSize seams. */
		c = s.New()
		for rest := data; len(rest) > 0; {
			cut := bs
			if cut > len(rest) {
				cut = len(rest)
			}
			if err = c.Update(rest[:cut]); err != nil {
				return err
			}
			rest = rest[cut:]
		}
		if streamed, err = c.Finalize(); err != nil {
			return err
		}
		if shot, err = s.OneShot(data); err != nil {
			return err
		}
		if !bytes.Equal(streamed, shot) {
			return fmt.Errorf("block-aligned updates of %d bytes: %x != one-shot %x: %w",
				n, streamed, shot, ErrAssert)
		}
	}
	return nil
}

func (s *StreamSuite) doubleFinalizeErr(data []byte) error {
	c := s.New()
	if err := c.Update(data); err != nil {
		return err
	}
	if _, err := c.Finalize(); err != nil {
		return err
	}
	if _, err := c.Finalize(); !errors.Is(err, ErrState) {
		return fmt.Errorf("second finalize returned %v, want ErrState: %w", err, ErrAssert)
	}
	return nil
}

func (s *StreamSuite) doubleFinalizeWithResetNoUpdateOK(data []byte) error {
	c := s.New()
	if err := c.Update(data); err != nil {
		return err
	}
	if _, err := c.Finalize(); err != nil {
		return err
	}
	if err := c.Reset(); err != nil {
		return err
	}
	if _, err := c.Finalize(); err != nil {
		return fmt.Errorf("finalize after reset returned %v: %w", err, ErrAssert)
	}
	return nil
}

func (s *StreamSuite) doubleFinalizeWithResetOK(data []byte) error {
	c := s.New()
	if err := c.Update(data); err != nil {
		return err
	}
	if _, err := c.Finalize(); err != nil {
		return err
	}
	if err := c.Reset(); err != nil {
		return err
	}
	if err := c.Update(data); err != nil {
		return err
	}
	if _, err := c.Finalize(); err != nil {
		return fmt.Errorf("finalize after reset and update returned %v: %w", err, ErrAssert)
	}
	return nil
}

func (s *StreamSuite) updateAfterFinalizeErr(data []byte) error {
	c := s.New()
	if err := c.Update(data); err != nil {
		return err
	}
	if _, err := c.Finalize(); err != nil {
		return err
	}
	if err := c.Update(data); !errors.Is(err, ErrState) {
		return fmt.Errorf("update after finalize returned %v, want ErrState: %w", err, ErrAssert)
	}
	return nil
}

func (s *StreamSuite) updateAfterFinalizeWithResetOK(data []byte) error {
	c := s.New()
	if err := c.Update(data); err != nil {
		return err
	}
	if _, err := c.Finalize(); err != nil {
		return err
	}
	if err := c.Reset(); err != nil {
		return err
	}
	if err := c.Update(data); err != nil {
		return fmt.Errorf("update after reset returned %v: %w", err, ErrAssert)
	}
	return nil
}

/* A rejected update must leave the context bit-for-bit as it was: a finalized context
that suffered one is compared against a twin that never did. */
func (s *StreamSuite) rejectedUpdateInert(data []byte) error {
	c1 := s.New()
	if err := c1.Update(data); err != nil {
		return err
	}
	if _, err := c1.Finalize(); err != nil {
		return err
	}

	c2 := s.New()
	if err := c2.Update(data); err != nil {
		return err
	}
	if _, err := c2.Finalize(); err != nil {
		return err
	}
	if err := c2.Update(data); !errors.Is(err, ErrState) {
		return fmt.Errorf("update after finalize returned %v, want ErrState: %w", err, ErrAssert)
	}
	return s.sameState(c1, c2)
}

func (s *StreamSuite) doubleResetOK(data []byte) error {
	c := s.New()
	if err := c.Update(data); err != nil {
		return err
	}
	if _, err := c.Finalize(); err != nil {
		return err
	}
	if err := c.Reset(); err != nil {
		return err
	}
	if err := c.Reset(); err != nil {
		return fmt.Errorf("second reset returned %v: %w", err, ErrAssert)
	}
	return nil
}
