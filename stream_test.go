package ratify

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// Copyright © 2023 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// The suite is itself under test here: an honest toy context must sail through, and
// several deliberately broken ones must each be caught by the check aimed at them. The
// toys are not cryptographic; they only model the lifecycle and carry-buffer mechanics.

const toyBlock = 16

/* toy absorbs bytes through a toyBlock-sized carry buffer into a running product, the
way a real streaming hash would, and gates Finalize honestly. */
type toy struct {
	state uint64
	count uint64
	carry []byte
	done  bool
}

func newToy() Streaming { return &toy{carry: make([]byte, 0, toyBlock)} }

func (c *toy) absorb(block []byte) {
	for _, b := range block {
		c.state = (c.state ^ uint64(b)) * 0x100000001b3
	}
	c.count += uint64(len(block))
}

func (c *toy) Update(in []byte) error {
	if c.done {
		return fmt.Errorf("toy: update after finalize: %w", ErrState)
	}
	for len(in) > 0 {
		n := toyBlock - len(c.carry)
		if n > len(in) {
			n = len(in)
		}
		c.carry = append(c.carry, in[:n]...)
		in = in[n:]
		if len(c.carry) == toyBlock {
			c.absorb(c.carry)
			c.carry = c.carry[:0]
		}
	}
	return nil
}

func (c *toy) Reset() error {
	c.state, c.count, c.carry, c.done = 0, 0, make([]byte, 0, toyBlock), false
	return nil
}

func (c *toy) Finalize() ([]byte, error) {
	if c.done {
		return nil, fmt.Errorf("toy: double finalize: %w", ErrState)
	}
	c.done = true
	state, count := c.state, c.count
	for _, b := range c.carry {
		state = (state ^ uint64(b)) * 0x100000001b3
	}
	count += uint64(len(c.carry))
	sum := make([]byte, 16)
	binary.BigEndian.PutUint64(sum, state)
	binary.BigEndian.PutUint64(sum[8:], count)
	return sum, nil
}

func oneShotToy(in []byte) ([]byte, error) {
	c := newToy()
	if err := c.Update(in); err != nil {
		return nil, err
	}
	return c.Finalize()
}

func toySuite() StreamSuite {
	return StreamSuite{New: newToy, OneShot: oneShotToy, BlockSize: toyBlock}
}

func TestStreamSuiteHonest(t *testing.T) {
	t.Parallel()
	s := toySuite()
	require.NoError(t, s.Run([]byte("Testing streaming context consistency and correctness")))
	require.NoError(t, s.Run(nil))
	require.NoError(t, s.Run(make([]byte, toyBlock*7+3)))
}

func TestStreamSuiteMisconfigured(t *testing.T) {
	t.Parallel()
	require.ErrorIs(t, (&StreamSuite{}).Run(nil), ErrValidation)
	s := toySuite()
	s.BlockSize = 0
	require.ErrorIs(t, s.Run(nil), ErrValidation)
}

/* permissive never gates Finalize: the misuse checks must flag it. */
type permissive struct{ toy }

func (c *permissive) Update(in []byte) error {
	c.done = false
	return c.toy.Update(in)
}

func (c *permissive) Finalize() ([]byte, error) {
	c.done = false
	return c.toy.Finalize()
}

func TestStreamSuiteCatchesPermissiveLifecycle(t *testing.T) {
	t.Parallel()
	s := toySuite()
	s.New = func() Streaming { return &permissive{toy{carry: make([]byte, 0, toyBlock)}} }
	s.OneShot = func(in []byte) ([]byte, error) {
		c := s.New()
		if err := c.Update(in); err != nil {
			return nil, err
		}
		return c.Finalize()
	}
	err := s.Run([]byte("some data"))
	require.ErrorIs(t, err, ErrAssert)
	require.ErrorContains(t, err, "finalize")
}

/* chunky leaks the number of Update calls into its digest: the chunking-invariance
checks must flag it. */
type chunky struct {
	toy
	calls uint64
}

func (c *chunky) Update(in []byte) error {
	if len(in) > 0 {
		c.calls++
	}
	return c.toy.Update(in)
}

func (c *chunky) Reset() error {
	c.calls = 0
	return c.toy.Reset()
}

func (c *chunky) Finalize() ([]byte, error) {
	sum, err := c.toy.Finalize()
	if err == nil {
		sum[0] ^= byte(c.calls)
	}
	return sum, err
}

func TestStreamSuiteCatchesChunkSensitivity(t *testing.T) {
	t.Parallel()
	s := toySuite()
	s.New = func() Streaming { return &chunky{toy: toy{carry: make([]byte, 0, toyBlock)}} }
	s.OneShot = oneShotToy /* The honest digest of the same bytes. */
	require.ErrorIs(t, s.Run([]byte("some data")), ErrAssert)
}

/* amnesiac forgets to clear its running state on Reset: the consistency and state
checks must flag it. */
type amnesiac struct{ toy }

func (c *amnesiac) Reset() error {
	state := c.state
	if err := c.toy.Reset(); err != nil {
		return err
	}
	c.state = state
	return nil
}

func TestStreamSuiteCatchesStickyReset(t *testing.T) {
	t.Parallel()
	s := toySuite()
	s.New = func() Streaming { return &amnesiac{toy{carry: make([]byte, 0, toyBlock)}} }
	s.OneShot = func(in []byte) ([]byte, error) {
		c := s.New()
		if err := c.Update(in); err != nil {
			return nil, err
		}
		return c.Finalize()
	}
	/* Long enough to push absorbed blocks into the running state before any reset. */
	require.ErrorIs(t, s.Run([]byte("a considerably longer piece of test data")), ErrAssert)
}

func TestSameStateDefault(t *testing.T) {
	t.Parallel()
	a, b := newToy(), newToy()
	require.NoError(t, SameState(a, b))
	require.NoError(t, b.Update(nil))
	require.NoError(t, SameState(a, b))
	require.NoError(t, b.Update([]byte("x")))
	require.ErrorIs(t, SameState(a, b), ErrAssert)
	require.NoError(t, b.Reset())
	require.NoError(t, SameState(a, b))
}
