package ratify

import (
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// Copyright © 2023 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// As with the streaming suite, the cipher suite is tested against an honest toy cipher
// and against broken ones that skip a precondition each; the suite must catch every one
// of them. The toy keystream is a mixing function, not cryptography.

func mix(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	return x ^ x>>33
}

/* toyKeystream fills block k of out deterministically from key, nonce, and counter+k. */
func toyKeystream(key, nonce []byte, counter uint32, out []byte) {
	var seed uint64
	for _, b := range key {
		seed = mix(seed + uint64(b))
	}
	for _, b := range nonce {
		seed = mix(seed + uint64(b))
	}
	var block [BlockSize]byte
	for i := 0; i < len(out); i += BlockSize {
		ctr := uint64(counter) + uint64(i/BlockSize)
		for w := 0; w < BlockSize; w += 8 {
			binary.LittleEndian.PutUint64(block[w:], mix(seed^mix(ctr)^uint64(w)))
		}
		copy(out[i:], block[:])
	}
}

func toyCipher(key, nonce []byte, counter uint32, in, out []byte) error {
	switch {
	case len(in) == 0:
		return fmt.Errorf("toy: empty input: %w", ErrValidation)
	case len(out) < len(in):
		return fmt.Errorf("toy: output too short: %w", ErrValidation)
	case CounterOverflows(counter, len(in)):
		return fmt.Errorf("toy: counter would wrap: %w", ErrValidation)
	}
	ks := make([]byte, len(in))
	toyKeystream(key, nonce, counter, ks)
	for i := range in {
		out[i] = in[i] ^ ks[i]
	}
	return nil
}

func toyCipherSuite() CipherSuite {
	return CipherSuite{
		Encrypt: toyCipher, Decrypt: toyCipher,
		Key:   []byte("0123456789abcdef0123456789abcdef"),
		Nonce: []byte("0123456789ab"),
	}
}

func TestCipherSuiteHonest(t *testing.T) {
	t.Parallel()
	s := toyCipherSuite()
	for _, n := range []int{1, 63, 64, 65, 128, 1000} {
		require.NoError(t, s.Run(0, make([]byte, n)), "length %d", n)
		require.NoError(t, s.Run(1, make([]byte, n)), "length %d", n)
	}
	require.NoError(t, s.Run(0, nil)) /* Empty input skips the length/round-trip checks. */

	/* A predicted wrap must be answered with rejection, and the suite accepts that. */
	require.NoError(t, s.Run(math.MaxUint32, make([]byte, 65)))
	require.NoError(t, s.Run(math.MaxUint32-1, make([]byte, 129)))
}

func TestCipherSuiteMisconfigured(t *testing.T) {
	t.Parallel()
	require.ErrorIs(t, (&CipherSuite{}).Run(0, nil), ErrValidation)
}

func TestCipherSuiteCatchesCounterWrap(t *testing.T) {
	t.Parallel()
	wrapping := func(key, nonce []byte, counter uint32, in, out []byte) error {
		switch {
		case len(in) == 0:
			return fmt.Errorf("toy: empty input: %w", ErrValidation)
		case len(out) < len(in):
			return fmt.Errorf("toy: output too short: %w", ErrValidation)
		}
		/* The counter silently wraps modulo 2^32. */
		ks := make([]byte, len(in))
		toyKeystream(key, nonce, counter, ks)
		for i := range in {
			out[i] = in[i] ^ ks[i]
		}
		return nil
	}
	s := toyCipherSuite()
	s.Encrypt, s.Decrypt = wrapping, wrapping
	err := s.Run(0, make([]byte, 64))
	require.ErrorIs(t, err, ErrAssert)
	require.ErrorContains(t, err, "counter")
}

func TestCipherSuiteCatchesPartialWrites(t *testing.T) {
	t.Parallel()
	leaky := func(key, nonce []byte, counter uint32, in, out []byte) error {
		if len(in) == 0 {
			return fmt.Errorf("toy: empty input: %w", ErrValidation)
		}
		/* Writes what fits before noticing the buffer is short. */
		n := len(in)
		if len(out) < n {
			n = len(out)
		}
		ks := make([]byte, n)
		toyKeystream(key, nonce, counter, ks)
		for i := 0; i < n; i++ {
			out[i] = in[i] ^ ks[i]
		}
		if len(out) < len(in) {
			return fmt.Errorf("toy: output too short: %w", ErrValidation)
		}
		if CounterOverflows(counter, len(in)) {
			return fmt.Errorf("toy: counter would wrap: %w", ErrValidation)
		}
		return nil
	}
	s := toyCipherSuite()
	s.Encrypt, s.Decrypt = leaky, leaky
	err := s.Run(0, make([]byte, 64))
	require.ErrorIs(t, err, ErrAssert)
	require.ErrorContains(t, err, "rejected buffer")
}

func TestCipherSuiteCatchesEmptyInputTolerance(t *testing.T) {
	t.Parallel()
	tolerant := func(key, nonce []byte, counter uint32, in, out []byte) error {
		if len(in) == 0 {
			return nil /* Degenerate no-op treated as success. */
		}
		return toyCipher(key, nonce, counter, in, out)
	}
	s := toyCipherSuite()
	s.Encrypt, s.Decrypt = tolerant, tolerant
	err := s.Run(0, make([]byte, 64))
	require.ErrorIs(t, err, ErrAssert)
	require.ErrorContains(t, err, "empty input")
}

func TestCipherSuiteCatchesBrokenInverse(t *testing.T) {
	t.Parallel()
	s := toyCipherSuite()
	s.Decrypt = func(key, nonce []byte, counter uint32, in, out []byte) error {
		if err := toyCipher(key, nonce, counter, in, out); err != nil {
			return err
		}
		out[0] ^= 0x01 /* Off by one bit. */
		return nil
	}
	err := s.Run(0, make([]byte, 64))
	require.ErrorIs(t, err, ErrAssert)
	require.ErrorContains(t, err, "plaintext not recovered")
}

func TestBlocks(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		n    int
		want uint64
	}{
		{-1, 0}, {0, 0}, {1, 1}, {63, 1}, {64, 1}, {65, 2}, {128, 2}, {129, 3},
		{math.MaxInt32, 1 << 25},
	} {
		require.Equal(t, tc.want, Blocks(tc.n), "Blocks(%d)", tc.n)
	}
}

func TestCounterOverflows(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		counter uint32
		n       int
		want    bool
	}{
		{0, 0, false},
		{0, 1, false},
		{math.MaxUint32, 0, false},
		{math.MaxUint32, 1, false},
		{math.MaxUint32, 64, false},
		{math.MaxUint32, 65, true},
		{math.MaxUint32 - 1, 128, false},
		{math.MaxUint32 - 1, 129, true},
		{1, 64 * (1 << 20), false},
	} {
		require.Equal(t, tc.want, CounterOverflows(tc.counter, tc.n),
			"CounterOverflows(%d, %d)", tc.counter, tc.n)
	}
}
