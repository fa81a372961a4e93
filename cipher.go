package ratify

import (
	"bytes"
	"errors"
	"fmt"
	"math"
)

// Copyright © 2023 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// This file implements the consistency suite for counter-mode stream ciphers: Output
// buffers must be validated before a single byte is written, encrypt and decrypt must be
// mutual inverses, and the 32-bit block counter must refuse to wrap. The block-count
// arithmetic here is exact integer ceiling division; floating-point estimates round the
// wrong way at large lengths.

// BlockSize is the number of keystream bytes governed by one block counter value.
const BlockSize = 64

// CipherFunc is the shared shape of a counter-mode encryptor or decryptor: It consumes
// in and writes exactly len(in) bytes of output into out, which the caller allocates.
// The counter for the k-th keystream block consumed is counter+k.
type CipherFunc func(key, nonce []byte, counter uint32, in, out []byte) error

// Blocks returns the number of keystream blocks required to process n bytes.
func Blocks(n int) uint64 {
	if n < 0 {
		return 0
	}
	return (uint64(n) + BlockSize - 1) / BlockSize
}

// CounterOverflows reports whether processing n bytes starting at counter would advance
// the block counter beyond the 32-bit range. The boundary is inclusive: one block at
// counter MaxUint32 fits, a second does not.
func CounterOverflows(counter uint32, n int) bool {
	blocks := Blocks(n)
	if blocks == 0 {
		return false
	}
	return uint64(counter)+blocks-1 > math.MaxUint32
}

// CipherSuite vets an encryptor/decryptor pair sharing key and nonce. Both funcs are
// required; key and nonce are passed through opaquely to them.
type CipherSuite struct {
	Encrypt, Decrypt CipherFunc
	Key, Nonce       []byte
}

// Run exercises the full suite with the given initial counter and sample input and
// returns the first contract violation found, or nil. Checks needing non-empty input
// are skipped when input is empty, as in the streaming suite's empty pass.
func (c *CipherSuite) Run(counter uint32, input []byte) error {
	if c.Encrypt == nil || c.Decrypt == nil {
		return fmt.Errorf("misconfigured suite: %w", ErrValidation)
	}
	if len(input) > 0 {
		if err := c.roundTrip(counter, input); err != nil {
			return fmt.Errorf("round trip: %w", err)
		}
		if err := c.outLength(input); err != nil {
			return fmt.Errorf("output length validation: %w", err)
		}
	}
	if err := c.emptyInput(); err != nil {
		return fmt.Errorf("empty input rejection: %w", err)
	}
	if err := c.counterOverflowErr(); err != nil {
		return fmt.Errorf("counter overflow detection: %w", err)
	}
	if err := c.counterMaxOK(); err != nil {
		return fmt.Errorf("maximum counter boundary: %w", err)
	}
	return nil
}

func (c *CipherSuite) each(fn func(name string, op CipherFunc) error) error {
	if err := fn("encrypt", c.Encrypt); err != nil {
		return err
	}
	return fn("decrypt", c.Decrypt)
}

/* Decrypting a ciphertext with the same key, nonce, and counter must reproduce the
plaintext exactly. When the counter arithmetic predicts a wrap, both operations must
instead reject the call outright. */
func (c *CipherSuite) roundTrip(counter uint32, input []byte) error {
	if CounterOverflows(counter, len(input)) {
		return c.each(func(name string, op CipherFunc) error {
			out := make([]byte, len(input))
			if err := op(c.Key, c.Nonce, counter, input, out); !errors.Is(err, ErrValidation) {
				return fmt.Errorf("%s at counter %d over %d bytes returned %v, want ErrValidation: %w",
					name, counter, len(input), err, ErrAssert)
			}
			return nil
		})
	}

	ct := make([]byte, len(input))
	if err := c.Encrypt(c.Key, c.Nonce, counter, input, ct); err != nil {
		return err
	}
	pt := make([]byte, len(input))
	if err := c.Decrypt(c.Key, c.Nonce, counter, ct, pt); err != nil {
		return err
	}
	if !bytes.Equal(pt, input) {
		return fmt.Errorf("plaintext not recovered (%x != %x): %w", pt, input, ErrAssert)
	}
	return nil
}

/* Output strictly shorter than input fails without touching the buffer; exactly sized
and oversized buffers succeed. Excess bytes are unconstrained. */
func (c *CipherSuite) outLength(input []byte) error {
	return c.each(func(name string, op CipherFunc) error {
		if err := op(c.Key, c.Nonce, 0, input, nil); !errors.Is(err, ErrValidation) {
			return fmt.Errorf("%s into empty buffer returned %v, want ErrValidation: %w",
				name, err, ErrAssert)
		}

		short := make([]byte, len(input)-1)
		for i := range short {
			short[i] = 0xa5
		}
		if err := op(c.Key, c.Nonce, 0, input, short); !errors.Is(err, ErrValidation) {
			return fmt.Errorf("%s into short buffer returned %v, want ErrValidation: %w",
				name, err, ErrAssert)
		}
		for i := range short {
			if short[i] != 0xa5 {
				return fmt.Errorf("%s wrote %d bytes into a rejected buffer: %w", name, i+1, ErrAssert)
			}
		}

		exact := make([]byte, len(input))
		if err := op(c.Key, c.Nonce, 0, input, exact); err != nil {
			return fmt.Errorf("%s into exact buffer returned %v: %w", name, err, ErrAssert)
		}
		greater := make([]byte, len(input)+1)
		if err := op(c.Key, c.Nonce, 0, input, greater); err != nil {
			return fmt.Errorf("%s into oversized buffer returned %v: %w", name, err, ErrAssert)
		}
		if !bytes.Equal(exact, greater[:len(input)]) {
			return fmt.Errorf("%s output depends on buffer capacity: %w", name, ErrAssert)
		}
		return nil
	})
}

/* Zero-length input is misuse under this contract, not a degenerate success. */
func (c *CipherSuite) emptyInput() error {
	return c.each(func(name string, op CipherFunc) error {
		out := [BlockSize]byte{}
		if err := op(c.Key, c.Nonce, 0, nil, out[:]); !errors.Is(err, ErrValidation) {
			return fmt.Errorf("%s of empty input returned %v, want ErrValidation: %w",
				name, err, ErrAssert)
		}
		return nil
	})
}

/* BlockSize+1 bytes at counter MaxUint32 forces a second block and must be refused
before any keystream is produced. */
func (c *CipherSuite) counterOverflowErr() error {
	return c.each(func(name string, op CipherFunc) error {
		in, out := [BlockSize + 1]byte{}, [BlockSize * 2]byte{}
		for i := range out {
			out[i] = 0xa5
		}
		if err := op(c.Key, c.Nonce, math.MaxUint32, in[:], out[:]); !errors.Is(err, ErrValidation) {
			return fmt.Errorf("%s past counter wrap returned %v, want ErrValidation: %w",
				name, err, ErrAssert)
		}
		for i := range out {
			if out[i] != 0xa5 {
				return fmt.Errorf("%s leaked keystream on the failure path: %w", name, ErrAssert)
			}
		}
		return nil
	})
}

/* Exactly one block at counter MaxUint32 needs no increment and must succeed. */
func (c *CipherSuite) counterMaxOK() error {
	return c.each(func(name string, op CipherFunc) error {
		in, out := [BlockSize]byte{}, [BlockSize]byte{}
		if err := op(c.Key, c.Nonce, math.MaxUint32, in[:], out[:]); err != nil {
			return fmt.Errorf("%s of one block at max counter returned %v: %w", name, err, ErrAssert)
		}
		return nil
	})
}
