package chacha

import (
	"fmt"
	"math"

	"github.com/aead/chacha20/chacha"
	"github.com/p7r0x7/ratify"
	xchacha "gitlab.com/yawning/chacha20.git"
	"golang.org/x/crypto/chacha20"
)

// Copyright © 2023 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// This file implements the counter-mode cipher contract for ChaCha20 and XChaCha20.
// Every precondition—key and nonce lengths, non-empty input, output capacity, counter
// headroom—is settled before the backend is touched, so a rejected call writes nothing.

const (
	// KeySize is the ChaCha20/XChaCha20 key length in bytes.
	KeySize = 32
	// NonceSize is the IETF ChaCha20 nonce length in bytes.
	NonceSize = 12
	// XNonceSize is the XChaCha20 nonce length in bytes.
	XNonceSize = 24
	rounds     = 20
)

func check(key, nonce []byte, nonceSize int, counter uint32, in, out []byte) error {
	switch {
	case len(key) != KeySize:
		return fmt.Errorf("chacha: key is %d bytes, must be %d: %w",
			len(key), KeySize, ratify.ErrValidation)
	case len(nonce) != nonceSize:
		return fmt.Errorf("chacha: nonce is %d bytes, must be %d: %w",
			len(nonce), nonceSize, ratify.ErrValidation)
	case len(in) == 0:
		return fmt.Errorf("chacha: input is empty: %w", ratify.ErrValidation)
	case len(out) < len(in):
		return fmt.Errorf("chacha: output holds %d bytes, input is %d: %w",
			len(out), len(in), ratify.ErrValidation)
	case ratify.CounterOverflows(counter, len(in)):
		return fmt.Errorf("chacha: %d blocks from counter %d wrap the counter: %w",
			ratify.Blocks(len(in)), counter, ratify.ErrValidation)
	}
	return nil
}

// Encrypt applies the IETF ChaCha20 keystream for key and nonce, starting at the given
// block counter, to in and writes the result into the first len(in) bytes of out.
func Encrypt(key, nonce []byte, counter uint32, in, out []byte) error {
	if err := check(key, nonce, NonceSize, counter, in, out); err != nil {
		return err
	}
	if uint64(counter)+ratify.Blocks(len(in)) > math.MaxUint32 {
		/* The final block here sits at the very top of the counter range, which
		aead/chacha20 treats as already overflowed and panics on; x/crypto draws the
		boundary inclusively and emits that last block. Both produce the RFC 8439
		keystream, so the seam is invisible. */
		c, err := chacha20.NewUnauthenticatedCipher(key, nonce)
		if err != nil {
			return fmt.Errorf("chacha: %v: %w", err, ratify.ErrValidation)
		}
		c.SetCounter(counter)
		c.XORKeyStream(out[:len(in)], in)
		return nil
	}
	c, err := chacha.NewCipher(nonce, key, rounds)
	if err != nil {
		return fmt.Errorf("chacha: %v: %w", err, ratify.ErrValidation)
	}
	c.SetCounter(uint64(counter))
	c.XORKeyStream(out[:len(in)], in)
	return nil
}

// Decrypt inverts Encrypt for the same key, nonce, and counter. The keystream is its
// own inverse under XOR.
func Decrypt(key, nonce []byte, counter uint32, in, out []byte) error {
	return Encrypt(key, nonce, counter, in, out)
}

// XEncrypt is Encrypt for XChaCha20, which derives a subkey from the first 16 nonce
// bytes and runs ChaCha20 over the rest.
func XEncrypt(key, nonce []byte, counter uint32, in, out []byte) error {
	if err := check(key, nonce, XNonceSize, counter, in, out); err != nil {
		return err
	}
	c, err := xchacha.New(key, nonce)
	if err != nil {
		return fmt.Errorf("chacha: %v: %w", err, ratify.ErrValidation)
	}
	if err = c.Seek(uint64(counter)); err != nil {
		return fmt.Errorf("chacha: %v: %w", err, ratify.ErrValidation)
	}
	c.XORKeyStream(out[:len(in)], in)
	return nil
}

// XDecrypt inverts XEncrypt for the same key, nonce, and counter.
func XDecrypt(key, nonce []byte, counter uint32, in, out []byte) error {
	return XEncrypt(key, nonce, counter, in, out)
}
