package digest

import (
	"fmt"
	"hash"
	"reflect"

	blake2b "github.com/minio/blake2b-simd"
	sha256 "github.com/minio/sha256-simd"
	"github.com/p7r0x7/ratify"
	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/sha3"
)

// Copyright © 2023 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// This file adapts real streaming hashes and MACs to the lifecycle contract in the root
// package: hash.Hash knows nothing of finalization, so Context bolts the
// Fresh/Accumulating/Finalized gate on top and rebuilds the inner hash from scratch on
// Reset—library Reset() methods are allowed to leave stale bytes in dead buffer regions,
// which would make honest structural comparison impossible.

// Size is the digest length in bytes produced by every context in this package except
// XXH3, whose output is its native 16 bytes.
const Size = 32

// Context satisfies ratify.Streaming around any deterministically-constructed hash.Hash.
type Context struct {
	h    hash.Hash
	cons func() hash.Hash
	done bool
}

// New wraps the hashes returned by cons, which must be deterministic: two calls must
// yield structurally identical values.
func New(cons func() hash.Hash) *Context {
	return &Context{h: cons(), cons: cons}
}

func (c *Context) Update(in []byte) error {
	if c.done {
		return fmt.Errorf("digest: update after finalize: %w", ratify.ErrState)
	}
	if len(in) == 0 {
		/* The contract makes this a no-op; it must not reach the inner hash, whose
		lazily-grown buffers would otherwise become structurally visible. */
		return nil
	}
	_, _ = c.h.Write(in) /* hash.Hash.Write never errors. */
	return nil
}

func (c *Context) Reset() error {
	c.h, c.done = c.cons(), false
	return nil
}

func (c *Context) Finalize() ([]byte, error) {
	if c.done {
		return nil, fmt.Errorf("digest: double finalize: %w", ratify.ErrState)
	}
	c.done = true
	return c.h.Sum(nil), nil
}

// SameState is the structural comparison for Contexts: the finalized gates and the inner
// hash states must match exactly. It is what proves Reset erases history rather than
// hiding it.
func SameState(a, b ratify.Streaming) error {
	x, okx := a.(*Context)
	y, oky := b.(*Context)
	if !okx || !oky {
		return fmt.Errorf("digest: not Contexts: %w", ratify.ErrValidation)
	}
	if x.done != y.done {
		return fmt.Errorf("digest: finalized flags differ: %w", ratify.ErrAssert)
	}
	if !reflect.DeepEqual(x.h, y.h) {
		return fmt.Errorf("digest: inner hash states differ: %w", ratify.ErrAssert)
	}
	return nil
}

// NewBLAKE2b returns a Context computing unkeyed BLAKE2b-256.
func NewBLAKE2b() *Context {
	return New(func() hash.Hash {
		h, _ := blake2b.New(&blake2b.Config{Size: Size})
		return h
	})
}

// SumBLAKE2b is the one-shot equivalent of NewBLAKE2b.
func SumBLAKE2b(in []byte) ([]byte, error) {
	return oneShot(NewBLAKE2b(), in)
}

// NewBLAKE2bMAC returns a Context computing keyed BLAKE2b with an ln-byte digest, the
// MAC construction BLAKE2 ships natively. Key and digest lengths outside the backend's
// 1–64 byte ranges are rejected.
func NewBLAKE2bMAC(key []byte, ln int) (*Context, error) {
	if ln < 1 || ln > 64 {
		return nil, fmt.Errorf("digest: %d-byte digests unsupported: %w", ln, ratify.ErrValidation)
	}
	if _, err := blake2b.New(&blake2b.Config{Size: uint8(ln), Key: key}); err != nil {
		return nil, fmt.Errorf("digest: %v: %w", err, ratify.ErrValidation)
	}
	key = append([]byte{}, key...)
	return New(func() hash.Hash {
		h, _ := blake2b.New(&blake2b.Config{Size: uint8(ln), Key: key})
		return h
	}), nil
}

// SumBLAKE2bMAC is the one-shot equivalent of NewBLAKE2bMAC.
func SumBLAKE2bMAC(key, in []byte, ln int) ([]byte, error) {
	c, err := NewBLAKE2bMAC(key, ln)
	if err != nil {
		return nil, err
	}
	return oneShot(c, in)
}

// NewSHA256 returns a Context computing SHA-256.
func NewSHA256() *Context { return New(sha256.New) }

// SumSHA256 is the one-shot equivalent of NewSHA256.
func SumSHA256(in []byte) ([]byte, error) {
	sum := sha256.Sum256(in)
	return sum[:], nil
}

// NewSHA3 returns a Context computing SHA3-256.
func NewSHA3() *Context { return New(sha3.New256) }

// SumSHA3 is the one-shot equivalent of NewSHA3.
func SumSHA3(in []byte) ([]byte, error) {
	sum := sha3.Sum256(in)
	return sum[:], nil
}

// NewBLAKE3 returns a Context computing BLAKE3-256.
func NewBLAKE3() *Context {
	return New(func() hash.Hash { return blake3.New() })
}

// SumBLAKE3 is the one-shot equivalent of NewBLAKE3.
func SumBLAKE3(in []byte) ([]byte, error) {
	sum := blake3.Sum256(in)
	return sum[:], nil
}

// NewXXH3 returns a Context computing 128-bit XXH3. Not a cryptographic hash; it rides
// along because the lifecycle contract is primitive-agnostic and the carry-buffer sweep
// catches the same off-by-ones in it.
func NewXXH3() *Context {
	return New(func() hash.Hash { return xxh3.New() })
}

// SumXXH3 is the one-shot equivalent of NewXXH3.
func SumXXH3(in []byte) ([]byte, error) {
	return oneShot(NewXXH3(), in)
}

func oneShot(c *Context, in []byte) ([]byte, error) {
	if err := c.Update(in); err != nil {
		return nil, err
	}
	return c.Finalize()
}
