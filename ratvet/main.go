package main

import (
	"bytes"
	. "fmt"
	"github.com/p7r0x7/ratify"
	"github.com/p7r0x7/ratify/chacha"
	"github.com/p7r0x7/ratify/digest"
	"github.com/p7r0x7/ratify/vectors"
	"github.com/p7r0x7/vainpath"
	. "github.com/spf13/pflag"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// Copyright © 2023 Matthew R Bonnette. Licensed under the Apache-2.0 license.

const n = "\n"
const success, failure = 0, 1

var warnings = 0

func main() { os.Exit(program()) }

// help prints a usage menu. To consistently correctly render this menu in most terminal
// windows, its content should be no wider than 80 columns.
func help() {
	origin, err := os.Executable()
	if err != nil {
		origin = "ratvet" /* Default binary name */
	} else {
		origin = filepath.Base(origin)
	}
	name := vainpath.Trim(origin, "…", 12)
	spaces := strings.Repeat(" ", utf8.RuneCountInString(name)+3)
	Fprint(os.Stderr, yell, "Consistency suites for streaming hashes and counter-mode ciphers.", zero, n+n+
		"Usage:"+n+
		"  ", name, " [-h]"+n,
		spaces, "[-t] [-m <string>] [--quiet|no-codes] [--strict] [PATH...]"+n+n+
			"Options:"+n)
	PrintDefaults()
	Fprint(os.Stderr, n+"With no PATH arguments, only the built-in suites run. Each PATH names a TOML"+n+
		"known-answer file whose vectors are checked against the primitive its"+n+
		"`algorithm` key selects."+n)
}

// This program is a command-line interface for ratify: it drags every bundled primitive
// through its consistency suite and checks any vector files named on the command line.
func program() int {
	if pHelp {
		help()
		return success
	}
	probe := []byte(pMessage)

	for _, s := range []struct {
		name string
		run  func() error
	}{
		{"BLAKE2b", func() error { return streamSuite(func() ratify.Streaming { return digest.NewBLAKE2b() }, digest.SumBLAKE2b, 128, probe) }},
		{"SHA-256", func() error { return streamSuite(func() ratify.Streaming { return digest.NewSHA256() }, digest.SumSHA256, 64, probe) }},
		{"SHA3-256", func() error { return streamSuite(func() ratify.Streaming { return digest.NewSHA3() }, digest.SumSHA3, 136, probe) }},
		{"BLAKE3", func() error { return streamSuite(func() ratify.Streaming { return digest.NewBLAKE3() }, digest.SumBLAKE3, 64, probe) }},
		{"XXH3", func() error { return streamSuite(func() ratify.Streaming { return digest.NewXXH3() }, digest.SumXXH3, 256, probe) }},
		{"ChaCha20", func() error { return cipherSuite(chacha.Encrypt, chacha.Decrypt, chacha.NonceSize, probe) }},
		{"XChaCha20", func() error { return cipherSuite(chacha.XEncrypt, chacha.XDecrypt, chacha.XNonceSize, probe) }},
	} {
		report(s.name, s.run)
	}

	for _, target := range Args() {
		name := target
		if !pNoCodes {
			name = vainpath.Simplify(target)
		}
		report(name, func() error { return checkFile(target) })
	}

	if !pQuiet && warnings == 1 {
		Fprint(os.Stderr, "1 ", purp, "suite or vector file failed.", zero, n)
	} else if !pQuiet && warnings > 1 {
		Fprint(os.Stderr, warnings, " ", purp, "suites or vector files failed.", zero, n)
	}
	if warnings > 0 {
		return failure
	}
	return success
}

func report(name string, run func() error) {
	start, delta := time.Now(), ""
	err := run()
	if pTime {
		d := time.Since(start)
		if d.Microseconds() > 99 {
			d = d.Truncate(10 * time.Microsecond)
		}
		delta = " (" + d.String() + ")"
	}
	if err != nil {
		warn(err)
		if !pQuiet {
			Print(purp, "FAIL", zero, `  `, name, delta, n, `      `, err, n)
		}
		return
	}
	if !pQuiet {
		Print(yell, "  ok", zero, `  `, und, name, zero, delta, n)
	}
}

func streamSuite(cons func() ratify.Streaming, shot func([]byte) ([]byte, error), block int, probe []byte) error {
	s := ratify.StreamSuite{New: cons, OneShot: shot, SameState: digest.SameState, BlockSize: block}
	if err := s.Run(probe); err != nil {
		return err
	}
	return s.Run(nil)
}

func cipherSuite(enc, dec ratify.CipherFunc, nonceSize int, probe []byte) error {
	s := ratify.CipherSuite{
		Encrypt: enc, Decrypt: dec,
		Key:   bytes.Repeat([]byte{0x2a}, chacha.KeySize),
		Nonce: bytes.Repeat([]byte{0x17}, nonceSize),
	}
	for _, counter := range []uint32{0, 1, 1 << 20} {
		if err := s.Run(counter, probe); err != nil {
			return err
		}
	}
	return s.Run(0, make([]byte, ratify.BlockSize*2+7))
}

// checkFile loads the vector file at path and checks every vector it holds against the
// primitive its algorithm key names.
func checkFile(path string) error {
	f, err := vectors.Load(path)
	if err != nil {
		return err
	}
	switch f.Algorithm {
	case "blake2b":
		return checkDigest(f, func([]byte, int) (*digest.Context, error) { return digest.NewBLAKE2b(), nil })
	case "blake2b-keyed":
		return checkDigest(f, digest.NewBLAKE2bMAC)
	case "sha256":
		return checkDigest(f, func([]byte, int) (*digest.Context, error) { return digest.NewSHA256(), nil })
	case "sha3":
		return checkDigest(f, func([]byte, int) (*digest.Context, error) { return digest.NewSHA3(), nil })
	case "blake3":
		return checkDigest(f, func([]byte, int) (*digest.Context, error) { return digest.NewBLAKE3(), nil })
	case "xxh3":
		return checkDigest(f, func([]byte, int) (*digest.Context, error) { return digest.NewXXH3(), nil })
	case "chacha20":
		return checkCipher(f, chacha.Encrypt, chacha.Decrypt)
	case "xchacha20":
		return checkCipher(f, chacha.XEncrypt, chacha.XDecrypt)
	}
	return Errorf("unrecognized algorithm %q: %w", f.Algorithm, ratify.ErrValidation)
}

func checkDigest(f *vectors.File, cons func(key []byte, ln int) (*digest.Context, error)) error {
	for i := range f.Vector {
		v := &f.Vector[i]
		in, key, _, out, err := v.Data()
		if err != nil {
			return err
		}
		c, err := cons(key, len(out))
		if err != nil {
			return Errorf("%q: %w", v.Name, err)
		}
		if err = c.Update(in); err != nil {
			return Errorf("%q: %w", v.Name, err)
		}
		sum, err := c.Finalize()
		if err != nil {
			return Errorf("%q: %w", v.Name, err)
		}
		if !bytes.Equal(sum, out) {
			return Errorf("%q: computed %x, published %x: %w", v.Name, sum, out, ratify.ErrAssert)
		}
	}
	return nil
}

func checkCipher(f *vectors.File, enc, dec ratify.CipherFunc) error {
	for i := range f.Vector {
		v := &f.Vector[i]
		in, key, nonce, out, err := v.Data()
		if err != nil {
			return err
		}
		got := make([]byte, len(in))
		if err = enc(key, nonce, v.Counter, in, got); err != nil {
			return Errorf("%q: %w", v.Name, err)
		}
		if !bytes.Equal(got, out) {
			return Errorf("%q: computed %x, published %x: %w", v.Name, got, out, ratify.ErrAssert)
		}
		back := make([]byte, len(out))
		if err = dec(key, nonce, v.Counter, out, back); err != nil {
			return Errorf("%q: %w", v.Name, err)
		}
		if !bytes.Equal(back, in) {
			return Errorf("%q: round trip lost the plaintext: %w", v.Name, ratify.ErrAssert)
		}
	}
	return nil
}

func warn(err ...interface{}) {
	if pStrict {
		panic(err)
	}
	warnings++
}
