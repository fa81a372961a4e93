package vectors

import (
	"encoding/hex"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/p7r0x7/ratify"
)

// Copyright © 2023 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// Known-answer vectors live in TOML files so they can be read, diffed, and extended
// without touching Go source; this file loads them and decodes their hex fields. Which
// primitive a file belongs to is named by the file itself, not inferred.

// File is one vector file: a primitive name and its published (input, key, output)
// tuples. Ciphers carry a nonce and an initial block counter as well.
type File struct {
	Algorithm string   `toml:"algorithm"`
	Vector    []Vector `toml:"vector"`
}

// Vector is a single known-answer tuple with all byte fields hex-encoded.
type Vector struct {
	Name    string `toml:"name"`
	Input   string `toml:"input"`
	Key     string `toml:"key"`
	Nonce   string `toml:"nonce"`
	Counter uint32 `toml:"counter"`
	Output  string `toml:"output"`
}

// Load parses the vector file at path. A file without an algorithm name or without a
// single vector is rejected.
func Load(path string) (*File, error) {
	f := &File{}
	if _, err := toml.DecodeFile(path, f); err != nil {
		return nil, fmt.Errorf("vectors: %s: %v: %w", path, err, ratify.ErrValidation)
	}
	if f.Algorithm == "" {
		return nil, fmt.Errorf("vectors: %s names no algorithm: %w", path, ratify.ErrValidation)
	}
	if len(f.Vector) == 0 {
		return nil, fmt.Errorf("vectors: %s holds no vectors: %w", path, ratify.ErrValidation)
	}
	for i := range f.Vector {
		if _, _, _, _, err := f.Vector[i].Data(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Data hex-decodes the vector's byte fields. Output is required; the rest may be empty
// depending on the primitive.
func (v *Vector) Data() (in, key, nonce, out []byte, err error) {
	for _, field := range []struct {
		name string
		src  string
		dst  *[]byte
	}{
		{"input", v.Input, &in},
		{"key", v.Key, &key},
		{"nonce", v.Nonce, &nonce},
		{"output", v.Output, &out},
	} {
		if *field.dst, err = hex.DecodeString(field.src); err != nil {
			return nil, nil, nil, nil,
				fmt.Errorf("vectors: %q field %s: %v: %w", v.Name, field.name, err, ratify.ErrValidation)
		}
	}
	if len(out) == 0 {
		return nil, nil, nil, nil,
			fmt.Errorf("vectors: %q has no expected output: %w", v.Name, ratify.ErrValidation)
	}
	return in, key, nonce, out, nil
}
