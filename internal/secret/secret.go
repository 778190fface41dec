// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package secret seals short values such as OAuth tokens before they are
// written to the database. Sealed values are base64 text so they fit in a
// TEXT column.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrOpen is returned when a sealed value cannot be decrypted, either because
// it was tampered with or because it was sealed under a different key.
var ErrOpen = errors.New("secret: cannot open sealed value")

// Box seals and opens values with a single symmetric key.
type Box struct {
	key [32]byte
}

// New returns a Box for the given 32-byte key.
func New(key []byte) (*Box, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("secret: key must be 32 bytes, got %d", len(key))
	}
	b := &Box{}
	copy(b.key[:], key)
	return b, nil
}

// Seal encrypts plaintext. The empty string seals to the empty string so
// optional tokens stay empty in storage.
func (b *Box) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secret: read nonce: %w", err)
	}

	out := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal.
func (b *Box) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOpen, err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", fmt.Errorf("%w: value too short", ErrOpen)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", ErrOpen
	}
	return string(plain), nil
}
