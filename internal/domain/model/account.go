// Package model holds the domain types of a maintenance run.
package model

import (
	"fmt"

	"github.com/awnumar/memguard"
)

// Account is one set of console credentials processed by a run. Identity is
// sensitive and must only appear in user-visible text through redact.Mask.
type Account struct {
	Identity  string
	Secret    *SealedSecret
	Directive string
}

// HasDirective reports whether the account carries a console directive.
func (a Account) HasDirective() bool {
	return a.Directive != ""
}

// SealedSecret keeps a secret in a memguard enclave until it is typed into
// the browser. The zero value and a nil pointer both hold the empty secret.
type SealedSecret struct {
	enclave *memguard.Enclave
}

// NewSealedSecret encrypts s into an enclave. Empty input yields an empty secret.
func NewSealedSecret(s string) *SealedSecret {
	if s == "" {
		return &SealedSecret{}
	}
	return &SealedSecret{enclave: memguard.NewEnclave([]byte(s))}
}

// Reveal decrypts the secret. Callers should drop the returned string as soon
// as it has been used.
func (s *SealedSecret) Reveal() (string, error) {
	if s == nil || s.enclave == nil {
		return "", nil
	}
	buf, err := s.enclave.Open()
	if err != nil {
		return "", fmt.Errorf("open secret enclave: %w", err)
	}
	defer buf.Destroy()
	// Copy out; buf.String shares memory that Destroy wipes.
	return string(buf.Bytes()), nil
}

// Empty reports whether the secret holds no data.
func (s *SealedSecret) Empty() bool {
	return s == nil || s.enclave == nil
}

// String never prints the secret.
func (s *SealedSecret) String() string {
	return "[sealed]"
}
