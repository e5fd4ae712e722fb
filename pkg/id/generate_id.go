// Package id generates and checks the 32-char public identifiers used for
// loans, reminders and owners.
package id

import (
	"encoding/hex"
	"regexp"

	"github.com/google/uuid"
)

var reHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)

// NewID32 returns exactly 32 lowercase hex characters (a random UUID without hyphens).
func NewID32() string {
	return FromUUID(uuid.New())
}

// FromUUID renders u in the 32-char public form.
func FromUUID(u uuid.UUID) string {
	return hex.EncodeToString(u[:])
}

// Valid reports whether s is a 32-char lowercase hex identifier.
func Valid(s string) bool { return reHex32.MatchString(s) }
