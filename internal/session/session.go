// Package session manages short-lived credential sessions against the
// external custody service: an in-memory store keyed by organization and
// purpose, a broker that creates sessions in three modes, proactive
// refresh before expiry, and deterministic invalidation. No credential
// ever touches durable storage.
package session

import (
	"time"

	"github.com/votis/walletd/internal/secure"
	"github.com/votis/walletd/internal/stamp"
)

// Purpose distinguishes what a session may be used for. It is part of
// the session key: one live session per (organization, purpose).
type Purpose string

// Session purposes. Mode selection is the caller's role, never inferred
// from request shape.
const (
	PurposeReadOnly        Purpose = "read_only"
	PurposeReadWriteClient Purpose = "read_write_client"
	PurposeReadWriteServer Purpose = "read_write_server"
)

// Default lifetimes. Read-write sessions are short because they carry
// signing capability; read-only sessions live longer. The store itself
// is policy-agnostic and honors whatever the broker supplies.
const (
	DefaultReadOnlyTTL  = time.Hour
	DefaultReadWriteTTL = 15 * time.Minute
)

// Key identifies one session slot in the store.
type Key struct {
	OrganizationID string
	Purpose        Purpose
}

// String renders the key for logs and coalescing groups. Contains no
// secret material.
func (k Key) String() string {
	return k.OrganizationID + "/" + string(k.Purpose)
}

// Credentials holds whichever credential shape the purpose produced.
// Exactly one of the fields is populated.
type Credentials struct {
	// Token is the plaintext bearer credential of a read-only session.
	Token string

	// Bundle is the still-encrypted credential bundle of a client
	// read-write session. The server forwards it without decrypting;
	// decrypting here would break the non-custodial guarantee.
	Bundle string

	// Signer signs operations for a server read-write session. Its key
	// material lives in locked memory until Destroy.
	Signer *stamp.P256Signer

	raw *secure.Buffer
}

// Destroy zeroes any decrypted key material. Safe on all shapes.
func (c *Credentials) Destroy() {
	if c.raw != nil {
		c.raw.Destroy()
		c.raw = nil
	}
	c.Signer = nil
	c.Token = ""
	c.Bundle = ""
}

// Session is one live credential session. Owned exclusively by the
// Store; created by the Broker and replaced only by broker-driven
// refresh.
type Session struct {
	ID          string
	Key         Key
	UserID      string
	Credentials Credentials

	CreatedAt time.Time
	ExpiresAt time.Time
	// RefreshAt is when proactive replacement begins, strictly before
	// ExpiresAt so in-flight operations never observe mid-call expiry.
	RefreshAt time.Time
}

// Live reports whether the session is usable at the given instant.
func (s *Session) Live(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// TTL returns the remaining lifetime at the given instant, 0 if expired.
func (s *Session) TTL(now time.Time) time.Duration {
	remaining := s.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
