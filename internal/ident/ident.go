// Package ident produces the identifiers handed back for stored payloads.
package ident

import "github.com/google/uuid"

// Generator hands out fresh identifiers and recognises them again on the way
// back in. It never reserves ids; uniqueness is enforced by the datastore's
// primary key.
type Generator interface {
	Generate() string
	// Canonical maps an incoming id to the exact form Generate returns.
	// ok is false for anything this generator could never have produced.
	Canonical(id string) (canonical string, ok bool)
}

// UUID generates random (version 4) UUIDs in their canonical 36 character form.
// uuid.New panics if the system randomness source fails; that is fatal here too.
type UUID struct{}

func (UUID) Generate() string {
	return uuid.New().String()
}

// Canonical accepts every spelling uuid.Parse does (upper case, no dashes,
// braces, urn:uuid: prefix) and returns the lower-case dashed form.
func (UUID) Canonical(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}
