// Package authengine implements password capture, hashing, and
// verification against the two authrecord.Record shapes, plus the
// positional "three random characters" challenge used for the Secure Boot
// toggle.
//
// The legacy/modern split is grounded on internal/crypto.CryptoService's
// DeriveKey (PBKDF2-SHA256) and internal/recovery's Argon2id KDFParams
// reference in the teacher repo; the retry counting mirrors the shape of
// internal/security.ValidationRateLimiter reduced to the spec's exact
// "fail on the 3rd mismatch, never sooner" rule. The positional challenge
// is a full implementation of the idea internal/recovery/challenge.go left
// as a TODO stub in the teacher (selectChallengePositions /
// ShuffleChallengePositions), specialized to 3 positions over a cleartext
// password rather than a 24-word mnemonic.
package authengine

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"strconv"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"

	"mokctl/internal/authrecord"
	"mokctl/internal/console"
	"mokctl/internal/mokerr"
	"mokctl/internal/rng"
)

// MaxAttempts is the fixed retry budget spec.md §4.3 mandates: "up to 3
// attempts total per verification call; on the 3rd mismatch return
// AccessDenied".
const MaxAttempts = 3

// Argon2id parameters, matching internal/recovery/constants.go's
// DefaultMemory/DefaultThreads so the modern method-2 path uses the same
// KDF cost the teacher already specifies for Argon2id elsewhere.
const (
	argon2Memory  = 65536
	argon2Threads = 4
)

// Engine verifies operator-entered passwords against staged records.
type Engine struct {
	console console.Port
}

// New builds an Engine over the given console port.
func New(c console.Port) *Engine {
	return &Engine{console: c}
}

// Verify prompts for a password up to MaxAttempts times, comparing each
// attempt against record. challenge is the optional_challenge_data a
// Legacy record was originally hashed over (the staging payload for
// enroll/delete, empty for the standalone MOK password). It returns nil on
// the first match, or an AccessDenied error after exactly MaxAttempts
// mismatches -- never fewer.
func (e *Engine) Verify(ctx context.Context, prompt string, record authrecord.Record, challenge []byte) error {
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		units, err := e.capturePassword(ctx, prompt)
		if err != nil {
			return err
		}

		ok, err := matches(record, units, challenge)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return mokerr.New(mokerr.AccessDenied, "password verification failed")
}

// capturePassword reads a non-empty password line, re-prompting on empty
// input (spec.md §4.3: "Empty lines are rejected"). This loop does not
// consume a Verify attempt; it is a capture-level constraint, not a
// mismatch.
func (e *Engine) capturePassword(ctx context.Context, prompt string) ([]uint16, error) {
	const maxEmptyRetries = 5
	for i := 0; i < maxEmptyRetries; i++ {
		units, err := e.console.ReadPasswordLine(ctx, prompt)
		if err != nil {
			return nil, mokerr.Wrap(mokerr.Storage, "read password", err)
		}
		if len(units) > 0 {
			return units, nil
		}
		_ = e.console.Notify(ctx, "password must not be empty")
	}
	return nil, mokerr.New(mokerr.UserAbort, "no password entered")
}

// matches computes the candidate hash for record and compares it against
// the entered password in constant time.
func matches(record authrecord.Record, units []uint16, challenge []byte) (bool, error) {
	switch r := record.(type) {
	case authrecord.Legacy:
		h := sha256.New()
		h.Write(challenge)
		h.Write(utf16LEBytes(units))
		sum := h.Sum(nil)
		return subtle.ConstantTimeCompare(sum, r.Hash[:]) == 1, nil

	case authrecord.Modern:
		candidate, err := deriveModernHash(r, units)
		if err != nil {
			return false, err
		}
		hashLen := r.Method.HashLen()
		return subtle.ConstantTimeCompare(candidate[:hashLen], r.Hash[:hashLen]) == 1, nil

	default:
		return false, mokerr.New(mokerr.Parse, "unrecognized password record type")
	}
}

// deriveModernHash runs the method-selected KDF over the UTF-8
// transcoding of the entered password (the low byte of each UTF-16 code
// unit, dropping NUL units), against the record's salt/iterations.
func deriveModernHash(r authrecord.Modern, units []uint16) ([]byte, error) {
	pw := utf8LowByteTranscode(units)
	switch r.Method {
	case authrecord.MethodPBKDF2SHA256:
		return pbkdf2.Key(pw, r.Salt[:], int(r.Iterations), 32, sha256.New), nil
	case authrecord.MethodArgon2id:
		return argon2.IDKey(pw, r.Salt[:], r.Iterations, argon2Memory, argon2Threads, 32), nil
	default:
		return nil, mokerr.New(mokerr.Parse, "unrecognized password record method")
	}
}

// utf16LEBytes encodes units as little-endian UTF-16, the byte form the
// legacy hash mixes with its challenge payload. High bytes are preserved
// deliberately (design note: kept for backward compatibility with
// already-staged MokAuth records).
func utf16LEBytes(units []uint16) []byte {
	buf := make([]byte, 0, len(units)*2)
	for _, u := range units {
		buf = append(buf, byte(u), byte(u>>8))
	}
	return buf
}

// utf8LowByteTranscode takes the low byte of each UTF-16 code unit,
// dropping every NUL unit wherever it occurs.
func utf8LowByteTranscode(units []uint16) []byte {
	buf := make([]byte, 0, len(units))
	for _, u := range units {
		if u == 0 {
			continue
		}
		buf = append(buf, byte(u))
	}
	return buf
}

// PositionalChallenge implements spec.md §4.3's three-random-character
// prompt used for the Secure Boot toggle: sample three distinct positions
// in [0, pwLen), prompt for each one character at a time (labeled by
// 1-based index, no echo), and require up to 3 full-round retries with
// three successful matches needed per round.
func (e *Engine) PositionalChallenge(ctx context.Context, password []uint16) error {
	pwLen := len(password)
	if pwLen == 0 {
		return mokerr.New(mokerr.Parse, "empty challenge password")
	}

	for round := 1; round <= MaxAttempts; round++ {
		positions, err := rng.DistinctPositions(pwLen, 3)
		if err != nil {
			return err
		}

		allMatched := true
		for _, pos := range positions {
			got, err := e.console.ReadChar(ctx, charPrompt(pos))
			if err != nil {
				return mokerr.Wrap(mokerr.Storage, "read challenge character", err)
			}
			if rune(password[pos]) != got {
				allMatched = false
			}
		}
		if allMatched {
			return nil
		}
	}

	return mokerr.New(mokerr.AccessDenied, "positional challenge failed")
}

func charPrompt(pos int) string {
	return "Enter character " + strconv.Itoa(pos+1) + ": "
}
