// Package authrecord decodes the two on-wire password record shapes this
// module authenticates against: the legacy raw-SHA-256 record and the
// modern fixed-size salted/iterated record. Centralizing the decode here
// means every call site sees a typed Record instead of re-deriving
// "legacy or modern" from a buffer length, per the design note that flags
// that branch as dynamic dispatch masquerading as a size check.
package authrecord

import (
	"encoding/binary"

	"mokctl/internal/mokerr"
)

// LegacySize is the length of a Legacy record: a raw SHA-256 digest.
const LegacySize = 32

// Method identifies the modern record's hash function. Method IDs match
// those written by the staging tool (spec.md §6).
type Method byte

const (
	// MethodPBKDF2SHA256 derives the candidate hash with PBKDF2-HMAC-SHA256,
	// the same construction internal/crypto.CryptoService.DeriveKey uses
	// for vault key derivation.
	MethodPBKDF2SHA256 Method = 1
	// MethodArgon2id derives the candidate hash with Argon2id, the KDF
	// internal/recovery's KDFParams names for its (stubbed) backup-phrase
	// encryption key.
	MethodArgon2id Method = 2
)

// HashLen returns the length of the hash field for a given method, or 0
// for an unrecognized method.
func (m Method) HashLen() int {
	switch m {
	case MethodPBKDF2SHA256, MethodArgon2id:
		return 32
	default:
		return 0
	}
}

const (
	saltLen = 16
	// ModernSize is the fixed total size of a Modern record:
	// method(1) + iterCount(4) + salt(16) + hash(32).
	ModernSize = 1 + 4 + saltLen + 32
)

// Record is the tagged variant over the two password record shapes. Type
// switch on the concrete type (Legacy or Modern) rather than branching on
// a stored length at the call site.
type Record interface {
	isRecord()
	// Size returns the record's on-wire length.
	Size() int
}

// Legacy is 32 raw bytes: SHA-256(salt-material || utf16(password)). It
// carries no persisted salt; optional_challenge_data (see authengine) plays
// that role instead.
type Legacy struct {
	Hash [LegacySize]byte
}

func (Legacy) isRecord()  {}
func (Legacy) Size() int { return LegacySize }

// Modern is the fixed-size PASSWORD_CRYPT record.
type Modern struct {
	Method     Method
	Iterations uint32
	Salt       [saltLen]byte
	Hash       [32]byte
}

func (Modern) isRecord()  {}
func (Modern) Size() int { return ModernSize }

// Decode dispatches purely on len(buf), the one place this module makes
// that decision, and returns a typed Record every other caller can type
// switch on.
func Decode(buf []byte) (Record, error) {
	switch len(buf) {
	case LegacySize:
		var r Legacy
		copy(r.Hash[:], buf)
		return r, nil
	case ModernSize:
		method := Method(buf[0])
		if method.HashLen() == 0 {
			return nil, mokerr.New(mokerr.Parse, "unrecognized password record method")
		}
		var r Modern
		r.Method = method
		r.Iterations = binary.LittleEndian.Uint32(buf[1:5])
		copy(r.Salt[:], buf[5:5+saltLen])
		copy(r.Hash[:], buf[5+saltLen:])
		return r, nil
	default:
		return nil, mokerr.New(mokerr.Parse, "password record has unrecognized size")
	}
}

// IsAllZero reports whether buf, sized as a legacy or modern record, is
// entirely zero bytes -- the sentinel MokPW uses to mean "clear the
// password" rather than "set this value".
func IsAllZero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}

// Encode serializes a Modern record back to its on-wire form. set_pw does
// not call it: it writes the staged MokPW bytes to MokPWStore unchanged.
func (r Modern) Encode() []byte {
	buf := make([]byte, ModernSize)
	buf[0] = byte(r.Method)
	binary.LittleEndian.PutUint32(buf[1:5], r.Iterations)
	copy(buf[5:5+saltLen], r.Salt[:])
	copy(buf[5+saltLen:], r.Hash[:])
	return buf
}

// Encode serializes a Legacy record back to its on-wire form.
func (r Legacy) Encode() []byte {
	buf := make([]byte, LegacySize)
	copy(buf, r.Hash[:])
	return buf
}
