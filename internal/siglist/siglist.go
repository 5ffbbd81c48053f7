// Package siglist implements the signature-list binary container codec
// described by the UEFI EFI_SIGNATURE_LIST wire format: a little-endian
// packed header, {type_guid, list_size, header_size, sig_size}, followed by
// N fixed-size signatures of {owner_guid, data}.
//
// Parsing mirrors the scanning style magiskboot uses to walk packed
// headers with encoding/binary (see bootimg.go's binary.Read loops): decode
// a header, validate it, consume header_size + N*sig_size bytes, and move
// on. A list that fails validation is skipped rather than aborting the
// stream, so callers see everything they can recognize even over a
// partially corrupt input.
package siglist

import (
	"bytes"
	"encoding/binary"

	"mokctl/internal/efi"
	"mokctl/internal/mokerr"
)

// Kind tags a recognized signature entry. It is a closed, two-value tagged
// variant rather than something dispatched on length, per the "no dynamic
// dispatch on size" design note.
type Kind int

const (
	KindX509 Kind = iota
	KindSHA256
)

func (k Kind) String() string {
	if k == KindX509 {
		return "X509_CERT"
	}
	return "SHA256_HASH"
}

// Entry is a (kind, bytes) pair. Bytes is an owned copy, never a slice into
// the caller's input buffer, so parsed entries outlive the stream they came
// from without aliasing it (design note: no shared ownership across
// lifetimes).
type Entry struct {
	Kind  Kind
	Bytes []byte
}

// Equal reports whether two entries have the same kind and bytes, which is
// the equality relation the MOK set and delete matching use.
func (e Entry) Equal(other Entry) bool {
	return e.Kind == other.Kind && bytes.Equal(e.Bytes, other.Bytes)
}

type rawHeader struct {
	TypeGUID   efi.GUID
	ListSize   uint32
	HeaderSize uint32
	SigSize    uint32
}

// Parse iterates signature-list headers in stream until bytes are
// exhausted, returning every entry it recognizes. A list is skipped,
// without aborting the scan, when its type GUID is neither cert nor
// sha256, or when it claims to be sha256 but sig_size != 48. A truncated
// trailing header, or a list whose declared size runs past the end of
// stream, is also treated as the end of recognizable data: the partial
// tail is ignored rather than erroring.
func Parse(stream []byte) ([]Entry, error) {
	var entries []Entry
	off := 0

	for off+efi.SigHeaderSize <= len(stream) {
		var hdr rawHeader
		r := bytes.NewReader(stream[off : off+efi.SigHeaderSize])
		if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
			break
		}

		if hdr.ListSize < uint32(efi.SigHeaderSize) {
			break
		}
		if off+int(hdr.ListSize) > len(stream) {
			break
		}

		listEnd := off + int(hdr.ListSize)
		bodyStart := off + efi.SigHeaderSize + int(hdr.HeaderSize)

		recognized, ok := recognize(hdr.TypeGUID, hdr.SigSize)
		if !ok || bodyStart > listEnd || hdr.SigSize == 0 {
			off = listEnd
			continue
		}

		sigCount := (listEnd - bodyStart) / int(hdr.SigSize)
		for i := 0; i < sigCount; i++ {
			sigStart := bodyStart + i*int(hdr.SigSize)
			sigEnd := sigStart + int(hdr.SigSize)
			data := stream[sigStart+efi.OwnerGUIDSize : sigEnd]
			entries = append(entries, Entry{
				Kind:  recognized,
				Bytes: append([]byte(nil), data...),
			})
		}

		off = listEnd
	}

	return entries, nil
}

// recognize maps a type GUID and declared signature size to a Kind, or
// reports false when the list should be skipped.
func recognize(typeGUID efi.GUID, sigSize uint32) (Kind, bool) {
	switch typeGUID {
	case efi.CertX509GUID:
		return KindX509, true
	case efi.CertSHA256GUID:
		if sigSize != uint32(efi.HashSigSize) {
			return 0, false
		}
		return KindSHA256, true
	default:
		return 0, false
	}
}

// Count returns the number of recognized entries, computed as
// len(entries) from Parse on the same input, so it always agrees with
// Parse. It runs a full Parse, which copies every entry's bytes.
func Count(stream []byte) uint32 {
	entries, _ := Parse(stream)
	return uint32(len(entries))
}

// guidFor returns the type GUID to stamp on an encoded list for kind.
func guidFor(k Kind) efi.GUID {
	if k == KindX509 {
		return efi.CertX509GUID
	}
	return efi.CertSHA256GUID
}

// Encode emits one signature list per entry (one signature per list), each
// with owner_guid = SHIM_LOCK_GUID, header_size = 0, and
// sig_size = len(bytes) + 16. list_size is sizeof(header) + sig_size,
// matching the canonical wire format rather than the off-by-one the
// original producer computed during delete -> write_back (see
// SPEC_FULL.md's carried-forward redesign flag). Encoding zero entries
// yields zero bytes.
func Encode(entries []Entry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	for _, e := range entries {
		sigSize := uint32(len(e.Bytes)) + uint32(efi.OwnerGUIDSize)
		hdr := rawHeader{
			TypeGUID:   guidFor(e.Kind),
			ListSize:   uint32(efi.SigHeaderSize) + sigSize,
			HeaderSize: 0,
			SigSize:    sigSize,
		}
		if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
			return nil, mokerr.Wrap(mokerr.OutOfResources, "encode signature list header", err)
		}
		if err := binary.Write(&buf, binary.LittleEndian, efi.SHIM_LOCK_GUID); err != nil {
			return nil, mokerr.Wrap(mokerr.OutOfResources, "encode signature owner", err)
		}
		if _, err := buf.Write(e.Bytes); err != nil {
			return nil, mokerr.Wrap(mokerr.OutOfResources, "encode signature data", err)
		}
	}

	return buf.Bytes(), nil
}
