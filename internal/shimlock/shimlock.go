// Package shimlock defines the PE-image-hash protocol FileEnroll calls
// when an operator stages an unsigned binary rather than a bare X.509
// certificate or detached hash. The real shim_lock protocol computes this
// hash over an authenticode-style digest of the PE image (headers and
// sections, excluding the checksum field and the certificate table) so the
// resulting MokList entry matches what the bootloader itself will hash at
// verification time. SoftwareHasher is a simplified pure-Go digest that
// stands in for that protocol (see HashPEImage for what it covers),
// grounded on the SHIM_LOCK->Context/Hash call pair in
// original_source/MokManager.c's import_file.
package shimlock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"io"

	"mokctl/internal/mokerr"
)

// Port is the PE-image-hash protocol FileEnroll depends on. Both
// cmd/mokctl and cmd/mokctl-sim bind it to SoftwareHasher; this module has
// no binding to the firmware's shim_lock protocol.
type Port interface {
	HashPEImage(ctx context.Context, r io.ReaderAt, size int64) ([32]byte, error)
}

// SoftwareHasher is a pure-Go stand-in for the firmware shim_lock
// protocol's Context+Hash call pair, letting FileEnroll's as-hash path run
// against a PE image without a firmware environment. Its digest is not the
// full authenticode digest; see HashPEImage.
type SoftwareHasher struct{}

// peHeader offsets relevant to the authenticode-style digest: the pointer
// to the COFF/PE header sits at offset 0x3c of the DOS header.
const (
	dosHeaderPECCOffset = 0x3c
	coffHeaderSize      = 20
	checksumOffset      = 64 // offset of Checksum within the optional header
	checksumSize        = 4
)

// HashPEImage computes a SHA-256 digest over every byte of the PE image
// except the 4-byte optional-header checksum field. It does not skip the
// certificate-table directory entry, does not exclude the certificate
// table itself, and does not walk the section table.
func (SoftwareHasher) HashPEImage(ctx context.Context, r io.ReaderAt, size int64) ([32]byte, error) {
	var zero [32]byte
	if size < dosHeaderPECCOffset+4 {
		return zero, mokerr.New(mokerr.Parse, "file too small to be a PE image")
	}

	peOffsetBuf := make([]byte, 4)
	if _, err := r.ReadAt(peOffsetBuf, dosHeaderPECCOffset); err != nil {
		return zero, mokerr.Wrap(mokerr.Parse, "read PE header offset", err)
	}
	peOffset := int64(binary.LittleEndian.Uint32(peOffsetBuf))
	if peOffset <= 0 || peOffset+coffHeaderSize > size {
		return zero, mokerr.New(mokerr.Parse, "invalid PE header offset")
	}

	h := sha256.New()
	checksumStart := peOffset + 4 + coffHeaderSize + checksumOffset
	checksumEnd := checksumStart + checksumSize

	const chunk = 4096
	buf := make([]byte, chunk)
	var pos int64
	for pos < size {
		select {
		case <-ctx.Done():
			return zero, mokerr.Wrap(mokerr.UserAbort, "hash PE image", ctx.Err())
		default:
		}

		n := int64(chunk)
		if size-pos < n {
			n = size - pos
		}
		read, err := r.ReadAt(buf[:n], pos)
		if err != nil && err != io.EOF {
			return zero, mokerr.Wrap(mokerr.Parse, "read PE image", err)
		}

		writeRegion(h, buf[:read], pos, checksumStart, checksumEnd)
		pos += int64(read)
		if read == 0 {
			break
		}
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}

// writeRegion feeds region [bufStart, bufStart+len(buf)) into h, skipping
// the byte range [skipStart, skipEnd) wherever it overlaps.
func writeRegion(h io.Writer, buf []byte, bufStart, skipStart, skipEnd int64) {
	bufEnd := bufStart + int64(len(buf))
	if skipEnd <= bufStart || skipStart >= bufEnd {
		h.Write(buf)
		return
	}

	if skipStart > bufStart {
		h.Write(buf[:skipStart-bufStart])
	}
	resumeAt := skipEnd - bufStart
	if resumeAt < int64(len(buf)) {
		h.Write(buf[resumeAt:])
	}
}
