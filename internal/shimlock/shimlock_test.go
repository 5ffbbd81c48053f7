package shimlock

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalPE builds a byte slice just large enough to carry a DOS stub
// pointing at a fake PE header, with a checksum field at a known offset.
func minimalPE(checksum uint32, fill byte) []byte {
	buf := make([]byte, 512)
	for i := range buf {
		buf[i] = fill
	}
	peOffset := uint32(128)
	binary.LittleEndian.PutUint32(buf[dosHeaderPECCOffset:], peOffset)

	checksumAt := int64(peOffset) + 4 + coffHeaderSize + checksumOffset
	binary.LittleEndian.PutUint32(buf[checksumAt:], checksum)
	return buf
}

func TestHashPEImageIgnoresChecksumField(t *testing.T) {
	a := minimalPE(0x11111111, 0xAB)
	b := minimalPE(0x22222222, 0xAB)

	hasher := SoftwareHasher{}
	ha, err := hasher.HashPEImage(context.Background(), bytes.NewReader(a), int64(len(a)))
	require.NoError(t, err)
	hb, err := hasher.HashPEImage(context.Background(), bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)

	assert.Equal(t, ha, hb, "checksum field must not affect the digest")
}

func TestHashPEImageDiffersOnSectionChange(t *testing.T) {
	a := minimalPE(0x11111111, 0xAB)
	b := minimalPE(0x11111111, 0xCD)

	hasher := SoftwareHasher{}
	ha, err := hasher.HashPEImage(context.Background(), bytes.NewReader(a), int64(len(a)))
	require.NoError(t, err)
	hb, err := hasher.HashPEImage(context.Background(), bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)

	assert.NotEqual(t, ha, hb)
}

func TestHashPEImageRejectsTruncatedFile(t *testing.T) {
	hasher := SoftwareHasher{}
	tiny := []byte{0, 1, 2}
	_, err := hasher.HashPEImage(context.Background(), bytes.NewReader(tiny), int64(len(tiny)))
	require.Error(t, err)
}

func TestHashPEImageRejectsInvalidPEOffset(t *testing.T) {
	buf := make([]byte, 512)
	binary.LittleEndian.PutUint32(buf[dosHeaderPECCOffset:], 100000)

	hasher := SoftwareHasher{}
	_, err := hasher.HashPEImage(context.Background(), bytes.NewReader(buf), int64(len(buf)))
	require.Error(t, err)
}

func TestHashPEImageRespectsContextCancellation(t *testing.T) {
	a := minimalPE(0x11111111, 0xAB)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hasher := SoftwareHasher{}
	_, err := hasher.HashPEImage(ctx, bytes.NewReader(a), int64(len(a)))
	require.Error(t, err)
}
