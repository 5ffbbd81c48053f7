package siglist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mokctl/internal/efi"
)

func hashEntry(b byte) Entry {
	data := make([]byte, efi.SHA256HashSize)
	data[0] = b
	return Entry{Kind: KindSHA256, Bytes: data}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	entries := []Entry{hashEntry(1), hashEntry(2), {Kind: KindX509, Bytes: []byte("der-bytes-stand-in")}}

	encoded, err := Encode(entries)
	require.NoError(t, err)

	parsed, err := Parse(encoded)
	require.NoError(t, err)

	require.Len(t, parsed, len(entries))
	for i := range entries {
		assert.True(t, entries[i].Equal(parsed[i]), "entry %d round-trip mismatch", i)
	}
}

func TestEncodeEmptyIsZeroBytes(t *testing.T) {
	encoded, err := Encode(nil)
	require.NoError(t, err)
	assert.Empty(t, encoded)
}

func TestParseZeroBytesIsEmpty(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, parsed)
}

func TestCountMatchesParseLength(t *testing.T) {
	entries := []Entry{hashEntry(1), hashEntry(2), hashEntry(3)}
	encoded, err := Encode(entries)
	require.NoError(t, err)

	assert.Equal(t, uint32(len(entries)), Count(encoded))
}

func TestParseSkipsUnknownGUID(t *testing.T) {
	good, err := Encode([]Entry{hashEntry(9)})
	require.NoError(t, err)

	bad := append([]byte(nil), good...)
	// Corrupt the type GUID of a second, synthetic list appended after the
	// good one so it doesn't match cert or sha256.
	junk := append([]byte(nil), good...)
	for i := 0; i < 16; i++ {
		junk[i] ^= 0xFF
	}
	stream := append(bad, junk...)

	parsed, err := Parse(stream)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.True(t, parsed[0].Equal(hashEntry(9)))
}

func TestParseSkipsWrongSizedSHA256List(t *testing.T) {
	// A SHA256-typed list whose sig_size isn't 48 must be skipped.
	entries := []Entry{hashEntry(1)}
	encoded, err := Encode(entries)
	require.NoError(t, err)

	// Corrupt sig_size (bytes 24:28 of the header) to something else.
	corrupt := append([]byte(nil), encoded...)
	corrupt[24] = 0x10
	corrupt[25] = 0
	corrupt[26] = 0
	corrupt[27] = 0

	parsed, err := Parse(corrupt)
	require.NoError(t, err)
	assert.Empty(t, parsed)
}

func TestParseIgnoresTruncatedTrailingBytes(t *testing.T) {
	entries := []Entry{hashEntry(1), hashEntry(2)}
	encoded, err := Encode(entries)
	require.NoError(t, err)

	truncated := encoded[:len(encoded)-5]
	parsed, err := Parse(truncated)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.True(t, parsed[0].Equal(hashEntry(1)))
}
