package certview

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mokctl/internal/siglist"
)

func selfSignedDER(t *testing.T) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(42),
		Subject:      pkix.Name{CommonName: "test-mok-key", Organization: []string{"Example Org"}},
		NotBefore:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:     time.Date(2034, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return der
}

func TestRenderX509Entry(t *testing.T) {
	der := selfSignedDER(t)
	entry := siglist.Entry{Kind: siglist.KindX509, Bytes: der}

	title, lines, err := Render(entry)
	require.NoError(t, err)
	assert.Equal(t, "X.509 Certificate", title)
	assert.Contains(t, joinAny(lines), "test-mok-key")
	assert.Contains(t, joinAny(lines), "Serial: 42")
}

func TestRenderSHA256Entry(t *testing.T) {
	hash := make([]byte, 32)
	for i := range hash {
		hash[i] = byte(i)
	}
	entry := siglist.Entry{Kind: siglist.KindSHA256, Bytes: hash}

	title, lines, err := Render(entry)
	require.NoError(t, err)
	assert.Equal(t, "SHA256 hash", title)
	require.Len(t, lines, 4) // 32 bytes / 10-per-line -> 4 lines
	assert.Equal(t, "00 01 02 03 04 05 06 07 08 09", lines[0])
}

func TestSummary(t *testing.T) {
	der := selfSignedDER(t)
	s := Summary(siglist.Entry{Kind: siglist.KindX509, Bytes: der})
	assert.Contains(t, s, "test-mok-key")

	hash := make([]byte, 32)
	hs := Summary(siglist.Entry{Kind: siglist.KindSHA256, Bytes: hash})
	assert.Contains(t, hs, "SHA256")
}

func joinAny(lines []string) string {
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}
