package actions

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/binary"
	"errors"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mokctl/internal/authengine"
	"mokctl/internal/authrecord"
	"mokctl/internal/console/fake"
	"mokctl/internal/efi"
	"mokctl/internal/mokerr"
	"mokctl/internal/siglist"
	"mokctl/internal/varstore"
)

type stubShim struct {
	hash [32]byte
}

func (s stubShim) HashPEImage(_ context.Context, _ io.ReaderAt, _ int64) ([32]byte, error) {
	return s.hash, nil
}

func legacyBytes(challenge []byte, password string) []byte {
	units := stringToUnits(password)
	buf := make([]byte, 0, len(units)*2)
	for _, u := range units {
		buf = append(buf, byte(u), byte(u>>8))
	}
	h := sha256.New()
	h.Write(challenge)
	h.Write(buf)
	var r authrecord.Legacy
	copy(r.Hash[:], h.Sum(nil))
	return r.Encode()
}

func stringToUnits(s string) []uint16 {
	units := make([]uint16, 0, len(s))
	for _, r := range s {
		units = append(units, uint16(r))
	}
	return units
}

func hashEntry(b byte) siglist.Entry {
	data := make([]byte, efi.SHA256HashSize)
	for i := range data {
		data[i] = b
	}
	return siglist.Entry{Kind: siglist.KindSHA256, Bytes: data}
}

func newEngine(store varstore.Store, c *fake.Console) *Engine {
	return New(store, c, authengine.New(c), stubShim{})
}

func TestEnrollCommitsAndClearsStaging(t *testing.T) {
	encoded, err := siglist.Encode([]siglist.Entry{hashEntry(0xAA)})
	require.NoError(t, err)

	store := varstore.NewMemStore()
	store.Seed(efi.MokNew, efi.NVBS, encoded)
	store.Seed(efi.MokAuth, efi.NVBS, legacyBytes(encoded, "pw1"))

	c := fake.New()
	c.QueueYesNo(true)
	c.QueuePassword("pw1")

	e := newEngine(store, c)
	err = e.Enroll(context.Background(), true)
	require.True(t, errors.Is(err, Reset))

	mokList, err := store.Get(context.Background(), efi.MokList)
	require.NoError(t, err)
	assert.Equal(t, encoded, mokList.Data)

	_, err = store.Get(context.Background(), efi.MokNew)
	assert.ErrorIs(t, err, varstore.ErrNotFound)
	_, err = store.Get(context.Background(), efi.MokAuth)
	assert.ErrorIs(t, err, varstore.ErrNotFound)
}

func TestEnrollAbortsWhenDeclined(t *testing.T) {
	encoded, err := siglist.Encode([]siglist.Entry{hashEntry(0xAA)})
	require.NoError(t, err)

	store := varstore.NewMemStore()
	store.Seed(efi.MokNew, efi.NVBS, encoded)
	store.Seed(efi.MokAuth, efi.NVBS, legacyBytes(encoded, "pw1"))

	c := fake.New()
	c.QueueYesNo(false)

	e := newEngine(store, c)
	err = e.Enroll(context.Background(), true)
	require.Error(t, err)
	assert.True(t, mokerr.IsUserAbort(err))

	_, err = store.Get(context.Background(), efi.MokNew)
	assert.NoError(t, err, "staging must survive a decline")
}

func TestDeleteRemovesMatchingEntryPreservingOrder(t *testing.T) {
	a, b, c3 := hashEntry(0xA1), hashEntry(0xB2), hashEntry(0xC3)
	mokList, err := siglist.Encode([]siglist.Entry{a, b, c3})
	require.NoError(t, err)
	mokDel, err := siglist.Encode([]siglist.Entry{b})
	require.NoError(t, err)

	store := varstore.NewMemStore()
	store.Seed(efi.MokList, efi.NVBS, mokList)
	store.Seed(efi.MokDel, efi.NVBS, mokDel)
	store.Seed(efi.MokDelAuth, efi.NVBS, legacyBytes(mokDel, "delpw"))

	console := fake.New()
	console.QueuePassword("delpw")

	e := newEngine(store, console)
	err = e.Delete(context.Background())
	require.True(t, errors.Is(err, Reset))

	survivorsVar, err := store.Get(context.Background(), efi.MokList)
	require.NoError(t, err)
	survivors, err := siglist.Parse(survivorsVar.Data)
	require.NoError(t, err)
	require.Len(t, survivors, 2)
	assert.True(t, survivors[0].Equal(a))
	assert.True(t, survivors[1].Equal(c3))

	_, err = store.Get(context.Background(), efi.MokDel)
	assert.ErrorIs(t, err, varstore.ErrNotFound)
}

func TestDeleteTamperPathWipesMokListAndDenies(t *testing.T) {
	mokDel, err := siglist.Encode([]siglist.Entry{hashEntry(0xB2)})
	require.NoError(t, err)

	store := varstore.NewMemStore()
	store.Seed(efi.MokList, efi.NVBS, []byte("whatever-bytes"))
	store.SetRuntimeAccessible(efi.MokList)
	store.Seed(efi.MokDel, efi.NVBS, mokDel)
	store.Seed(efi.MokDelAuth, efi.NVBS, legacyBytes(mokDel, "delpw"))

	console := fake.New()
	console.QueuePassword("delpw")

	e := newEngine(store, console)
	err = e.Delete(context.Background())
	require.Error(t, err)
	assert.True(t, mokerr.IsTamper(err))

	_, err = store.Get(context.Background(), efi.MokList)
	assert.ErrorIs(t, err, varstore.ErrNotFound)
	require.Len(t, console.Alerts, 1)
}

func TestResetClearsStateAndRequestsReboot(t *testing.T) {
	store := varstore.NewMemStore()
	store.Seed(efi.MokList, efi.NVBS, []byte("keys"))
	store.Seed(efi.MokNew, efi.NVBS, []byte("new"))
	store.Seed(efi.MokAuth, efi.NVBS, legacyBytes(nil, "resetpw"))

	console := fake.New()
	console.QueueYesNo(true)
	console.QueuePassword("resetpw")

	e := newEngine(store, console)
	err := e.Reset(context.Background())
	require.True(t, errors.Is(err, Reset))

	for _, name := range []string{efi.MokList, efi.MokNew, efi.MokAuth} {
		_, err := store.Get(context.Background(), name)
		assert.ErrorIs(t, err, varstore.ErrNotFound)
	}
}

// mokSBRecord builds the 40-byte {state uint32, pw_len uint32,
// password [16]uint16} MokSBvar record spec.md §3/§4.4 and
// original_source/MokManager.c describe. state == 0 means the request is
// to enable Secure Boot (it is currently disabled); any other value means
// the request is to disable it.
func mokSBRecord(state uint32, password string) []byte {
	units := stringToUnits(password)
	req := MokSBRequest{State: state, PwLen: uint32(len(units))}
	copy(req.Password[:], units)

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, req); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func TestChangeSecureBootEnablesWhenCurrentlyDisabled(t *testing.T) {
	store := varstore.NewMemStore()
	store.Seed(efi.MokSB, efi.NVBS, mokSBRecord(0, "aaaaaaaa"))

	console := fake.New()
	for i := 0; i < 3; i++ {
		console.QueueChar('a')
	}
	console.QueueYesNo(true)

	e := newEngine(store, console)
	err := e.ChangeSecureBoot(context.Background())
	require.True(t, errors.Is(err, Reset))

	v, err := store.Get(context.Background(), efi.MokSBState)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, v.Data)
}

func TestChangeSecureBootDisablesWhenCurrentlyEnabled(t *testing.T) {
	store := varstore.NewMemStore()
	store.Seed(efi.MokSB, efi.NVBS, mokSBRecord(1, "aaaaaaaa"))
	store.Seed(efi.MokSBState, efi.NVBS, []byte{1})

	console := fake.New()
	for i := 0; i < 3; i++ {
		console.QueueChar('a')
	}
	console.QueueYesNo(true)

	e := newEngine(store, console)
	err := e.ChangeSecureBoot(context.Background())
	require.True(t, errors.Is(err, Reset))

	_, err = store.Get(context.Background(), efi.MokSBState)
	assert.ErrorIs(t, err, varstore.ErrNotFound)
}

func TestChangeSecureBootDeclineIsSuccessNotMutation(t *testing.T) {
	store := varstore.NewMemStore()
	store.Seed(efi.MokSB, efi.NVBS, mokSBRecord(0, "aaaaaaaa"))

	console := fake.New()
	for i := 0; i < 3; i++ {
		console.QueueChar('a')
	}
	console.QueueYesNo(false)

	e := newEngine(store, console)
	err := e.ChangeSecureBoot(context.Background())
	require.True(t, errors.Is(err, Reset))
	assert.False(t, mokerr.IsUserAbort(err))

	_, err = store.Get(context.Background(), efi.MokSBState)
	assert.ErrorIs(t, err, varstore.ErrNotFound)

	_, err = store.Get(context.Background(), efi.MokSB)
	assert.ErrorIs(t, err, varstore.ErrNotFound)
}

func TestEnrollEmptyMokNewShortCircuits(t *testing.T) {
	store := varstore.NewMemStore()
	store.Seed(efi.MokNew, efi.NVBS, nil)
	store.Seed(efi.MokAuth, efi.NVBS, legacyBytes(nil, "swordfish"))

	console := fake.New()
	e := newEngine(store, console)
	err := e.Enroll(context.Background(), true)
	require.True(t, errors.Is(err, Reset))

	_, err = store.Get(context.Background(), efi.MokNew)
	assert.ErrorIs(t, err, varstore.ErrNotFound)
	_, err = store.Get(context.Background(), efi.MokAuth)
	assert.ErrorIs(t, err, varstore.ErrNotFound)
	assert.Empty(t, console.Alerts)
}

func TestDeleteEmptyMokDelShortCircuits(t *testing.T) {
	store := varstore.NewMemStore()
	store.Seed(efi.MokDel, efi.NVBS, nil)
	store.Seed(efi.MokDelAuth, efi.NVBS, legacyBytes(nil, "pw"))

	console := fake.New()
	e := newEngine(store, console)
	err := e.Delete(context.Background())
	require.True(t, errors.Is(err, Reset))

	_, err = store.Get(context.Background(), efi.MokDel)
	assert.ErrorIs(t, err, varstore.ErrNotFound)
	_, err = store.Get(context.Background(), efi.MokDelAuth)
	assert.ErrorIs(t, err, varstore.ErrNotFound)
	assert.Empty(t, console.Notifications)
}

func TestSetPasswordClearsOnAllZeroPayload(t *testing.T) {
	var zeroRecord authrecord.Legacy
	store := varstore.NewMemStore()
	store.Seed(efi.MokPW, efi.NVBS, zeroRecord.Encode())
	store.Seed(efi.MokPWStore, efi.NVBS, legacyBytes(nil, "oldpw"))

	console := fake.New()
	console.QueueYesNo(true)

	e := newEngine(store, console)
	err := e.SetPassword(context.Background())
	require.True(t, errors.Is(err, Reset))

	_, err = store.Get(context.Background(), efi.MokPWStore)
	assert.ErrorIs(t, err, varstore.ErrNotFound)
	_, err = store.Get(context.Background(), efi.MokPW)
	assert.ErrorIs(t, err, varstore.ErrNotFound)
}

func TestSetPasswordSetsNewRecordAfterVerification(t *testing.T) {
	record := legacyBytes(nil, "newpw")
	store := varstore.NewMemStore()
	store.Seed(efi.MokPW, efi.NVBS, record)

	console := fake.New()
	console.QueuePassword("newpw")
	console.QueueYesNo(true)

	e := newEngine(store, console)
	err := e.SetPassword(context.Background())
	require.True(t, errors.Is(err, Reset))

	v, err := store.Get(context.Background(), efi.MokPWStore)
	require.NoError(t, err)
	assert.Equal(t, record, v.Data)
}

func TestEnrollFileAsHashStagesAndCommitsWithoutAuth(t *testing.T) {
	store := varstore.NewMemStore()
	console := fake.New()
	console.QueueYesNo(true)

	var wantHash [32]byte
	copy(wantHash[:], bytes.Repeat([]byte{0x42}, 32))
	e := New(store, console, authengine.New(console), stubShim{hash: wantHash})

	err := e.EnrollFile(context.Background(), []byte("pretend-pe-bytes"), true)
	require.True(t, errors.Is(err, Reset))

	mokList, err := store.Get(context.Background(), efi.MokList)
	require.NoError(t, err)
	entries, err := siglist.Parse(mokList.Data)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, siglist.KindSHA256, entries[0].Kind)
	assert.Equal(t, wantHash[:], entries[0].Bytes)
}

func selfSignedDER(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(7),
		Subject:      pkix.Name{CommonName: "file-enrolled-key"},
		NotBefore:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:     time.Date(2034, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return der
}

func TestEnrollFileAsCertStagesAndCommitsWithoutAuth(t *testing.T) {
	store := varstore.NewMemStore()
	console := fake.New()
	console.QueueYesNo(true)

	e := newEngine(store, console)
	der := selfSignedDER(t)

	err := e.EnrollFile(context.Background(), der, false)
	require.True(t, errors.Is(err, Reset))

	mokList, err := store.Get(context.Background(), efi.MokList)
	require.NoError(t, err)
	entries, err := siglist.Parse(mokList.Data)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, siglist.KindX509, entries[0].Kind)
	assert.Equal(t, der, entries[0].Bytes)
}

func TestEnrollFileRejectsInvalidCert(t *testing.T) {
	store := varstore.NewMemStore()
	console := fake.New()

	e := newEngine(store, console)
	err := e.EnrollFile(context.Background(), []byte("not a certificate"), false)
	require.Error(t, err)
	assert.True(t, mokerr.Is(err, mokerr.Parse))
}
