package menu

import (
	"context"
	"crypto/sha256"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mokctl/internal/actions"
	"mokctl/internal/authengine"
	"mokctl/internal/authrecord"
	"mokctl/internal/console/fake"
	"mokctl/internal/efi"
	"mokctl/internal/siglist"
	"mokctl/internal/varstore"
)

func legacyBytes(challenge []byte, password string) []byte {
	units := []uint16{}
	for _, r := range password {
		units = append(units, uint16(r))
	}
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

func hashEntry(b byte) siglist.Entry {
	data := make([]byte, efi.SHA256HashSize)
	for i := range data {
		data[i] = b
	}
	return siglist.Entry{Kind: siglist.KindSHA256, Bytes: data}
}

func TestRunContinueBootExitsCleanlyWithNoStaging(t *testing.T) {
	store := varstore.NewMemStore()
	c := fake.New()
	c.QueueMenuChoice(0) // Continue boot

	ctl := New(store, c, authengine.New(c), actions.New(store, c, authengine.New(c), nil), nil)
	err := ctl.Run(context.Background())
	assert.NoError(t, err)
}

func TestRunSkipsPasswordGateWhenMokPWStoreAbsent(t *testing.T) {
	store := varstore.NewMemStore()
	c := fake.New()
	c.QueueMenuChoice(0)

	ctl := New(store, c, authengine.New(c), actions.New(store, c, authengine.New(c), nil), nil)
	err := ctl.Run(context.Background())
	assert.NoError(t, err)
}

func TestRunRequiresPasswordGateWhenMokPWStorePresent(t *testing.T) {
	store := varstore.NewMemStore()
	store.Seed(efi.MokPWStore, efi.NVBS, legacyBytes(nil, "gatepw"))

	c := fake.New()
	c.QueuePassword("gatepw")
	c.QueueMenuChoice(0)

	ctl := New(store, c, authengine.New(c), actions.New(store, c, authengine.New(c), nil), nil)
	err := ctl.Run(context.Background())
	assert.NoError(t, err)
}

func TestRunMenuIncludesEnrollWhenMokNewPresent(t *testing.T) {
	encoded, err := siglist.Encode([]siglist.Entry{hashEntry(0x11)})
	require.NoError(t, err)

	store := varstore.NewMemStore()
	store.Seed(efi.MokNew, efi.NVBS, encoded)
	store.Seed(efi.MokAuth, efi.NVBS, legacyBytes(encoded, "enrollpw"))

	c := fake.New()
	c.QueueMenuChoice(3) // Enroll MOK (index after the 3 fixed entries)
	c.QueueYesNo(true)
	c.QueuePassword("enrollpw")
	c.QueueMenuChoice(0) // Continue boot after commit... never reached: Reset ends the session

	ctl := New(store, c, authengine.New(c), actions.New(store, c, authengine.New(c), noShimPort{}), nil)
	err = ctl.Run(context.Background())
	require.True(t, isReset(err))

	_, err = store.Get(context.Background(), efi.MokNew)
	assert.ErrorIs(t, err, varstore.ErrNotFound)
}

func TestRunDeclinedActionReturnsToMenu(t *testing.T) {
	encoded, err := siglist.Encode([]siglist.Entry{hashEntry(0x11)})
	require.NoError(t, err)

	store := varstore.NewMemStore()
	store.Seed(efi.MokNew, efi.NVBS, encoded)
	store.Seed(efi.MokAuth, efi.NVBS, legacyBytes(encoded, "enrollpw"))

	c := fake.New()
	c.QueueMenuChoice(3) // Enroll MOK
	c.QueueYesNo(false)  // decline
	c.QueueMenuChoice(0) // Continue boot

	ctl := New(store, c, authengine.New(c), actions.New(store, c, authengine.New(c), noShimPort{}), nil)
	err = ctl.Run(context.Background())
	assert.NoError(t, err)

	// Staging survives a decline until the exit-time ClearAll sweep fires.
	_, getErr := store.Get(context.Background(), efi.MokNew)
	assert.ErrorIs(t, getErr, varstore.ErrNotFound, "ClearAll must still wipe staging on a plain exit")
}

func TestRunMenuOffersResetWhenMokAuthPresentWithoutMokNew(t *testing.T) {
	store := varstore.NewMemStore()
	store.Seed(efi.MokAuth, efi.NVBS, legacyBytes(nil, "resetpw"))

	c := fake.New()
	c.QueueMenuChoice(3) // Reset MOK
	c.QueueYesNo(true)
	c.QueuePassword("resetpw")

	ctl := New(store, c, authengine.New(c), actions.New(store, c, authengine.New(c), noShimPort{}), nil)
	err := ctl.Run(context.Background())
	require.True(t, isReset(err))
}

type noShimPort struct{}

func (noShimPort) HashPEImage(ctx context.Context, r io.ReaderAt, size int64) ([32]byte, error) {
	var z [32]byte
	return z, nil
}
