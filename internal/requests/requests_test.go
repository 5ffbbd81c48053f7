package requests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mokctl/internal/efi"
	"mokctl/internal/varstore"
)

func TestDiscoverPopulatesOnlyPresentVariables(t *testing.T) {
	store := varstore.NewMemStore()
	store.Seed(efi.MokNew, efi.NVBS, []byte("new-keys"))
	store.Seed(efi.MokAuth, efi.NVBS, []byte("auth-record"))

	s, err := Discover(context.Background(), store)
	require.NoError(t, err)

	require.NotNil(t, s.MokNew)
	assert.Equal(t, []byte("new-keys"), s.MokNew.Data)
	require.NotNil(t, s.MokAuth)
	assert.Nil(t, s.MokDel)
	assert.Nil(t, s.MokDelAuth)
	assert.Nil(t, s.MokSB)
	assert.Nil(t, s.MokPW)
	assert.Nil(t, s.MokPWStore)
}

func TestHasEnrollVsHasReset(t *testing.T) {
	withNew := Set{MokNew: &varstore.Variable{}, MokAuth: &varstore.Variable{}}
	assert.True(t, withNew.HasEnroll())
	assert.False(t, withNew.HasReset())

	authOnly := Set{MokAuth: &varstore.Variable{}}
	assert.False(t, authOnly.HasEnroll())
	assert.True(t, authOnly.HasReset())

	neither := Set{}
	assert.False(t, neither.HasEnroll())
	assert.False(t, neither.HasReset())
}

func TestHasDeleteEitherVariable(t *testing.T) {
	assert.True(t, Set{MokDel: &varstore.Variable{}}.HasDelete())
	assert.True(t, Set{MokDelAuth: &varstore.Variable{}}.HasDelete())
	assert.False(t, Set{}.HasDelete())
}

func TestHasChangeSecureBootAndSetPassword(t *testing.T) {
	assert.True(t, Set{MokSB: &varstore.Variable{}}.HasChangeSecureBoot())
	assert.False(t, Set{}.HasChangeSecureBoot())
	assert.True(t, Set{MokPW: &varstore.Variable{}}.HasSetPassword())
	assert.False(t, Set{}.HasSetPassword())
}

func TestPasswordGateRequiredTamperTakesPriorityOverSize(t *testing.T) {
	s := Set{MokPWStore: &varstore.Variable{Attrs: efi.NVBS | efi.RuntimeAccess, Data: []byte{}}}
	assert.True(t, s.PasswordGateRequired(func([]byte) bool { return false }))
}

func TestPasswordGateRequiredFalseWhenAbsent(t *testing.T) {
	s := Set{}
	assert.False(t, s.PasswordGateRequired(func([]byte) bool { return true }))
}

func TestPasswordGateRequiredDelegatesSizeCheck(t *testing.T) {
	s := Set{MokPWStore: &varstore.Variable{Attrs: efi.NVBS, Data: []byte("xx")}}
	assert.False(t, s.PasswordGateRequired(func(b []byte) bool { return len(b) == 53 }))
	assert.True(t, s.PasswordGateRequired(func(b []byte) bool { return len(b) == 2 }))
}

func TestClearAllDeletesEveryStagingVariable(t *testing.T) {
	store := varstore.NewMemStore()
	for _, name := range []string{efi.MokNew, efi.MokAuth, efi.MokDel, efi.MokDelAuth, efi.MokSB, efi.MokPW} {
		store.Seed(name, efi.NVBS, []byte("x"))
	}
	store.Seed(efi.MokPWStore, efi.NVBS, []byte("keep-me"))

	err := ClearAll(context.Background(), store)
	require.NoError(t, err)

	for _, name := range []string{efi.MokNew, efi.MokAuth, efi.MokDel, efi.MokDelAuth, efi.MokSB, efi.MokPW} {
		_, err := store.Get(context.Background(), name)
		assert.ErrorIs(t, err, varstore.ErrNotFound)
	}

	v, err := store.Get(context.Background(), efi.MokPWStore)
	require.NoError(t, err)
	assert.Equal(t, []byte("keep-me"), v.Data)
}

func TestClearAllIgnoresAlreadyAbsentVariables(t *testing.T) {
	store := varstore.NewMemStore()
	err := ClearAll(context.Background(), store)
	assert.NoError(t, err)
}
