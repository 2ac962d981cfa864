package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveKey_DeterministicPerSalt(t *testing.T) {
	secret := []byte("device-secret")

	k1 := DeriveKey(secret, []byte("salt-1"))
	k2 := DeriveKey(secret, []byte("salt-1"))
	k3 := DeriveKey(secret, []byte("salt-2"))

	require.Len(t, k1, KeySize)
	require.Equal(t, k1, k2)
	require.NotEqual(t, k1, k3)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := DeriveKey([]byte("s"), []byte("salt"))
	plain := []byte("eyJhbGciOiJIUzI1NiJ9.token")

	sealed, err := Seal(key, plain)
	require.NoError(t, err)
	require.False(t, bytes.Contains(sealed, plain), "plaintext must not leak into sealed value")

	got, err := Open(key, sealed)
	require.NoError(t, err)
	require.Equal(t, plain, got)
}

func TestSeal_FreshNoncePerCall(t *testing.T) {
	key := DeriveKey([]byte("s"), []byte("salt"))
	a, err := Seal(key, []byte("same"))
	require.NoError(t, err)
	b, err := Seal(key, []byte("same"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestOpen_WrongKeyFails(t *testing.T) {
	sealed, err := Seal(DeriveKey([]byte("a"), []byte("salt")), []byte("x"))
	require.NoError(t, err)

	_, err = Open(DeriveKey([]byte("b"), []byte("salt")), sealed)
	require.Error(t, err)
}

func TestOpen_TooShort(t *testing.T) {
	_, err := Open(DeriveKey([]byte("a"), []byte("salt")), []byte{1, 2, 3})
	require.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestSeal_BadKeyLength(t *testing.T) {
	_, err := Seal([]byte("short"), []byte("x"))
	require.Error(t, err)
}

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3}
	Wipe(b)
	require.Equal(t, []byte{0, 0, 0}, b)
	Wipe(nil)
}
