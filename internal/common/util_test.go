package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateRandByteArray(t *testing.T) {
	a := GenerateRandByteArray(32)
	b := GenerateRandByteArray(32)
	require.Len(t, a, 32)
	require.Len(t, b, 32)
	require.NotEqual(t, a, b, "two draws must differ")
}

func TestWipeByteArray(t *testing.T) {
	b := []byte("secret")
	WipeByteArray(b)
	require.Equal(t, make([]byte, 6), b)
}

func TestWipeByteArray_Nil(t *testing.T) {
	require.NotPanics(t, func() { WipeByteArray(nil) })
}
