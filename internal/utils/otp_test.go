package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewOTPCode(t *testing.T) {
	code, err := NewOTPCode(6)
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, r := range code {
		require.GreaterOrEqual(t, r, '0')
		require.LessOrEqual(t, r, '9')
	}

	short, err := NewOTPCode(4)
	require.NoError(t, err)
	require.Len(t, short, 4)
}

func TestHashOTP(t *testing.T) {
	require.Equal(t, HashOTP("123456"), HashOTP("123456"))
	require.NotEqual(t, HashOTP("123456"), HashOTP("123457"))
	require.Len(t, HashOTP("123456"), 64)
}
