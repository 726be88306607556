package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPhone_Canonical(t *testing.T) {
	require.Equal(t, "+260 955 123 456", Phone("+260 955 123 456"))
}

func TestPhone_LocalFormat(t *testing.T) {
	require.Equal(t, "+260 955 123 456", Phone("0955123456"))
}

func TestPhone_ShortInputLeftPads(t *testing.T) {
	// Left-padding produces a number with leading zeros; this mirrors the
	// behavior existing CRM records depend on.
	require.Equal(t, "+260 000 955 123", Phone("955123"))
}

func TestPhone_StripsNoise(t *testing.T) {
	require.Equal(t, "+260 977 654 321", Phone("(260) 977-654 321"))
}

func TestPhone_LongInputTruncates(t *testing.T) {
	require.Equal(t, "+260 955 123 456", Phone("260955123456789"))
}

func TestPhone_EmptyInput(t *testing.T) {
	require.Equal(t, "+260 000 000 000", Phone(""))
}

func TestPhone_Idempotent(t *testing.T) {
	inputs := []string{
		"+260 955 123 456",
		"0955123456",
		"955123",
		"96 112 2334",
		"",
		"+260-0000-1",
	}
	for _, in := range inputs {
		once := Phone(in)
		require.Equal(t, once, Phone(once), "normalization of %q must be idempotent", in)
	}
}
