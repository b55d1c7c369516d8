package services

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCodeLengthAndAlphabet(t *testing.T) {
	alnum := regexp.MustCompile(`^[A-Za-z0-9]+$`)

	for _, length := range []int{3, 8, 20} {
		code, err := GenerateCode(length)
		require.NoError(t, err)
		assert.Len(t, code, length)
		assert.Regexp(t, alnum, code, "generated codes are alphanumeric only")
	}
}

func TestGenerateCodeDefaultLength(t *testing.T) {
	code, err := GenerateCode(0)
	require.NoError(t, err)
	assert.Len(t, code, DefaultCodeLength)
}

func TestGenerateCodeVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateCode(DefaultCodeLength)
		require.NoError(t, err)
		seen[code] = true
	}
	// 100 draws from 62^8 colliding would mean the generator is broken.
	assert.Len(t, seen, 100)
}

func TestValidAlias(t *testing.T) {
	valid := []string{"abc", "promo", "my-link_2024", "A1b2C3d4"}
	for _, alias := range valid {
		assert.True(t, ValidAlias(alias), alias)
	}

	invalid := []string{"", "ab", "has space", "bad/slash", "way-too-long-alias-over-twenty", "émoji"}
	for _, alias := range invalid {
		assert.False(t, ValidAlias(alias), alias)
	}
}
