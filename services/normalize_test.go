package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases and trims", "HTTP://Example.com/Foo ", "http://example.com/foo"},
		{"already canonical", "http://example.com/foo", "http://example.com/foo"},
		{"percent decoding", "http://example.com/a%2Fb", "http://example.com/a/b"},
		{"double encoding decodes to fixpoint", "http://example.com/a%252Fb", "http://example.com/a/b"},
		{"query survives", "https://example.com/p?q=Hello", "https://example.com/p?q=hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	inputs := []string{
		"HTTP://Example.com/Foo ",
		"http://example.com/a%2Fb",
		"https://example.com/P?Q=R#Frag",
	}
	for _, in := range inputs {
		once, err := NormalizeURL(in)
		require.NoError(t, err)
		twice, err := NormalizeURL(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, "normalize(normalize(x)) must equal normalize(x)")
	}
}

func TestNormalizeURLRejectsInvalid(t *testing.T) {
	invalid := []string{
		"",
		"   ",
		"not a url",
		"ftp://example.com/file",
		"mailto:a@b.com",
		"http://",
		"https://" + strings.Repeat("a", maxURLLength),
	}
	for _, in := range invalid {
		_, err := NormalizeURL(in)
		assert.ErrorIs(t, err, ErrInvalidURL, "input %q", in)
	}
}
