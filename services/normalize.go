package services

import (
	"net/url"
	"strings"
)

const (
	maxURLLength = 2048

	// Bound for repeated percent-decoding of pathological inputs.
	maxDecodePasses = 4
)

// NormalizeURL canonicalizes a raw URL for storage and deduplication:
// surrounding whitespace is trimmed, percent-escapes are decoded until the
// string stops changing, and the result is lowercased. The same function runs
// at write time and at lookup-by-original-url time so equivalent inputs always
// map to the same record.
//
// Lowercasing the whole URL is lossy for case-sensitive paths; that is an
// accepted simplification of this domain, not something to fix here.
//
// NormalizeURL is idempotent: decoding already ran to a fixpoint, so a second
// pass finds nothing left to decode or fold.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" || len(s) > maxURLLength {
		return "", ErrInvalidURL
	}

	for i := 0; i < maxDecodePasses; i++ {
		decoded, err := url.PathUnescape(s)
		if err != nil || decoded == s {
			// Malformed escapes are left as-is rather than rejected;
			// they are literal characters as far as dedup is concerned.
			break
		}
		s = decoded
	}
	s = strings.ToLower(s)

	parsed, err := url.Parse(s)
	if err != nil {
		return "", ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if parsed.Host == "" {
		return "", ErrInvalidURL
	}
	return s, nil
}
