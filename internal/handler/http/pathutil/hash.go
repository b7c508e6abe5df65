package pathutil

import (
	"errors"
	"strings"
)

// ErrInvalidHash is returned when the hash in the URL path is invalid.
var ErrInvalidHash = errors.New("invalid hash")

// ExtractHash extracts a hex SHA-256 hash key from a URL path.
// It removes the specified prefix and validates that the remainder is
// exactly 64 lowercase hex characters.
//
// Example:
//
//	hash, err := ExtractHash("/rfps/ab12...", "/rfps/")
func ExtractHash(path, prefix string) (string, error) {
	hash := strings.TrimPrefix(path, prefix)
	if len(hash) != 64 {
		return "", ErrInvalidHash
	}
	for _, c := range hash {
		isDigit := c >= '0' && c <= '9'
		isHexLetter := c >= 'a' && c <= 'f'
		if !isDigit && !isHexLetter {
			return "", ErrInvalidHash
		}
	}
	return hash, nil
}
