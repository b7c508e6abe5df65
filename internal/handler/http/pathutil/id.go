package pathutil

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidID is returned when the ID segment of a URL path is not a
// positive integer.
var ErrInvalidID = errors.New("invalid id")

// ExtractID parses the integer ID that follows prefix in path.
//
//	id, err := ExtractID("/website-settings/123", "/website-settings/")
//	// 123, nil
//
// Zero and negative values are rejected; every settings table uses
// positive serial keys.
func ExtractID(path, prefix string) (int64, error) {
	idStr := strings.TrimPrefix(path, prefix)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
