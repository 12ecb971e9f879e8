// Package bytesize parses human-readable byte sizes such as "8kb" or "1mb".
package bytesize

import (
	"errors"
	"strconv"
	"strings"
)

type Size uint64

const (
	B  Size = 1
	KB      = B << 10
	MB      = KB << 10
	GB      = MB << 10
	TB      = GB << 10
)

var (
	ErrInvalidSizeFormat   = errors.New("invalid size format")
	ErrInvalidNumberFormat = errors.New("invalid number format")
	ErrUnknownUnit         = errors.New("unknown unit")
)

var units = map[string]Size{
	"b":  B,
	"kb": KB,
	"mb": MB,
	"gb": GB,
	"tb": TB,
}

// ParseSize converts a string like "10 mb" into a Size. The unit is
// mandatory and case-insensitive; surrounding whitespace is ignored.
func ParseSize(s string) (Size, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	numPart := s[:i]
	unitPart := strings.TrimSpace(s[i:])

	if unitPart == "" {
		return 0, ErrInvalidSizeFormat
	}
	if numPart == "" {
		return 0, ErrInvalidNumberFormat
	}

	n, err := strconv.ParseUint(numPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidNumberFormat
	}

	unit, ok := units[unitPart]
	if !ok {
		return 0, ErrUnknownUnit
	}
	return Size(n) * unit, nil
}
