package utils

import (
	"strconv"
)

// ParseID parses a positive numeric path id. It returns 0 when s is not one.
func ParseID(s string) uint {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}

// ClampLimit bounds a page size parsed from a query string.
func ClampLimit(s string, def, max int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func FormatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
