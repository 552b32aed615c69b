package storage

import (
	"fmt"
	"strconv"
)

// ParseID converts a decimal path or CLI argument into a row id.
// Zero is rejected since no row carries it.
func ParseID(s string) (uint, error) {
	val, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	if val == 0 {
		return 0, fmt.Errorf("id must be positive")
	}
	return uint(val), nil
}
