package sim

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// SeedFromString turns user input into a run seed. Decimal numbers are used as
// is, so runs can be reproduced from a printed seed. Any other string is
// hashed, and an empty string yields 0.
func SeedFromString(s string) uint64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n
	}
	return xxhash.Sum64String(s)
}
