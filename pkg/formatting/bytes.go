// Package formatting converts between human-readable byte sizes and counts,
// and decodes JSON out of generative model responses.
package formatting

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// prefixes are the base-1024 multiples above bytes, each a further 10 bits.
// Exabytes is the last multiple an int64 can hold.
const prefixes = "KMGTPE"

// FormatBytes renders n in the largest unit not exceeding it, such as
// "25 MB" or "1.5 KB". Plain byte counts never carry a fraction. Negative
// precision is treated as zero.
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)

	sign := ""
	u := uint64(n)
	if n < 0 {
		sign = "-"
		u = uint64(-(n + 1)) + 1
	}

	level := 0
	for level < len(prefixes) && u >= 1<<(10*(level+1)) {
		level++
	}
	if level == 0 {
		return sign + strconv.FormatUint(u, 10) + " B"
	}

	size := float64(u) / float64(uint64(1)<<(10*level))
	return sign + strconv.FormatFloat(size, 'f', precision, 64) + " " + prefixes[level-1:level] + "B"
}

// ParseBytes reads sizes like "50MB", "1.5 kb", "2GiB", "4K", or a bare
// byte count. Units are base-1024 and case-insensitive.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty byte size")
	}

	num, suffix := s, ""
	if i := strings.IndexFunc(s, notNumeric); i >= 0 {
		num, suffix = s[:i], strings.TrimSpace(s[i:])
	}
	if num == "" {
		return 0, fmt.Errorf("invalid byte size %q: missing number", s)
	}

	value, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}

	level, ok := unitLevel(suffix)
	if !ok {
		return 0, fmt.Errorf("unknown byte size unit %q", suffix)
	}

	n := value * math.Pow(1024, float64(level))
	if n >= math.MaxInt64 {
		return 0, fmt.Errorf("byte size %q exceeds %s", s, FormatBytes(math.MaxInt64, 0))
	}
	return int64(n), nil
}

func notNumeric(r rune) bool {
	return r != '.' && (r < '0' || r > '9')
}

// unitLevel maps B, K, KB, and KiB style suffixes to their power of 1024.
func unitLevel(suffix string) (int, bool) {
	u := strings.ToUpper(suffix)
	if u == "" || u == "B" {
		return 0, true
	}

	u = strings.TrimSuffix(u, "B")
	u = strings.TrimSuffix(u, "I")
	if len(u) != 1 {
		return 0, false
	}

	i := strings.IndexByte(prefixes, u[0])
	if i < 0 {
		return 0, false
	}
	return i + 1, true
}
