package rowstore

import (
	"fmt"
	"strconv"
	"strings"
)

// EncodeRoots serializes one index root position per index as the
// whitespace-separated 32-bit integer string.
// An empty index is written as -1.
func EncodeRoots(roots []int64) string {
	parts := make([]string, len(roots))
	for i, r := range roots {
		parts[i] = strconv.FormatInt(r, 10)
	}
	return strings.Join(parts, " ")
}

// DecodeRoots parses the index-roots string back into one position
// per index. It is the inverse of EncodeRoots: DecodeRoots(EncodeRoots(r))
// returns r. Any run of whitespace separates fields, so re-encoding a
// decoded string yields single-space separators.
func DecodeRoots(s string) ([]int64, error) {
	fields := strings.Fields(s)
	roots := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode index roots: field %d (%q): %w", i, f, err)
		}
		roots[i] = v
	}
	return roots, nil
}
