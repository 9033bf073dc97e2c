package eventlog

import (
	"fmt"
	"strconv"
)

// parseOffsetToken decodes a numeric page token. Negative offsets are
// rejected the same as non-numeric ones (spec.md §8 boundary behavior).
func parseOffsetToken(token string) (int, error) {
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("non-numeric page token %q: %w", token, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative page token %q", token)
	}
	return n, nil
}

func formatOffsetToken(n int) string {
	return strconv.Itoa(n)
}
