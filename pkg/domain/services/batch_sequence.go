package services

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrSequenceExhausted means vendor batch number generation could not find a
// free sequence number within its retry bound. The operation fails; there is
// no silent fallback to a colliding number.
var ErrSequenceExhausted = errors.New("vendor batch sequence exhausted")

// Vendor batch numbers look like "25/V7": two-digit year, slash, V, sequence
var vendorBatchPattern = regexp.MustCompile(`^(\d{2})/V(\d+)$`)

const maxBatchAttempts = 100

// NextVendorBatchNumber generates the next vendor batch number for the
// collection whose existing values are given: {yy}/V{N} where N is one more
// than the highest sequence found for the current year — max+1, not count+1,
// so gaps left by deletions are never reused downward. Candidates colliding
// with any existing value are skipped, up to a bounded number of attempts.
func NextVendorBatchNumber(existing []string, now time.Time) (string, error) {
	year := now.Format("06")

	taken := make(map[string]struct{}, len(existing))
	maxSeq := 0
	for _, v := range existing {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		taken[v] = struct{}{}

		m := vendorBatchPattern.FindStringSubmatch(v)
		if m == nil || m[1] != year {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if n > maxSeq {
			maxSeq = n
		}
	}

	for i := 1; i <= maxBatchAttempts; i++ {
		candidate := fmt.Sprintf("%s/V%d", year, maxSeq+i)
		if _, exists := taken[candidate]; !exists {
			return candidate, nil
		}
	}

	return "", fmt.Errorf(
		"no free vendor batch number within %d attempts for year %s: %w",
		maxBatchAttempts, year, ErrSequenceExhausted,
	)
}
