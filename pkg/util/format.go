package util

import (
	"fmt"
	"strconv"
)

// FormatBytes renders a byte-ish count as a short human-readable string.
// Character totals read better as "1.2 KB" than as a raw digit run.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
